package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"shopdesk/internal/client"
	"shopdesk/internal/logger"
	"shopdesk/internal/offline"

	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Obtain a token for the other commands",
		Example: `  export SHOPSYNC_TOKEN=$(shopsync login --email owner@shop.test --password abc123)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			token, err := a.api().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newCheckoutCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Record a sale, queueing it when the server is unreachable",
		Example: `  shopsync checkout --customer "Awa Diop" --item "Rice 5kg:5000:2" --item "Oil:1500:1" --paid 4000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cart, err := cartFromFlags(cmd)
			if err != nil {
				return err
			}
			numbers, err := offline.NewNumberer(a.cfg.NodeID)
			if err != nil {
				return err
			}
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}

			rec, err := client.NewCheckout(a.api(), q, nil, numbers).Sell(cmd.Context(), cart)
			if err != nil {
				return err
			}
			if rec.Offline {
				fmt.Fprintf(a.out, "%s saved offline (%s, %d pending)\n", rec.Sale.InvoiceNumber, rec.Status, q.Len())
				return nil
			}
			fmt.Fprintf(a.out, "%s recorded as %s (invoice %s)\n", rec.Sale.InvoiceNumber, rec.Status, rec.InvoiceID)
			return nil
		},
	}
	addCartFlags(cmd)
	return cmd
}

func newEnqueueCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a sale without contacting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cart, err := cartFromFlags(cmd)
			if err != nil {
				return err
			}
			numbers, err := offline.NewNumberer(a.cfg.NodeID)
			if err != nil {
				return err
			}
			sale, err := offline.NewSale(numbers, cart, time.Now())
			if err != nil {
				return err
			}
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			if err := q.Enqueue(cmd.Context(), sale); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s saved offline (%s, %d pending)\n", sale.InvoiceNumber, sale.Status, q.Len())
			return nil
		},
	}
	addCartFlags(cmd)
	return cmd
}

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued sales to the server once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.processor(q).Run(cmd.Context())
			if err != nil {
				return err
			}
			if len(res.Outcomes) == 0 {
				fmt.Fprintln(a.out, "nothing to synchronize")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INVOICE\tCORRELATION\tRESULT")
			for _, o := range res.Outcomes {
				result := "synced " + o.InvoiceID
				switch {
				case o.DeadLettered:
					result = "dead letter: " + o.Err.Error()
				case o.Err != nil:
					result = fmt.Sprintf("failed (attempt %d): %s", o.Attempts, o.Err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.InvoiceNumber, o.CorrelationID, result)
			}
			_ = w.Flush()
			fmt.Fprintf(a.out, "%d synced, %d pending, %d dead letters\n", res.Synced, q.Len(), len(q.DeadLetters()))

			if res.Synced == 0 {
				return errors.New("synchronization failed")
			}
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queued and dead-lettered sales",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			entries, dead := q.Entries(), q.DeadLetters()
			fmt.Fprintf(a.out, "%d pending, %d dead letters\n", len(entries), len(dead))
			if len(entries)+len(dead) == 0 {
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATE\tINVOICE\tCUSTOMER\tTOTAL\tPAID\tATTEMPTS\tLAST ERROR")
			for _, e := range entries {
				printEntry(w, "pending", e)
			}
			for _, e := range dead {
				printEntry(w, "dead", e)
			}
			return w.Flush()
		},
	}
}

func printEntry(w *tabwriter.Writer, state string, e offline.Entry) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		state, e.Sale.InvoiceNumber, e.Sale.CustomerName,
		e.Sale.TotalAmount.StringFixed(2), e.Sale.AmountPaid.StringFixed(2),
		e.Attempts, e.LastError)
}

func newRequeueCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue",
		Short: "Move dead letters back to the queue with a fresh retry budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			n, err := q.RequeueDeadLetters(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d sales requeued\n", n)
			return nil
		},
	}
}

func newClearCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued sale",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("queued sales would be lost, pass --yes to confirm")
			}
			q, err := a.openQueue(cmd.Context())
			if err != nil {
				return err
			}
			dropped := q.Len()
			if err := q.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d sales dropped\n", dropped)
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "confirm")
	return cmd
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and replay the queue whenever the server comes back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			q, err := a.openQueue(ctx)
			if err != nil {
				return err
			}
			monitor := offline.NewMonitor(a.processor(q))
			link, err := client.NewLink(a.cfg.Server, a.cfg.Token, monitor)
			if err != nil {
				return err
			}

			log := logger.WithComponent("watch")
			log.Info().Int("pending", q.Len()).Str("server", a.cfg.Server).Msg("watching connectivity")

			go func() {
				for evt := range link.Events() {
					log.Info().Str("event", evt.Event).Time("at", evt.At).Msg("server event")
				}
			}()

			link.Run(ctx)
			monitor.Wait()
			log.Info().Int("pending", q.Len()).Msg("stopped")
			return nil
		},
	}
}
