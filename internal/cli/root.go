// Package cli implements the shopsync command line: a point of sale device client
// that records sales, keeps them in a durable queue while the server is unreachable
// and replays them once connectivity returns.
package cli

import (
	"context"
	"fmt"
	"io"

	"shopdesk/internal/client"
	"shopdesk/internal/config"
	"shopdesk/internal/logger"
	"shopdesk/internal/offline"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0"

// app carries what every subcommand needs
type app struct {
	v   *viper.Viper
	cfg *config.Client
	out io.Writer
	rdb *redis.Client
}

// NewRootCommand builds the shopsync command tree
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewClientViper()}

	root := &cobra.Command{
		Use:   "shopsync",
		Short: "Point of sale client with an offline sale queue",
		Long: `shopsync records sales against a shopdesk server. When the server cannot be
reached the sale is kept in a local durable queue and replayed, oldest first,
as soon as the connection comes back.

Every flag can also be set through the environment, e.g. SHOPSYNC_SERVER,
SHOPSYNC_TOKEN, SHOPSYNC_STORE, SHOPSYNC_QUEUE_FILE or SHOPSYNC_MAX_ATTEMPTS.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "shopdesk server base URL")
	flags.String("token", "", "bearer token (see the login command)")
	flags.String("store", config.StoreFile, "queue storage: file or redis")
	flags.String("queue-file", offline.DefaultQueueFile, "queue file when store=file")
	flags.String("dead-letter-file", offline.DefaultDeadLetterFile, "dead letter file when store=file")
	flags.String("redis-url", "redis://localhost:6379/0", "redis URL when store=redis")
	flags.String("redis-key", offline.DefaultRedisKey, "redis key of the queue")
	flags.Int("max-attempts", 0, "failed attempts before a sale is parked as dead letter (0 = retry forever)")
	flags.Int64("node-id", 1, "device number (0-1023) used in invoice numbers")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newLoginCommand(a),
		newCheckoutCommand(a),
		newEnqueueCommand(a),
		newSyncCommand(a),
		newStatusCommand(a),
		newRequeueCommand(a),
		newClearCommand(a),
		newWatchCommand(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(a.v)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.LogConfig()); err != nil {
		return fmt.Errorf("logger setup: %w", err)
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
}

// stores returns the queue and dead letter stores selected by the configuration
func (a *app) stores(ctx context.Context) (offline.QueueStore, offline.QueueStore, error) {
	if a.cfg.Store == config.StoreRedis {
		rdb, err := offline.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = rdb
		return offline.NewRedisStore(rdb, a.cfg.RedisKey),
			offline.NewRedisStore(rdb, offline.DeadLetterPrefix+a.cfg.RedisKey), nil
	}
	return offline.NewFileStore(a.cfg.QueueFile), offline.NewFileStore(a.cfg.DeadLetterFile), nil
}

func (a *app) openQueue(ctx context.Context) (*offline.Queue, error) {
	store, dead, err := a.stores(ctx)
	if err != nil {
		return nil, err
	}
	return offline.OpenQueue(ctx, store, offline.NewLogNotifier(), offline.WithDeadLetterStore(dead))
}

func (a *app) api() *client.Client {
	return client.New(a.cfg.Server, client.WithToken(a.cfg.Token))
}

func (a *app) processor(q *offline.Queue) *offline.Processor {
	return offline.NewProcessor(q, a.api(),
		offline.WithMaxAttempts(a.cfg.MaxAttempts),
		offline.WithNotifier(offline.NewLogNotifier()),
	)
}
