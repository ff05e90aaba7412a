package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopdesk/internal/logger"
	"shopdesk/internal/offline"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
	pongWait   = 60 * time.Second
)

// Event is a message pushed by the server hub
type Event struct {
	Event string    `json:"event"`
	At    time.Time `json:"at"`
}

// Link holds a websocket to the server and reports connectivity to a Monitor.
// The socket being open is what "online" means for the device.
type Link struct {
	url     string
	monitor *offline.Monitor
	dialer  *websocket.Dialer
	events  chan Event
	log     zerolog.Logger
}

// NewLink derives the /ws endpoint from the API base URL
func NewLink(baseURL, token string, monitor *offline.Monitor) (*Link, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return &Link{
		url:     u.String(),
		monitor: monitor,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		events:  make(chan Event, 16),
		log:     logger.WithComponent("link"),
	}, nil
}

// Events delivers server events. Events are dropped when nobody reads.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Run keeps reconnecting until ctx ends, then closes Events. Call it once.
func (l *Link) Run(ctx context.Context) {
	defer close(l.events)
	backoff := minBackoff
	for {
		conn, resp, err := l.dialer.DialContext(ctx, l.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			l.monitor.SetOnline(ctx, false)
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				l.log.Error().Int("status", resp.StatusCode).Msg("websocket rejected the token")
			} else {
				l.log.Debug().Err(err).Dur("retry_in", backoff).Msg("server unreachable")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = minBackoff
		l.monitor.SetOnline(ctx, true)
		l.read(ctx, conn)
		l.monitor.SetOnline(ctx, false)

		if ctx.Err() != nil {
			return
		}
	}
}

func (l *Link) read(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() == nil {
				l.log.Warn().Err(err).Msg("connection lost")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		select {
		case l.events <- evt:
		default:
		}
	}
}
