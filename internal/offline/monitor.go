package offline

import (
	"context"
	"errors"
	"sync"

	"shopdesk/internal/logger"

	"github.com/rs/zerolog"
)

// Syncer runs one synchronization pass
type Syncer interface {
	Run(ctx context.Context) (Result, error)
}

// Monitor tracks connectivity and starts one sync pass on every offline to online transition.
// It starts offline.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
	syncer Syncer
	passes sync.WaitGroup
	log    zerolog.Logger
}

func NewMonitor(syncer Syncer) *Monitor {
	return &Monitor{syncer: syncer, log: logger.WithComponent("connectivity")}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel receiving the latest state after each change.
// A slow reader only misses intermediate states.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}

// SetOnline records the connectivity state. Repeating the current state does nothing.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	if online && m.syncer != nil {
		m.passes.Add(1)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("connectivity changed")
	if !online || m.syncer == nil {
		return
	}

	go func() {
		defer m.passes.Done()
		if _, err := m.syncer.Run(ctx); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				m.log.Debug().Msg("sync already running")
				return
			}
			m.log.Warn().Err(err).Msg("sync pass after reconnect failed")
		}
	}()
}

// Wait blocks until every pass started by SetOnline has returned
func (m *Monitor) Wait() {
	m.passes.Wait()
}
