package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	defaultPurgeInterval = time.Hour
	purgeTimeout         = 30 * time.Second
)

// SessionPurger periodically removes expired sessions so the registry does
// not grow without bound. Expired sessions are already rejected on lookup;
// purging only reclaims storage.
type SessionPurger struct {
	sessions ports.SessionRepository
	log      zerolog.Logger
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSessionPurger creates a purger running every interval. A non-positive
// interval defaults to one hour.
func NewSessionPurger(sessions ports.SessionRepository, log zerolog.Logger, interval time.Duration) *SessionPurger {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &SessionPurger{
		sessions: sessions,
		log:      log.With().Str("component", "session_purger").Logger(),
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a purge immediately and then on every tick. Non-blocking.
func (p *SessionPurger) Start() {
	go p.run()
	p.log.Info().Dur("interval", p.interval).Msg("session purger started")
}

// Stop signals the worker and waits for an in-flight purge to finish.
func (p *SessionPurger) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
	p.log.Info().Msg("session purger stopped")
}

func (p *SessionPurger) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PurgeOnce()

	for {
		select {
		case <-ticker.C:
			p.PurgeOnce()
		case <-p.stopCh:
			return
		}
	}
}

// PurgeOnce deletes expired sessions and returns how many were removed.
func (p *SessionPurger) PurgeOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := p.sessions.PurgeExpired(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to purge expired sessions")
		return 0
	}
	metrics.SessionsPurgedTotal.Add(float64(n))
	p.log.Debug().Int64("purged", n).Msg("expired sessions purged")
	return n
}
