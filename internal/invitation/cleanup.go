package invitation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically purges dead token entries. Tokens expire on their own
// TTL, so the sweep is advisory housekeeping, not load-bearing.
type Sweeper struct {
	store    Purger
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a sweeper over the given store
func NewSweeper(store Purger, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, log: log}
}

// Run sweeps until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.PurgeExpired(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("token sweep failed")
				continue
			}
			if removed > 0 {
				s.log.Debug().Int("removed", removed).Msg("purged expired invitation tokens")
			}
		}
	}
}
