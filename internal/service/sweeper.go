package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"audio-proxy/internal/cache"
)

// Sweeper periodically evicts expired sessions and resolution entries. It
// runs on a fixed interval in its own goroutine and holds no special access:
// eviction goes through the same Prune operations the stores expose.
type Sweeper struct {
	store    *cache.SessionStore
	cache    *cache.ResolutionCache
	interval time.Duration
}

func NewSweeper(store *cache.SessionStore, resolution *cache.ResolutionCache, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		cache:    resolution,
		interval: interval,
	}
}

// Start runs sweep passes until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("started eviction sweeper", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("eviction sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep runs one eviction pass. Session and resolution sweeps are
// independent: a session may outlive the resolution entry that spawned it
// and vice versa, since sessions own copies of the fields they need.
func (s *Sweeper) Sweep(now time.Time) {
	removed := s.store.Prune(now)
	for _, id := range removed {
		log.Debug("removed expired session", "id", id)
	}

	pruned := s.cache.Prune(now)

	if len(removed) > 0 || pruned > 0 {
		log.Info("sweep complete", "sessions_removed", len(removed), "resolutions_removed", pruned)
	}
}
