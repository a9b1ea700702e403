package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"audio-proxy/internal/cache"
	"audio-proxy/internal/lookup"
	"audio-proxy/internal/models"
)

// CaptionFetcher retrieves and parses a caption track.
type CaptionFetcher interface {
	Fetch(ctx context.Context, url string) ([]models.Cue, error)
}

// Resolver fronts the external lookup service with the resolution cache.
type Resolver struct {
	cache    *cache.ResolutionCache
	lookup   lookup.Client
	captions CaptionFetcher
}

func NewResolver(c *cache.ResolutionCache, lc lookup.Client, cf CaptionFetcher) *Resolver {
	return &Resolver{
		cache:    c,
		lookup:   lc,
		captions: cf,
	}
}

// Resolve returns the cached resolution for query, or performs an external
// lookup on a miss. The second return reports whether this was a cache hit.
// A caption-fetch failure degrades to empty cues, never to a request failure.
// Concurrent misses for the same query may each invoke the lookup; the last
// writer wins, which is harmless since entries are equivalent.
func (r *Resolver) Resolve(ctx context.Context, query string) (*models.ResolvedQuery, bool, error) {
	key := cache.NormalizeQuery(query)

	if resolved, ok := r.cache.Get(key); ok {
		log.Info("cache hit", "query", query)
		return resolved, true, nil
	}

	log.Info("cache miss, searching", "query", query)
	entry, err := r.lookup.Search(ctx, query)
	if err != nil {
		return nil, false, err
	}

	var cues []models.Cue
	if entry.CaptionURL != "" && r.captions != nil {
		cues, err = r.captions.Fetch(ctx, entry.CaptionURL)
		if err != nil {
			log.Warn("caption fetch failed, continuing without lyrics", "query", query, "error", err)
			cues = nil
		}
	}

	resolved := &models.ResolvedQuery{
		Key:        key,
		Entry:      *entry,
		Cues:       cues,
		ResolvedAt: time.Now(),
	}
	r.cache.Put(resolved)

	return resolved, false, nil
}
