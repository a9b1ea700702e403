package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"audio-proxy/internal/cache"
	"audio-proxy/internal/lookup"
	"audio-proxy/internal/models"
)

type countingLookup struct {
	calls int
	entry *models.ResolvedEntry
	err   error
}

func (c *countingLookup) Search(ctx context.Context, query string) (*models.ResolvedEntry, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.entry, nil
}

type stubCaptions struct {
	cues []models.Cue
	err  error
}

func (s *stubCaptions) Fetch(ctx context.Context, url string) ([]models.Cue, error) {
	return s.cues, s.err
}

func testEntry() *models.ResolvedEntry {
	return &models.ResolvedEntry{
		Title:        "Song",
		Artist:       "Artist",
		Duration:     180,
		SourceURL:    "https://media.example.com/stream",
		ThumbnailURL: "https://media.example.com/thumb.jpg",
		CaptionURL:   "https://caps.example.com/track.vtt",
	}
}

func TestResolver_MissThenHit(t *testing.T) {
	lc := &countingLookup{entry: testEntry()}
	r := NewResolver(cache.NewResolutionCache(30*time.Minute), lc, &stubCaptions{
		cues: []models.Cue{{Offset: 1, Text: "line"}},
	})

	resolved, hit, err := r.Resolve(context.Background(), "Some Song")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if hit {
		t.Error("First resolve reported a hit")
	}
	if len(resolved.Cues) != 1 {
		t.Errorf("Cues = %d, want 1", len(resolved.Cues))
	}

	// Case-variant query within the window: hit, no second lookup call.
	_, hit, err = r.Resolve(context.Background(), "SOME SONG")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !hit {
		t.Error("Second resolve missed the cache")
	}
	if lc.calls != 1 {
		t.Errorf("Lookup called %d times, want 1", lc.calls)
	}
}

func TestResolver_CaptionFailureDegradesToEmpty(t *testing.T) {
	lc := &countingLookup{entry: testEntry()}
	r := NewResolver(cache.NewResolutionCache(30*time.Minute), lc, &stubCaptions{
		err: errors.New("caption host down"),
	})

	resolved, _, err := r.Resolve(context.Background(), "song")
	if err != nil {
		t.Fatalf("Resolve failed on caption error: %v", err)
	}
	if len(resolved.Cues) != 0 {
		t.Errorf("Cues = %d, want 0", len(resolved.Cues))
	}
}

func TestResolver_NoCaptionURLSkipsFetch(t *testing.T) {
	entry := testEntry()
	entry.CaptionURL = ""
	lc := &countingLookup{entry: entry}
	r := NewResolver(cache.NewResolutionCache(30*time.Minute), lc, &stubCaptions{
		err: errors.New("must not be called"),
	})

	resolved, _, err := r.Resolve(context.Background(), "song")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(resolved.Cues) != 0 {
		t.Errorf("Cues = %d, want 0", len(resolved.Cues))
	}
}

func TestResolver_LookupErrorPropagates(t *testing.T) {
	lc := &countingLookup{err: lookup.ErrNoResult}
	r := NewResolver(cache.NewResolutionCache(30*time.Minute), lc, &stubCaptions{})

	_, _, err := r.Resolve(context.Background(), "unknown song")
	if !errors.Is(err, lookup.ErrNoResult) {
		t.Errorf("err = %v, want ErrNoResult", err)
	}

	// Failures are not cached.
	lc.err = nil
	lc.entry = testEntry()
	_, hit, err := r.Resolve(context.Background(), "unknown song")
	if err != nil {
		t.Fatalf("Resolve failed after upstream recovered: %v", err)
	}
	if hit {
		t.Error("Failed lookup was cached")
	}
}

func TestSweeper_SweepRemovesOnlyExpired(t *testing.T) {
	store := cache.NewSessionStore(30 * time.Minute)
	resolution := cache.NewResolutionCache(30 * time.Minute)

	fresh := store.Open(&models.ResolvedQuery{Entry: *testEntry()})
	resolution.Put(&models.ResolvedQuery{Key: "fresh", ResolvedAt: time.Now()})
	resolution.Put(&models.ResolvedQuery{Key: "stale", ResolvedAt: time.Now().Add(-time.Hour)})

	sweeper := NewSweeper(store, resolution, time.Minute)
	sweeper.Sweep(time.Now())

	if _, ok := store.AudioSource(fresh); !ok {
		t.Error("Fresh session removed by sweep")
	}
	if _, ok := resolution.Get("fresh"); !ok {
		t.Error("Fresh resolution removed by sweep")
	}
	if resolution.Len() != 1 {
		t.Errorf("Resolution entries = %d, want 1", resolution.Len())
	}
}

func TestSweeper_SessionOutlivesResolution(t *testing.T) {
	store := cache.NewSessionStore(30 * time.Minute)
	resolution := cache.NewResolutionCache(30 * time.Minute)

	resolved := &models.ResolvedQuery{Key: "k", Entry: *testEntry(), ResolvedAt: time.Now().Add(-time.Hour)}
	resolution.Put(resolved)
	id := store.Open(resolved)

	NewSweeper(store, resolution, time.Minute).Sweep(time.Now())

	// The resolution entry is gone, but the session keeps its own copies.
	if _, ok := resolution.Get("k"); ok {
		t.Error("Expired resolution survived sweep")
	}
	url, ok := store.AudioSource(id)
	if !ok || url != testEntry().SourceURL {
		t.Errorf("Session lost its audio source: %q, %v", url, ok)
	}
}
