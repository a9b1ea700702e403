package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"audio-proxy/internal/models"
)

// SessionStore maps opaque session ids to the resolved audio, caption and
// image sources of a song. The three sub-maps are one record split by field:
// an id present in the store has a last-access timestamp and an audio source.
// Sessions expire by idle time, not creation age; any proxy access refreshes
// them via Touch.
type SessionStore struct {
	mu         sync.RWMutex
	audio      map[string]string
	cues       map[string][]models.Cue
	image      map[string]string
	lastAccess map[string]time.Time
	expire     time.Duration
}

func NewSessionStore(expire time.Duration) *SessionStore {
	return &SessionStore{
		audio:      make(map[string]string),
		cues:       make(map[string][]models.Cue),
		image:      make(map[string]string),
		lastAccess: make(map[string]time.Time),
		expire:     expire,
	}
}

// Open mints a fresh session from a resolved query and returns its id.
// Identifiers are random UUIDs and never reused while live.
func (s *SessionStore) Open(resolved *models.ResolvedQuery) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.audio[id] = resolved.Entry.SourceURL
	s.cues[id] = resolved.Cues
	s.image[id] = resolved.Entry.ThumbnailURL
	s.lastAccess[id] = time.Now()

	return id
}

// Touch refreshes a session's last-access timestamp. Returns false for an
// unknown id.
func (s *SessionStore) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lastAccess[id]; !ok {
		return false
	}
	s.lastAccess[id] = time.Now()
	return true
}

// AudioSource returns the session's audio source URL.
func (s *SessionStore) AudioSource(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.audio[id]
	return url, ok
}

// Captions returns the session's parsed caption cues. The slice is shared and
// must not be mutated by callers; cues are immutable after parsing.
func (s *SessionStore) Captions(id string) ([]models.Cue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cues, ok := s.cues[id]
	return cues, ok
}

// ImageSource returns the session's thumbnail source URL. The second return
// distinguishes an unknown session from a known session without a thumbnail.
func (s *SessionStore) ImageSource(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.image[id]
	return url, ok
}

// LastAccess reports a session's last-access timestamp.
func (s *SessionStore) LastAccess(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.lastAccess[id]
	return ts, ok
}

// Prune removes every session idle strictly longer than the expiry window,
// deleting it from all sub-maps under one lock so concurrent readers see
// either the full record or a clean miss. Returns the removed ids.
func (s *SessionStore) Prune(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, ts := range s.lastAccess {
		if now.Sub(ts) > s.expire {
			delete(s.audio, id)
			delete(s.cues, id)
			delete(s.image, id)
			delete(s.lastAccess, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.lastAccess)
}
