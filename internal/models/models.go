package models

import "time"

// Cue is a single timestamped caption/lyric line.
type Cue struct {
	Offset float64 `json:"time"` // seconds from start of track
	Text   string  `json:"text"`
}

// ResolvedEntry holds the playable fields returned by the lookup service.
type ResolvedEntry struct {
	Title        string
	Artist       string
	Duration     int // seconds
	SourceURL    string
	ThumbnailURL string
	CaptionURL   string // empty when the track has no usable caption track
}

// ResolvedQuery is a resolution-cache value: a lookup result plus the cues
// parsed from its caption track. Immutable once inserted; replaced wholesale
// on re-resolution after expiry.
type ResolvedQuery struct {
	Key        string
	Entry      ResolvedEntry
	Cues       []Cue
	ResolvedAt time.Time
}

// Session binds a resolved song's audio/caption/image sources under an opaque
// id for subsequent proxy access.
type Session struct {
	ID           string
	AudioSource  string
	ThumbnailURL string
	Cues         []Cue
	LastAccess   time.Time
}
