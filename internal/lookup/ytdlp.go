package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"audio-proxy/internal/models"
)

// ErrNoResult means the lookup ran but found nothing playable for the query.
// Any other error is a transient upstream failure and worth a client retry.
var ErrNoResult = errors.New("no playable result for query")

// Client resolves a free-text song query against the external lookup service.
type Client interface {
	Search(ctx context.Context, query string) (*models.ResolvedEntry, error)
}

// clientFallbacks is the ordered list of extractor configurations tried in
// sequence, short-circuiting on the first success. The android client tends
// to return longer-lived media URLs; plain web is the safety net.
var clientFallbacks = []string{
	"youtube:player_client=android,web",
	"youtube:player_client=web",
}

// YTDLP shells out to the yt-dlp binary and parses its single-JSON output.
type YTDLP struct {
	binary    string
	timeout   time.Duration
	languages []string // caption language preference, first match wins
}

func NewYTDLP(binary string, timeout time.Duration, languages []string) *YTDLP {
	return &YTDLP{
		binary:    binary,
		timeout:   timeout,
		languages: languages,
	}
}

// trackInfo is one caption track variant within a language.
type trackInfo struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

// searchInfo is the subset of yt-dlp -J output the proxy consumes.
type searchInfo struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Artist            string                 `json:"artist"`
	Channel           string                 `json:"channel"`
	Uploader          string                 `json:"uploader"`
	Duration          float64                `json:"duration"`
	URL               string                 `json:"url"`
	Thumbnail         string                 `json:"thumbnail"`
	Subtitles         map[string][]trackInfo `json:"subtitles"`
	AutomaticCaptions map[string][]trackInfo `json:"automatic_captions"`
	Entries           []json.RawMessage      `json:"entries"`
}

// Search resolves query to a playable entry, trying each extractor
// configuration in order.
func (y *YTDLP) Search(ctx context.Context, query string) (*models.ResolvedEntry, error) {
	var lastErr error
	for _, extractorArgs := range clientFallbacks {
		entry, err := y.searchWith(ctx, query, extractorArgs)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, ErrNoResult) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("lookup attempt failed, trying next client", "extractor_args", extractorArgs, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

func (y *YTDLP) searchWith(ctx context.Context, query, extractorArgs string) (*models.ResolvedEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binary,
		"-J",
		"--no-warnings",
		"--no-playlist",
		"--default-search", "ytsearch1",
		"--format", "bestaudio*/bestaudio/best",
		"--extractor-args", extractorArgs,
		"--socket-timeout", "5",
		query,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("lookup timed out after %v", y.timeout)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w (stderr: %s)", err, tail(stderr.String(), 200))
	}

	return y.parseResult(stdout.Bytes())
}

func (y *YTDLP) parseResult(raw []byte) (*models.ResolvedEntry, error) {
	var info searchInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	// A search result wraps the entry in an "entries" list; a direct link
	// does not.
	if len(info.Entries) > 0 {
		var first searchInfo
		if err := json.Unmarshal(info.Entries[0], &first); err != nil {
			return nil, fmt.Errorf("failed to parse search entry: %w", err)
		}
		info = first
	}

	if info.URL == "" {
		return nil, ErrNoResult
	}

	return &models.ResolvedEntry{
		Title:        info.Title,
		Artist:       pickArtist(info),
		Duration:     int(info.Duration),
		SourceURL:    info.URL,
		ThumbnailURL: info.Thumbnail,
		CaptionURL:   pickCaptionTrack(info, y.languages),
	}, nil
}

// pickArtist applies the best-to-worst metadata fallback chain.
func pickArtist(info searchInfo) string {
	if strings.TrimSpace(info.Artist) != "" {
		return info.Artist
	}
	if strings.TrimSpace(info.Channel) != "" {
		return info.Channel
	}
	if strings.TrimSpace(info.Uploader) != "" {
		return info.Uploader
	}
	return "Unknown Artist"
}

// pickCaptionTrack walks the language preference list over manual subtitles
// first, then automatic captions. Within a language a vtt track is preferred;
// otherwise the first track wins. Returns "" when nothing matches.
func pickCaptionTrack(info searchInfo, languages []string) string {
	for _, trackMap := range []map[string][]trackInfo{info.Subtitles, info.AutomaticCaptions} {
		if len(trackMap) == 0 {
			continue
		}
		for _, lang := range languages {
			tracks, ok := trackMap[lang]
			if !ok || len(tracks) == 0 {
				continue
			}
			for _, track := range tracks {
				if track.Ext == "vtt" && track.URL != "" {
					return track.URL
				}
			}
			if tracks[0].URL != "" {
				return tracks[0].URL
			}
		}
	}
	return ""
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
