package captions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"audio-proxy/internal/models"
)

// cuePattern matches the timestamp line of a cue block: "MM:SS.mmm --> ...".
var cuePattern = regexp.MustCompile(`(\d+):(\d+)\.(\d+)\s+-->`)

// Parse extracts ordered {offset, text} cues from a timestamp-cue payload.
// Each cue is a timestamp line followed by a text line; text lines without a
// preceding timestamp and timestamps without text are dropped. Offsets come
// out non-decreasing for a well-formed payload since blocks are sequential.
func Parse(text string) []models.Cue {
	var cues []models.Cue
	offset := -1.0

	for _, line := range strings.Split(text, "\n") {
		if m := cuePattern.FindStringSubmatch(line); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])
			millis, _ := strconv.Atoi(m[3])
			offset = float64(minutes)*60 + float64(seconds) + float64(millis)/1000.0
			continue
		}
		if trimmed := strings.TrimSpace(line); offset >= 0 && trimmed != "" {
			cues = append(cues, models.Cue{Offset: offset, Text: trimmed})
			offset = -1
		}
	}

	return cues
}

// Fetcher retrieves and parses caption tracks over HTTP with a bounded
// timeout.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the caption track at url and parses it into cues.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]models.Cue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build caption request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption body: %w", err)
	}

	return Parse(string(body)), nil
}
