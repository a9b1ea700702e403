package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTimeout means the transcoder exceeded its wall-clock cap and was
	// killed.
	ErrTimeout = errors.New("transcode timed out")

	// ErrConversion means the transcoder exited non-zero.
	ErrConversion = errors.New("transcode failed")
)

// CheckInstallation verifies if FFmpeg is installed and accessible
func CheckInstallation(binary string) error {
	cmd := exec.Command(binary, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg is not installed or not in PATH: %w", err)
	}
	return nil
}

// Transcoder converts an arbitrary-format audio source into a buffered MP3
// stream at a fixed bitrate, sample rate and channel count.
type Transcoder struct {
	Binary     string
	Bitrate    string // e.g. "64k"
	SampleRate int
	Channels   int
	Timeout    time.Duration // hard wall-clock cap on the subprocess
}

// Transcode runs ffmpeg on the source URL and returns the complete MP3
// payload. The subprocess is killed when the caller's context is canceled or
// the wall-clock timeout elapses, so a disconnected client never leaks a
// converter.
func (t *Transcoder) Transcode(ctx context.Context, sourceURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Binary, t.args(sourceURL)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %v", ErrTimeout, t.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v (stderr: %s)", ErrConversion, err, stderrTail(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func (t *Transcoder) args(sourceURL string) []string {
	return []string{
		"-i", sourceURL,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", t.Bitrate,
		"-ac", strconv.Itoa(t.Channels),
		"-ar", strconv.Itoa(t.SampleRate),
		"-f", "mp3",
		"pipe:1",
	}
}

// stderrTail keeps only the end of ffmpeg's chatter, which is where the
// actual failure reason lands.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	const max = 300
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
