package imageproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Processor normalizes remote thumbnails into square JPEGs. Every call
// re-fetches and re-transforms; nothing is cached after the transform.
type Processor struct {
	client  *http.Client
	size    int
	quality int
}

func NewProcessor(fetchTimeout time.Duration, size, quality int) *Processor {
	return &Processor{
		client:  &http.Client{Timeout: fetchTimeout},
		size:    size,
		quality: quality,
	}
}

// Render fetches the image at url and returns it as a size×size JPEG:
// decoded, flattened to opaque RGB, center-cropped square and resampled.
func (p *Processor) Render(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	src, _, err := image.Decode(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := p.transform(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// transform flattens alpha/palette sources onto plain RGB, crops the centered
// square and resizes it to the target dimension.
func (p *Processor) transform(src image.Image) image.Image {
	bounds := src.Bounds()

	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	x0 := bounds.Min.X + (bounds.Dx()-side)/2
	y0 := bounds.Min.Y + (bounds.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	// White backing so translucent pixels flatten instead of going black.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)

	return dst
}
