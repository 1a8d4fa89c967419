package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/debug"
)

// TestPattern is a camera-less provider: every capture renders a gradient
// frame, JPEG-encodes it and registers it as a transient blob.
type TestPattern struct {
	blobs  *blob.Registry
	width  int
	height int

	mu    sync.Mutex
	shots int
}

// NewTestPattern creates a synthetic provider producing width x height frames.
func NewTestPattern(blobs *blob.Registry, width, height int) *TestPattern {
	return &TestPattern{blobs: blobs, width: width, height: height}
}

func (p *TestPattern) GetPhoto(ctx context.Context, opts Options) (*Photo, error) {
	if err := RequireURIFromCamera(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if p.width <= 0 || p.height <= 0 {
		return nil, fmt.Errorf("test pattern: invalid frame size %dx%d", p.width, p.height)
	}

	p.mu.Lock()
	p.shots++
	shot := p.shots
	p.mu.Unlock()

	quality := opts.Quality
	if quality < 1 {
		quality = 1
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, p.render(shot), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode test pattern: %w", err)
	}

	ref := p.blobs.Put(buf.Bytes(), "image/jpeg")
	debug.Shot("test pattern", ref)
	return &Photo{PreviewReference: ref, Format: "jpeg"}, nil
}

// render draws a diagonal gradient whose hue shifts with every shot.
func (p *TestPattern) render(shot int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	offset := shot * 37
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x*255/p.width + offset) % 256),
				G: uint8((y*255/p.height + offset*2) % 256),
				B: uint8(((x + y) * 255 / (p.width + p.height)) % 256),
				A: 255,
			})
		}
	}
	return img
}
