//go:build webcam

// Package webcam captures single frames from a USB/V4L camera through OpenCV.
// Build with -tags webcam; requires OpenCV 4 and cgo.
package webcam

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
)

// Supported reports whether this binary was built with webcam support.
const Supported = true

// Camera grabs one frame per GetPhoto and registers it as a transient blob.
type Camera struct {
	mu     sync.Mutex
	dev    *gocv.VideoCapture
	blobs  *blob.Registry
	device int
}

// Open opens the capture device and requests the given frame size.
func Open(device, width, height int, blobs *blob.Registry) (*Camera, error) {
	dev, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open webcam %d: %w", device, err)
	}
	if width > 0 && height > 0 {
		dev.Set(gocv.VideoCaptureFrameWidth, float64(width))
		dev.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	debug.Info("Webcam %d opened", device)
	return &Camera{dev: dev, blobs: blobs, device: device}, nil
}

// GetPhoto reads a frame and JPEG-encodes it at opts.Quality.
func (c *Camera) GetPhoto(ctx context.Context, opts camera.Options) (*camera.Photo, error) {
	if err := camera.RequireURIFromCamera(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", camera.ErrCancelled, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frame := gocv.NewMat()
	defer frame.Close()
	if ok := c.dev.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("webcam %d: no frame", c.device)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), opts.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory freed by buf.Close.
	data := append([]byte(nil), buf.GetBytes()...)
	ref := c.blobs.Put(data, "image/jpeg")
	debug.Shot("webcam", ref)
	return &camera.Photo{PreviewReference: ref, Format: "jpeg"}, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.Close()
}
