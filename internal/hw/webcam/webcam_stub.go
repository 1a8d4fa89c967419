//go:build !webcam

package webcam

import (
	"context"
	"errors"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
)

// Supported reports whether this binary was built with webcam support.
const Supported = false

// ErrNotBuilt is returned by Open in binaries built without -tags webcam.
var ErrNotBuilt = errors.New("webcam support not built in (rebuild with -tags webcam)")

// Camera is unavailable in this build.
type Camera struct{}

func Open(device, width, height int, blobs *blob.Registry) (*Camera, error) {
	return nil, ErrNotBuilt
}

func (c *Camera) GetPhoto(ctx context.Context, opts camera.Options) (*camera.Photo, error) {
	if err := camera.RequireURIFromCamera(opts); err != nil {
		return nil, err
	}
	return nil, ErrNotBuilt
}

func (c *Camera) Close() error { return nil }
