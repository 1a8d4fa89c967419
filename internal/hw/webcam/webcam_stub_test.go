//go:build !webcam

package webcam

import (
	"context"
	"errors"
	"testing"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
)

func TestOpen_NotBuilt(t *testing.T) {
	if Supported {
		t.Fatal("stub build should not report support")
	}
	if _, err := Open(0, 640, 480, blob.NewRegistry()); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("err = %v, want ErrNotBuilt", err)
	}
}

func TestCamera_ImplementsProvider(t *testing.T) {
	var _ camera.Provider = &Camera{}
}

func TestCamera_GetPhotoChecksOptionsFirst(t *testing.T) {
	c := &Camera{}
	_, err := c.GetPhoto(context.Background(), camera.Options{ResultKind: camera.ResultBase64, Source: camera.SourceCamera, Quality: 90})
	if !errors.Is(err, camera.ErrUnsupportedResultKind) {
		t.Errorf("err = %v, want ErrUnsupportedResultKind", err)
	}
	_, err = c.GetPhoto(context.Background(), camera.Options{ResultKind: camera.ResultURI, Source: camera.SourceCamera, Quality: 90})
	if !errors.Is(err, ErrNotBuilt) {
		t.Errorf("err = %v, want ErrNotBuilt", err)
	}
}
