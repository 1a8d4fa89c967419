package camera

import (
	"context"
	"errors"
	"fmt"
)

// ResultKind selects how a captured photo is handed back.
type ResultKind string

const (
	ResultURI     ResultKind = "uri"     // reference to the bytes, not the bytes themselves
	ResultBase64  ResultKind = "base64"  // raw base64 payload
	ResultDataURL ResultKind = "dataUrl" // data:image/jpeg;base64,...
)

// Source selects where the photo comes from.
type Source string

const (
	SourceCamera Source = "camera" // take a new photo
	SourcePhotos Source = "photos" // pick from the gallery
	SourcePrompt Source = "prompt" // let the user choose
)

var (
	ErrPermissionDenied      = errors.New("camera: permission denied")
	ErrCancelled             = errors.New("camera: capture cancelled")
	ErrTimeout               = errors.New("camera: timed out waiting for photo")
	ErrUnsupportedSource     = errors.New("camera: unsupported source")
	ErrUnsupportedResultKind = errors.New("camera: unsupported result kind")
)

// Options is the capture request sent to a Provider.
type Options struct {
	ResultKind ResultKind `json:"result_kind"`
	Source     Source     `json:"source"`
	Quality    int        `json:"quality"` // 0..100
}

// Validate checks the request independently of any provider.
func (o Options) Validate() error {
	switch o.ResultKind {
	case ResultURI, ResultBase64, ResultDataURL:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedResultKind, o.ResultKind)
	}
	switch o.Source {
	case SourceCamera, SourcePhotos, SourcePrompt:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, o.Source)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("camera: quality must be between 0 and 100, got %d", o.Quality)
	}
	return nil
}

// Photo is what a Provider returns.
type Photo struct {
	// PreviewReference is a transient, provider-owned reference that can be
	// fetched for immediate display. It is not valid after a restart.
	PreviewReference string
	// Path is the provider-side location of the original, if any.
	Path   string
	Format string // e.g. "jpeg"
}

// Provider captures photos. Implementations decide how (tethered DSLR,
// webcam, synthetic frames).
type Provider interface {
	GetPhoto(ctx context.Context, opts Options) (*Photo, error)
}

// Shutter is the low-level trigger of a physical camera,
// regardless of how it's controlled (GPIO, USB, network protocol, etc.).
type Shutter interface {
	// Shoot triggers a single photo capture.
	Shoot() error
}

// RequireURIFromCamera accepts only requests a camera-only provider can serve:
// a new photo from the camera, handed back as a reference.
func RequireURIFromCamera(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.Source != SourceCamera {
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, opts.Source)
	}
	if opts.ResultKind != ResultURI {
		return fmt.Errorf("%w: %q", ErrUnsupportedResultKind, opts.ResultKind)
	}
	return nil
}
