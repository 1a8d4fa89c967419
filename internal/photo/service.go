// Package photo captures photos, persists them to the data directory and
// keeps the in-memory list of saved photos, newest first.
package photo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/fetch"
	"github.com/cjeanneret/snapkeep/internal/hw/camera"
	"github.com/cjeanneret/snapkeep/internal/storage"
)

// CaptureOptions is what every capture asks the provider for: a reference
// rather than raw bytes, a fresh shot from the camera, no compression loss.
var CaptureOptions = camera.Options{
	ResultKind: camera.ResultURI,
	Source:     camera.SourceCamera,
	Quality:    100,
}

// Fetcher retrieves the bytes behind a preview reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*fetch.Blob, error)
}

// Storage persists base64 payloads.
type Storage interface {
	WriteFile(ctx context.Context, opts storage.WriteFileOptions) (storage.WriteFileResult, error)
}

// Service runs the capture -> encode -> persist chain and owns the registry.
// Concurrent captures are not serialized: two captures in the same
// millisecond share a stored name, and the order of overlapping
// completions in the registry is whichever finishes last first.
type Service struct {
	camera  camera.Provider
	fetcher Fetcher
	files   Storage
	reader  fetch.FileReader
	now     func() time.Time

	mu     sync.Mutex
	photos []Record
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for stored name generation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. The registry starts empty.
func NewService(cam camera.Provider, f Fetcher, files Storage, opts ...Option) *Service {
	s := &Service{
		camera:  cam,
		fetcher: f,
		files:   files,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureAndStore takes one photo and, once it is saved, puts its record at
// the front of the registry. On any failure the registry is left untouched
// and a *StepError is returned.
func (s *Service) CaptureAndStore(ctx context.Context) (Record, error) {
	debug.Step(1, "Requesting photo from camera")
	shot, err := s.camera.GetPhoto(ctx, CaptureOptions)
	if err == nil && shot == nil {
		err = errors.New("provider returned no photo")
	}
	if err != nil {
		err = &StepError{Step: StepCapture, Err: err}
		debug.Errorf("Adding new photo to gallery failed: %v", err)
		return Record{}, err
	}
	debug.PrintStruct("Captured photo", *shot)

	rec, err := s.SavePicture(ctx, shot)
	if err != nil {
		debug.Errorf("Photo could not be saved, gallery unchanged")
		return Record{}, err
	}

	s.mu.Lock()
	s.photos = append([]Record{rec}, s.photos...)
	n := len(s.photos)
	s.mu.Unlock()

	debug.Live("Gallery now holds %d photos", n)
	return rec, nil
}

// SavePicture encodes shot and writes it to the data directory as
// <epochMillis>.jpeg. The returned record keeps the provider's preview
// reference rather than the written path, so display needs no read-back.
// An existing file with the same name is overwritten.
func (s *Service) SavePicture(ctx context.Context, shot *camera.Photo) (Record, error) {
	debug.Step(2, "Encoding photo")
	data, err := s.ReadAsBase64(ctx, shot)
	if err != nil {
		return Record{}, s.persistError(err)
	}

	name := StoredNameAt(s.now())
	debug.Step(3, "Writing "+name)
	res, err := s.files.WriteFile(ctx, storage.WriteFileOptions{
		Path:      name,
		Data:      data,
		Directory: storage.DirData,
	})
	if err != nil {
		return Record{}, s.persistError(err)
	}

	debug.Saved(name, res.URI)
	return Record{StoredName: name, PreviewReference: shot.PreviewReference}, nil
}

func (s *Service) persistError(err error) error {
	err = &StepError{Step: StepPersist, Err: err}
	debug.Errorf("Saving photo failed: %v", err)
	return err
}

// ReadAsBase64 fetches the bytes behind shot's preview reference and
// returns them as a base64 data URL.
func (s *Service) ReadAsBase64(ctx context.Context, shot *camera.Photo) (string, error) {
	if shot == nil || shot.PreviewReference == "" {
		return "", s.encodeError(errors.New("photo has no preview reference"))
	}

	b, err := s.fetcher.Fetch(ctx, shot.PreviewReference)
	if err != nil {
		return "", s.encodeError(err)
	}
	logExif(b.Data)

	select {
	case res := <-s.reader.ReadAsDataURL(b):
		if res.Err != nil {
			return "", s.encodeError(res.Err)
		}
		return res.DataURL, nil
	case <-ctx.Done():
		return "", s.encodeError(ctx.Err())
	}
}

func (s *Service) encodeError(err error) error {
	err = &StepError{Step: StepEncode, Err: err}
	debug.Errorf("Converting photo to base64 failed: %v", err)
	return err
}

// Photos returns the registry, newest first. The slice is shared, not
// copied; the service never modifies a slice it has handed out because
// every capture builds a new one.
func (s *Service) Photos() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos
}
