package camera

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/snapkeep/internal/debug"
)

// Tethered drives a DSLR through its Shutter and picks the resulting JPEG
// up from the spool directory where tether software (gphoto2
// --capture-tethered, vendor tools, card readers) downloads each shot.
type Tethered struct {
	shutter  Shutter
	spoolDir string
	poll     time.Duration
	timeout  time.Duration
}

// NewTethered creates a tethered provider. poll is the spool scan interval,
// timeout bounds the wait for a new file after the shutter fired.
func NewTethered(s Shutter, spoolDir string, poll, timeout time.Duration) *Tethered {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Tethered{
		shutter:  s,
		spoolDir: spoolDir,
		poll:     poll,
		timeout:  timeout,
	}
}

// GetPhoto fires the shutter and returns a file:// reference to the new shot.
func (t *Tethered) GetPhoto(ctx context.Context, opts Options) (*Photo, error) {
	if err := RequireURIFromCamera(opts); err != nil {
		return nil, err
	}

	before, err := t.scan()
	if err != nil {
		return nil, err
	}
	debug.Verbose("Tethered: %d files already in %s", len(before), t.spoolDir)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if err := t.shutter.Shoot(); err != nil {
		return nil, fmt.Errorf("shoot: %w", err)
	}

	path, err := t.waitForNew(ctx, before)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	ref := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	debug.Shot("tethered", ref)
	return &Photo{PreviewReference: ref, Path: abs, Format: "jpeg"}, nil
}

// waitForNew polls the spool directory until a JPEG not present in before
// shows up with the same non-zero size on two consecutive scans.
func (t *Tethered) waitForNew(ctx context.Context, before map[string]int64) (string, error) {
	var deadline <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	candidate, lastSize := "", int64(-1)
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		case <-deadline:
			return "", fmt.Errorf("%w after %v in %s", ErrTimeout, t.timeout, t.spoolDir)
		case <-ticker.C:
		}

		now, err := t.scan()
		if err != nil {
			return "", err
		}
		name, size := newest(now, before)
		if name == "" {
			continue
		}
		if name == candidate && size == lastSize && size > 0 {
			return filepath.Join(t.spoolDir, name), nil
		}
		candidate, lastSize = name, size
	}
}

func (t *Tethered) scan() (map[string]int64, error) {
	entries, err := os.ReadDir(t.spoolDir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("read spool dir: %w", err)
	}
	files := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isJPEG(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		files[e.Name()] = info.Size()
	}
	return files, nil
}

// newest returns the lexically greatest name in now that is not in before.
// Tether tools name shots with increasing counters or timestamps.
func newest(now, before map[string]int64) (string, int64) {
	var name string
	var size int64
	for n, s := range now {
		if _, seen := before[n]; seen {
			continue
		}
		if n > name {
			name, size = n, s
		}
	}
	return name, size
}

func isJPEG(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
