// Package storage persists named payloads into app-private directories.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cjeanneret/snapkeep/internal/debug"
)

// Directory names an app-private storage scope.
type Directory string

// DirData holds saved photos.
const DirData Directory = "DATA"

var (
	ErrUnknownDirectory = errors.New("storage: unknown directory")
	ErrInvalidPath      = errors.New("storage: invalid path")
	ErrInvalidData      = errors.New("storage: data is not valid base64")
)

// WriteFileOptions describes one write.
type WriteFileOptions struct {
	Path      string    // relative to the directory root
	Data      string    // base64 payload or base64 data URL
	Directory Directory // storage scope
	Recursive bool      // create missing parent directories
}

// WriteFileResult reports where the payload landed.
type WriteFileResult struct {
	URI string
}

// Filesystem maps each Directory to a root on the local disk.
type Filesystem struct {
	roots map[Directory]string
}

// New creates the directory roots if needed.
func New(roots map[Directory]string) (*Filesystem, error) {
	abs := make(map[Directory]string, len(roots))
	for dir, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			return nil, fmt.Errorf("storage: root for %s is required", dir)
		}
		p, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %s root: %w", dir, err)
		}
		abs[dir] = p
	}
	return &Filesystem{roots: abs}, nil
}

// Root returns the absolute root of dir.
func (f *Filesystem) Root(dir Directory) (string, bool) {
	root, ok := f.roots[dir]
	return root, ok
}

// WriteFile decodes opts.Data and writes it atomically, replacing any
// existing file at the same path.
func (f *Filesystem) WriteFile(ctx context.Context, opts WriteFileOptions) (WriteFileResult, error) {
	var zero WriteFileResult
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	dst, err := f.resolve(opts.Directory, opts.Path)
	if err != nil {
		return zero, err
	}
	data, err := decodePayload(opts.Data)
	if err != nil {
		return zero, err
	}

	parent := filepath.Dir(dst)
	if opts.Recursive {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return zero, err
		}
	}

	tmp, err := os.CreateTemp(parent, ".write-*")
	if err != nil {
		return zero, fmt.Errorf("storage: write %s: %w", opts.Path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, err
	}

	debug.Live("Wrote %s/%s (%d bytes)", opts.Directory, opts.Path, len(data))
	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String()
	return WriteFileResult{URI: uri}, nil
}

// Open returns a reader for a stored file.
func (f *Filesystem) Open(ctx context.Context, dir Directory, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.resolve(dir, path)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Stat describes a stored file.
func (f *Filesystem) Stat(ctx context.Context, dir Directory, path string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.resolve(dir, path)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadDir lists the regular files at the top of dir, sorted by name.
func (f *Filesystem) ReadDir(ctx context.Context, dir Directory) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, ok := f.roots[dir]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirectory, dir)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".write-") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *Filesystem) resolve(dir Directory, path string) (string, error) {
	root, ok := f.roots[dir]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDirectory, dir)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.HasPrefix(path, "/") || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q must be relative", ErrInvalidPath, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidPath, path, dir)
	}
	return filepath.Join(root, clean), nil
}

// decodePayload accepts raw base64 or a "data:<mime>;base64," URL.
func decodePayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := SplitDataURL(s)
		if !ok {
			return nil, fmt.Errorf("%w: data URL is not base64", ErrInvalidData)
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return data, nil
}

// SplitDataURL separates a base64 data URL into MIME type and payload.
func SplitDataURL(s string) (mime, payload string, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", "", false
	}
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, found = strings.CutSuffix(header, ";base64")
	if !found {
		return "", "", false
	}
	return mime, payload, true
}
