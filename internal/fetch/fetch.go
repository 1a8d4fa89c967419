// Package fetch retrieves the bytes behind a preview reference and turns
// them into base64 data URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cjeanneret/snapkeep/internal/blob"
	"github.com/cjeanneret/snapkeep/internal/debug"
)

// MaxBlobBytes caps a single retrieval.
const MaxBlobBytes = 64 << 20

var (
	ErrNotFound          = errors.New("fetch: reference not found")
	ErrUnsupportedScheme = errors.New("fetch: unsupported reference scheme")
	ErrTooLarge          = errors.New("fetch: payload too large")
)

// Blob is a fetched payload.
type Blob struct {
	Data []byte
	Type string // MIME type
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int { return len(b.Data) }

// Fetcher resolves blob://, file:// and http(s):// references.
type Fetcher struct {
	blobs  *blob.Registry
	client *http.Client
}

// New creates a Fetcher. blobs may be nil when no provider issues blob
// references; client may be nil to use NewHTTPClient(DefaultTimeout).
func New(blobs *blob.Registry, client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Fetcher{blobs: blobs, client: client}
}

// Fetch retrieves the bytes behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse reference %q: %w", ref, err)
	}

	var b *Blob
	switch u.Scheme {
	case "blob":
		b, err = f.fetchBlob(ref)
	case "file":
		b, err = f.fetchFile(u)
	case "http", "https":
		b, err = f.fetchHTTP(ctx, ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	if b.Type == "" {
		b.Type = http.DetectContentType(b.Data)
	}
	debug.Verbose("Fetched %s: %d bytes (%s)", ref, b.Size(), b.Type)
	return b, nil
}

func (f *Fetcher) fetchBlob(ref string) (*Blob, error) {
	if f.blobs == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	item, ok := f.blobs.Get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return &Blob{Data: item.Data, Type: item.Type}, nil
}

func (f *Fetcher) fetchFile(u *url.URL) (*Blob, error) {
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: remote file host %q", ErrUnsupportedScheme, u.Host)
	}
	path := filepath.FromSlash(u.Path)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("fetch: open %s: %w", path, err)
	}
	defer file.Close()

	data, err := readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", path, err)
	}
	return &Blob{Data: data}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: GET %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: GET %s: unexpected status %s", ref, resp.Status)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return &Blob{Data: data, Type: ct}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBlobBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBlobBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
