package fetch

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ReadResult is the single value delivered by FileReader.
type ReadResult struct {
	DataURL string
	Err     error
}

// FileReader converts blobs asynchronously. Each read delivers exactly one
// ReadResult and then closes the channel.
type FileReader struct{}

// ReadAsDataURL starts encoding b as "data:<mime>;base64,<payload>".
func (FileReader) ReadAsDataURL(b *Blob) <-chan ReadResult {
	done := make(chan ReadResult, 1)
	go func() {
		defer close(done)
		if b == nil {
			done <- ReadResult{Err: errors.New("fetch: nil blob")}
			return
		}
		mime := b.Type
		if mime == "" {
			mime = "application/octet-stream"
		}
		var sb strings.Builder
		sb.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(b.Data)))
		sb.WriteString("data:")
		sb.WriteString(mime)
		sb.WriteString(";base64,")
		sb.WriteString(base64.StdEncoding.EncodeToString(b.Data))
		done <- ReadResult{DataURL: sb.String()}
	}()
	return done
}
