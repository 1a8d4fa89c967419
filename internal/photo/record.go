package photo

import (
	"strconv"
	"strings"
	"time"
)

// Extension is appended to the capture timestamp to form a stored name.
const Extension = ".jpeg"

// Record is one saved photo as tracked by the registry.
type Record struct {
	// StoredName is the file name under the data directory: <epochMillis>.jpeg.
	StoredName string `json:"stored_name"`
	// PreviewReference is the provider's transient reference, borrowed for
	// display. It is not valid after a restart.
	PreviewReference string `json:"preview_reference,omitempty"`
}

// StoredNameAt returns the stored name for a capture at t.
func StoredNameAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10) + Extension
}

// CapturedAt recovers the capture time encoded in StoredName.
func (r Record) CapturedAt() (time.Time, bool) {
	ms, ok := strings.CutSuffix(r.StoredName, Extension)
	if !ok {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(n), true
}
