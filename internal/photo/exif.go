package photo

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"github.com/cjeanneret/snapkeep/internal/debug"
)

func init() {
	// Nikon and Canon makernotes.
	exif.RegisterParsers(mknote.All...)
}

// logExif prints camera model and shot time when the payload carries EXIF.
// Synthetic frames and webcam grabs usually don't; that is not an error.
func logExif(data []byte) {
	if !debug.IsEnabled(debug.LevelVerbose) {
		return
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		debug.Verbose("No EXIF metadata (%v)", err)
		return
	}

	var model string
	if tag, err := x.Get(exif.Model); err == nil {
		model, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Make); err == nil {
		if mk, err := tag.StringVal(); err == nil && !strings.HasPrefix(model, mk) {
			model = strings.TrimSpace(mk + " " + model)
		}
	}
	if taken, err := x.DateTime(); err == nil {
		debug.Verbose("EXIF: %s, taken %s", model, taken.Format("2006-01-02 15:04:05"))
		return
	}
	debug.Verbose("EXIF: %s", model)
}
