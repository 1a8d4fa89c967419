package capture

import (
	"context"
	"time"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/photo"
)

// Gallery takes and stores one photo per call.
type Gallery interface {
	CaptureAndStore(ctx context.Context) (photo.Record, error)
}

// Sequence contains high-level logic for taking several photos in a row
// (bursts, timelapse).
type Sequence struct {
	gallery Gallery
}

func NewSequence(g Gallery) *Sequence {
	return &Sequence{gallery: g}
}

// BurstParams defines a burst of photos.
type BurstParams struct {
	Count    int           // photos to take
	Interval time.Duration // pause between two photos

	// OnShot, if set, is called after every attempt with its 1-based index.
	OnShot func(n int, rec photo.Record, err error)
}

// BurstResult summarizes a burst.
type BurstResult struct {
	Saved  []photo.Record // in capture order
	Failed int
}

// RunBurst takes p.Count photos, p.Interval apart. A failed photo is
// counted and the burst goes on. If ctx is cancelled, the photos not yet
// taken are counted as failed and ctx.Err() is returned.
func (s *Sequence) RunBurst(ctx context.Context, p BurstParams) (BurstResult, error) {
	var res BurstResult
	debug.Section("Starting Burst")
	debug.Value("Count", p.Count)
	debug.Value("Interval", p.Interval)

	for n := 1; n <= p.Count; n++ {
		if n > 1 && p.Interval > 0 {
			t := time.NewTimer(p.Interval)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
		if err := ctx.Err(); err != nil {
			res.Failed += p.Count - n + 1
			return res, err
		}

		debug.Live("Photo %d/%d", n, p.Count)
		rec, err := s.gallery.CaptureAndStore(ctx)
		if err != nil {
			res.Failed++
		} else {
			res.Saved = append(res.Saved, rec)
		}
		if p.OnShot != nil {
			p.OnShot(n, rec, err)
		}
	}

	debug.Section("Burst Complete")
	return res, nil
}
