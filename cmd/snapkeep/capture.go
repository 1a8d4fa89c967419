package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/logic/capture"
	"github.com/cjeanneret/snapkeep/internal/photo"
	"github.com/cjeanneret/snapkeep/internal/storage"
)

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Take photos, store them and print the saved list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			if interval < 0 {
				return fmt.Errorf("interval must not be negative, got %s", interval)
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					debug.Errorf("closing hardware failed: %v", err)
				}
			}()

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			res, err := capture.NewSequence(a.service).RunBurst(ctx, capture.BurstParams{
				Count:    count,
				Interval: interval,
				OnShot: func(n int, _ photo.Record, err error) {
					if err != nil {
						fmt.Fprintf(errOut, "photo %d/%d failed: %v\n", n, count, err)
					}
				},
			})
			if err != nil {
				fmt.Fprintf(errOut, "capture interrupted: %v\n", err)
			}
			printGallery(ctx, out, a.files, a.service.Photos(), time.Now())
			fmt.Fprintf(out, "%d saved, %d failed\n", len(res.Saved), res.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of photos to take")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "pause between two photos")
	return cmd
}

type statter interface {
	Stat(ctx context.Context, dir storage.Directory, path string) (os.FileInfo, error)
}

// printGallery writes one line per saved photo, newest first.
func printGallery(ctx context.Context, w io.Writer, files statter, photos []photo.Record, now time.Time) {
	for _, rec := range photos {
		size := "?"
		if fi, err := files.Stat(ctx, storage.DirData, rec.StoredName); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		age := "unknown"
		if t, ok := rec.CapturedAt(); ok {
			age = humanize.RelTime(t, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.StoredName, size, age)
	}
}
