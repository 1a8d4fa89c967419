package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/snapkeep/internal/photo"
	"github.com/cjeanneret/snapkeep/internal/storage"
)

func newFilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List photos stored in the data directory, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			files, err := storage.New(map[storage.Directory]string{storage.DirData: cfg.Storage.DataDir})
			if err != nil {
				return err
			}

			stored, err := storedPhotos(cmd.Context(), files)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printGallery(cmd.Context(), out, files, stored, time.Now())
			fmt.Fprintf(out, "%d stored\n", len(stored))
			return nil
		},
	}
}

type lister interface {
	ReadDir(ctx context.Context, dir storage.Directory) ([]string, error)
}

// storedPhotos reads the saved photo names back from DATA, newest first.
// Files that do not carry the photo extension are skipped.
func storedPhotos(ctx context.Context, files lister) ([]photo.Record, error) {
	names, err := files.ReadDir(ctx, storage.DirData)
	if err != nil {
		return nil, err
	}
	recs := make([]photo.Record, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		if path.Ext(names[i]) == photo.Extension {
			recs = append(recs, photo.Record{StoredName: names[i]})
		}
	}
	return recs, nil
}
