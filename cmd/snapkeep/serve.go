package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/web"
)

const defaultWebPort = 8080

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gallery page and capture API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") && cfg.Web.Port > 0 {
				port = cfg.Web.Port
			}
			if port <= 0 || port > 65535 {
				return fmt.Errorf("port must be 1-65535, got %d", port)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			broadcaster := web.NewStatusBroadcaster()
			debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
			defer debug.SetOutput(os.Stdout)

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					debug.Errorf("closing hardware failed: %v", err)
				}
			}()

			debug.Info("Serving on :%d", port)
			srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, a.service, a.files, a.fetcher)
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", defaultWebPort, "HTTP port")
	return cmd
}
