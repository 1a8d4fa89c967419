package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/snapkeep/internal/config"
	"github.com/cjeanneret/snapkeep/internal/debug"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	debugLevel int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "snapkeep",
		Short:         "Take photos and keep them in app-private storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional env file with SNAPKEEP_* overrides")
	cmd.PersistentFlags().IntVar(&opts.debugLevel, "debug", 0, "debug level 0-4, overrides the config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newCaptureCmd(opts),
		newFilesCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file, applies env overrides and the --debug
// flag, then initializes the debug logger.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	if err := config.ValidateConfigPath(opts.configPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(cfg, opts.envFile); err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("debug"); f != nil && f.Changed {
		cfg.Defaults.DebugLevel = opts.debugLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", opts.configPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Data dir", cfg.Storage.DataDir)
	return cfg, nil
}
