package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/svlabel/internal/config"
	"github.com/cjeanneret/svlabel/internal/debug"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "svlabel",
	Short: "Street-level accessibility labeling geometry and services",
	Long: `svlabel turns labels placed on street-level panoramas into map positions.

Examples:
  svlabel fov
  svlabel sweep --zoom 2 --overlap 30 --pitch-range 60
  svlabel project --x 400 --y 300 --heading 120 --pitch -10 --zoom 1
  svlabel estimate --x 400 --y 300 --heading 120 --zoom 1 --pano-lat 47.6062 --pano-lng -122.3321 --sv-image-y 3900
  svlabel labels list --pano PANO_ID
  svlabel tasks summary
  svlabel serve --port 8980`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateConfigPath(cfgPath); err != nil {
			return fmt.Errorf("invalid config path: %w", err)
		}
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config failed: %w", err)
		}
		cfg = loaded

		debug.Init(cfg.Defaults.DebugLevel)
		debug.Section("Initialization")
		debug.Value("Config path", cfgPath)
		debug.Value("Debug level", cfg.Defaults.DebugLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
}
