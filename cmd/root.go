package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "siteworks",
	Short: "Property siting toolkit",
	Long:  "Imports property boundaries, manages regulatory exclusion zones, computes buildable area, clips contour lines, and hands elevation-grid jobs to the DEM worker.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
