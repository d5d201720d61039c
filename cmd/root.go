package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "recap-cli",
	Short: "Grounded summaries for a trading channel's recent videos",
	Long:  "Finds a channel's recent videos, acquires transcripts through a fallback cascade, summarizes them with every number checked against the transcript, and writes a static site.",
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
