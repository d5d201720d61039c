package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/cost"
	"github.com/sells-group/recap-cli/internal/monitoring"
	"github.com/sells-group/recap-cli/internal/pipeline"
	"github.com/sells-group/recap-cli/internal/site"
)

var (
	buildChannel   string
	buildPlaylist  string
	buildMaxVideos int
	buildOutDir    string
)

// runRecord is written to run.json next to the site index.
type runRecord struct {
	pipeline.Report
	Summarizer string     `json:"summarizer"`
	Usage      cost.Usage `json:"llm_usage"`
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Summarize the channel's recent videos and write the site",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if buildChannel != "" {
			cfg.Channel.ID = buildChannel
		}
		if cmd.Flags().Changed("playlist") {
			cfg.Channel.Playlist = buildPlaylist
		}
		if buildMaxVideos > 0 {
			cfg.Channel.MaxVideos = buildMaxVideos
		}
		if buildOutDir != "" {
			cfg.Output.Dir = buildOutDir
		}

		env, err := initApp(ctx, cfg, "build")
		if err != nil {
			return err
		}

		videos, err := buildEnumerator(cfg, env.Fetcher).Recent(ctx, cfg.Channel.ID, cfg.Channel.Playlist)
		if err != nil {
			return eris.Wrap(err, "build: enumerate videos")
		}
		zap.L().Info("build: videos selected",
			zap.String("run_id", env.RunID),
			zap.Int("count", len(videos)),
		)

		results, err := env.Pipeline.RunBatch(ctx, videos)
		if err != nil {
			return eris.Wrap(err, "build: process videos")
		}

		zap.L().Info("build: stage breakers",
			zap.String("run_id", env.RunID),
			zap.Any("states", breakerStates(env.Breakers)),
		)

		report := pipeline.NewReport(env.RunID, results)
		usage := env.Tracker.Snapshot()
		record := runRecord{Report: report, Summarizer: env.Summarizer.Name(), Usage: usage}
		if err := site.NewWriter(cfg.Output.Dir, cfg.Output.SiteTitle).Write(results, record); err != nil {
			return eris.Wrap(err, "build: write site")
		}

		monitoring.NewAlerter(cfg.Monitoring).Check(ctx, monitoring.NewRunSnapshot(report, usage, cfg.Summarizer.MaxRunCostUSD))

		fmt.Fprintf(cmd.OutOrStdout(), "%s (llm cost $%.4f) -> %s\n", report.String(), usage.CostUSD, cfg.Output.Dir)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildChannel, "channel", "", "channel id (default from config)")
	buildCmd.Flags().StringVar(&buildPlaylist, "playlist", "", "playlist id or title (default from config)")
	buildCmd.Flags().IntVar(&buildMaxVideos, "max-videos", 0, "maximum videos to process (default from config)")
	buildCmd.Flags().StringVar(&buildOutDir, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(buildCmd)
}
