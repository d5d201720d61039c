package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recap-cli/internal/model"
)

var (
	summarizeTitle          string
	summarizeDescription    string
	summarizeTranscriptFile string
)

// fileTranscript serves one pre-fetched transcript to the pipeline.
type fileTranscript struct {
	result model.TranscriptResult
}

func (f fileTranscript) Fetch(context.Context, string) model.TranscriptResult {
	return f.result
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <video-id|url>",
	Short: "Summarize one video and print the summary as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		id, err := parseVideoArg(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cfg, "summarize")
		if err != nil {
			return err
		}

		p := env.Pipeline
		if summarizeTranscriptFile != "" {
			data, err := os.ReadFile(summarizeTranscriptFile)
			if err != nil {
				return eris.Wrapf(err, "read transcript file %s", summarizeTranscriptFile)
			}
			text := env.Normalizer.Normalize(string(data))
			p = env.newPipeline(fileTranscript{result: model.TranscriptResult{Text: text}}, 1)
		}

		video := model.VideoRef{
			ID:          id,
			Title:       summarizeTitle,
			Description: summarizeDescription,
			URL:         model.WatchURL(id),
		}
		res := p.Process(ctx, video)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeTitle, "title", "", "video title passed to the summarizer")
	summarizeCmd.Flags().StringVar(&summarizeDescription, "description", "", "video description passed to the summarizer")
	summarizeCmd.Flags().StringVar(&summarizeTranscriptFile, "transcript-file", "", "summarize this text instead of running the cascade")
	rootCmd.AddCommand(summarizeCmd)
}
