package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var transcriptJSON bool

var transcriptCmd = &cobra.Command{
	Use:   "transcript <video-id|url>",
	Short: "Run the transcript cascade for one video and print the text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		id, err := parseVideoArg(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cfg, "transcript")
		if err != nil {
			return err
		}

		res := env.Cascade.Fetch(ctx, id)
		out := cmd.OutOrStdout()
		if transcriptJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		if res.Empty() {
			fmt.Fprintf(cmd.ErrOrStderr(), "no transcript found for %s (tried %v)\n", id, env.Cascade.Stages())
			return nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "source: %s, %d chars\n", res.Source, len([]rune(res.Text)))
		fmt.Fprintln(out, res.Text)
		return nil
	},
}

func init() {
	transcriptCmd.Flags().BoolVar(&transcriptJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(transcriptCmd)
}
