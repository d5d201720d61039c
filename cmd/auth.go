package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recap-cli/internal/ytauth"
)

var (
	authListen  string
	authTimeout time.Duration
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize caption downloads and store the OAuth token",
	Long:  "Runs the installed-app OAuth flow against a loopback redirect and writes the token to youtube.token_file with owner-only permissions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("auth"); err != nil {
			return err
		}

		oauthCfg, err := ytauth.LoadClientSecrets(cfg.YouTube.OAuthClientFile)
		if err != nil {
			return err
		}

		flow := ytauth.Flow{
			Config:     oauthCfg,
			ListenAddr: authListen,
			Timeout:    authTimeout,
			Open: func(authURL string) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser to authorize:\n\n  %s\n\n", authURL)
				return err
			},
		}
		tok, err := flow.Authorize(ctx)
		if err != nil {
			return err
		}
		if err := ytauth.SaveToken(cfg.YouTube.TokenFile, tok); err != nil {
			return err
		}

		zap.L().Info("auth: token saved", zap.String("path", cfg.YouTube.TokenFile))
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.YouTube.TokenFile)
		return nil
	},
}

func init() {
	authCmd.Flags().StringVar(&authListen, "listen", "127.0.0.1:0", "loopback address for the redirect listener")
	authCmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "how long to wait for the browser redirect")
	rootCmd.AddCommand(authCmd)
}
