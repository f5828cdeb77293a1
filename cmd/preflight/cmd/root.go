// Package cmd implements the preflight command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/preflight/internal/client"
)

const defaultServer = "http://localhost:8080/api"

var (
	serverURL  string
	cfgFile    string
	logLevel   string
	reqTimeout time.Duration

	appVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Validate MDF and Artwork PDFs against the compliance rule set",
	Long: `preflight uploads a Master Data Form and its print Artwork, runs the
compliance rules against them, and reports each rule's verdict.

Run 'preflight serve' to host the validation API, or point the client
commands at a running server with --server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors are printed to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), errorStyle.Render("error:"), err)
	}
	return err
}

// SetVersion injects the build version.
func SetVersion(v string) {
	appVersion = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PREFLIGHT_API_URL", defaultServer),
		"API base URL of a running preflight server")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"server config file (default: config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&reqTimeout, "timeout", 5*time.Minute,
		"overall timeout for client commands")
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, &http.Client{Timeout: reqTimeout})
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", logLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
