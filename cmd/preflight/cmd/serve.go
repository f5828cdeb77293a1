package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the validation API server",
	Long: `Start the HTTP API. Configuration is read from --config (default
config.toml), its config.<env>.toml overlay, and PREFLIGHT_* variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = config.BaseConfigFile
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	srv, err := server.NewWithLogger(cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	<-cmd.Context().Done()
	return srv.Shutdown(cfg.ShutdownTimeoutDuration())
}
