package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/islamsaadi/SOSync/internal/config"
	"github.com/islamsaadi/SOSync/internal/logger"
	"github.com/islamsaadi/SOSync/internal/service/app"
	"github.com/islamsaadi/SOSync/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel sets the minimum level for log output.
	logLevel string
	// userID overrides the acting user identity from config.
	userID string

	// rootCmd is the base command of the sosync CLI.
	rootCmd = &cobra.Command{
		Use:   "sosync",
		Short: "Coordinate safety checks and SOS alerts in your groups.",
		Long: `sosync keeps small groups of people aware of each other's safety.

Members of a group can poll everyone with a safety check, answer that they
are safe or in trouble, raise SOS alerts directly, and watch the group status
change in real time. All clients coordinate through a shared record store;
there is no central server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the sosync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c",
		config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l",
		"info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u",
		"", "acting user id (defaults to config, then OS username)")
}

// signalContext returns a context cancelled on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// withApp assembles the application, runs fn and releases the connection.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	application, err := app.New(ctx, &app.Options{
		ConfigPath: cfgPath,
		UserID:     userID,
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = application.Close()
	}()

	return fn(ctx, application)
}
