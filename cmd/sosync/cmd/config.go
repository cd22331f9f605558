package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/islamsaadi/SOSync/internal/config"
)

var (
	// redisAddress is the record store address written by config init.
	redisAddress string
	// webhookURL is the notification endpoint written by config init.
	webhookURL string

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the local configuration file.",
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the given settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &config.Config{
				RedisAddress: redisAddress,
				UserID:       userID,
				WebhookURL:   webhookURL,
			}

			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", cfgPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().StringVar(&redisAddress, "redis-addr", "localhost:6379",
		"host:port of the shared record store")
	configInitCmd.Flags().StringVar(&webhookURL, "webhook-url", "",
		"optional URL notifications are POSTed to")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
