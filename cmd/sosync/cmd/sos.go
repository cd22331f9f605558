package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/islamsaadi/SOSync/internal/domain/safety"
	"github.com/islamsaadi/SOSync/internal/service/app"
	"github.com/islamsaadi/SOSync/internal/service/coordinator"
)

var (
	// sosMessage describes the emergency.
	sosMessage string
	// sosLatitude and sosLongitude pin the sender's position.
	sosLatitude  float64
	sosLongitude float64

	sosCmd = &cobra.Command{
		Use:   "sos",
		Short: "Raise and cancel SOS alerts.",
	}

	sosSendCmd = &cobra.Command{
		Use:   "send <group-id>",
		Short: "Alert the group that you need help.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				alertID, err := a.Engine.Alerts.SendDirect(ctx, coordinator.SendSOSRequest{
					GroupID:  args[0],
					UserID:   a.UserID,
					Location: sosLocationFromFlags(cmd),
					Message:  sosMessage,
				})
				if rateLimited, ok := safety.IsRateLimited(err); ok {
					return fmt.Errorf("you sent an SOS recently, retry in %d minute(s)",
						rateLimited.RemainingMinutes())
				}

				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "SOS alert sent: %s\n", alertID)

				return nil
			})
		},
	}

	sosCancelCmd = &cobra.Command{
		Use:   "cancel <alert-id>",
		Short: "Resolve an SOS alert you own or administer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.Alerts.Cancel(ctx, args[0], a.UserID); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "SOS alert resolved: %s\n", args[0])

				return nil
			})
		},
	}
)

// sosLocationFromFlags returns the position flags as a location, nil when
// the caller did not set them.
func sosLocationFromFlags(cmd *cobra.Command) *safety.Location {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lon") {
		return nil
	}

	return &safety.Location{
		Latitude:  sosLatitude,
		Longitude: sosLongitude,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	sosSendCmd.Flags().StringVarP(&sosMessage, "message", "m", "",
		"optional note describing the emergency")
	sosSendCmd.Flags().Float64Var(&sosLatitude, "lat", 0,
		"latitude of your current position")
	sosSendCmd.Flags().Float64Var(&sosLongitude, "lon", 0,
		"longitude of your current position")

	sosCmd.AddCommand(sosSendCmd, sosCancelCmd)
	rootCmd.AddCommand(sosCmd)
}
