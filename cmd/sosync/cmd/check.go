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
	// responseMessage annotates a check response.
	responseMessage string
	// responseLatitude and responseLongitude pin the responder's position.
	responseLatitude  float64
	responseLongitude float64

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Start and answer safety checks.",
	}

	checkStartCmd = &cobra.Command{
		Use:   "start <group-id>",
		Short: "Ask every member of the group whether they are okay.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				checkID, err := a.Engine.Checks.Initiate(ctx, args[0], a.UserID)
				if rateLimited, ok := safety.IsRateLimited(err); ok {
					return fmt.Errorf("a safety check already ran recently, retry in %d minute(s)",
						rateLimited.RemainingMinutes())
				}

				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Safety check started: %s\n", checkID)

				return nil
			})
		},
	}

	checkRespondCmd = &cobra.Command{
		Use:   "respond <check-id> (safe|sos)",
		Short: "Answer a safety check.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				err := a.Engine.Checks.Respond(ctx, coordinator.RespondRequest{
					CheckID:  args[0],
					UserID:   a.UserID,
					Status:   safety.ResponseStatus(args[1]),
					Location: locationFromFlags(cmd),
					Message:  responseMessage,
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %q response to check %s\n", args[1], args[0])

				return nil
			})
		},
	}
)

// locationFromFlags returns the position flags as a location, nil when the
// caller did not set them.
func locationFromFlags(cmd *cobra.Command) *safety.Location {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lon") {
		return nil
	}

	return &safety.Location{
		Latitude:  responseLatitude,
		Longitude: responseLongitude,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkRespondCmd.Flags().StringVarP(&responseMessage, "message", "m", "",
		"optional note attached to the response")
	checkRespondCmd.Flags().Float64Var(&responseLatitude, "lat", 0,
		"latitude of your current position")
	checkRespondCmd.Flags().Float64Var(&responseLongitude, "lon", 0,
		"longitude of your current position")

	checkCmd.AddCommand(checkStartCmd, checkRespondCmd)
	rootCmd.AddCommand(checkCmd)
}
