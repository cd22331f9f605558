package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/islamsaadi/SOSync/internal/service/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch <group-id>",
	Short: "Follow a group's status changes until interrupted.",
	Long: `Subscribes to the group's record-change events and prints the derived
group status whenever it changes. Runs until interrupted with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		return withApp(ctx, func(ctx context.Context, a *app.App) error {
			groupID := args[0]

			group, err := a.Membership.Get(ctx, groupID)
			if err != nil {
				return err
			}

			events, err := a.Store.Subscribe(ctx, groupID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			lastStatus := group.CurrentStatus
			fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.RFC3339), lastStatus)

			for {
				select {
				case <-ctx.Done():
					if errors.Is(ctx.Err(), context.Canceled) {
						return nil
					}

					return ctx.Err()
				case _, open := <-events:
					if !open {
						return nil
					}

					group, err := a.Membership.Get(ctx, groupID)
					if err != nil {
						return err
					}

					if group.CurrentStatus == lastStatus {
						continue
					}

					lastStatus = group.CurrentStatus
					fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.RFC3339), lastStatus)
				}
			}
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(watchCmd)
}
