package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/islamsaadi/SOSync/internal/service/app"
	"github.com/islamsaadi/SOSync/internal/service/membership"
)

// createGroupRequest binds the create flags to a membership request.
func createGroupRequest(name, creatorID string) membership.CreateGroupRequest {
	return membership.CreateGroupRequest{
		Name:                 name,
		CreatorID:            creatorID,
		CheckIntervalMinutes: checkIntervalMinutes,
		SOSIntervalMinutes:   sosIntervalMinutes,
	}
}

var (
	// checkIntervalMinutes is the safety check cooldown of a new group.
	checkIntervalMinutes int
	// sosIntervalMinutes is the per-user SOS cooldown of a new group.
	sosIntervalMinutes int

	groupCmd = &cobra.Command{
		Use:   "group",
		Short: "Manage groups and their members.",
	}

	groupCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group with yourself as admin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				group, err := a.Membership.CreateGroup(ctx, createGroupRequest(args[0], a.UserID))
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (%s)\n", group.Name, group.ID)

				return nil
			})
		},
	}

	groupInviteCmd = &cobra.Command{
		Use:   "invite <group-id> <user-id>",
		Short: "Invite a user to a group you administer.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := a.Membership.Invite(ctx, args[0], a.UserID, args[1]); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Invited %s to group %s\n", args[1], args[0])

				return nil
			})
		},
	}

	groupAcceptCmd = &cobra.Command{
		Use:   "accept <group-id>",
		Short: "Accept a pending invitation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := a.Membership.AcceptInvite(ctx, args[0], a.UserID); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Joined group %s\n", args[0])

				return nil
			})
		},
	}

	groupRemoveCmd = &cobra.Command{
		Use:   "remove <group-id> <user-id>",
		Short: "Remove a member from a group you administer.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := a.Membership.RemoveMember(ctx, args[0], a.UserID, args[1]); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from group %s\n", args[1], args[0])

				return nil
			})
		},
	}

	groupDeleteCmd = &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a group you administer, with all of its records.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				if err := a.Membership.DeleteGroup(ctx, args[0], a.UserID); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %s\n", args[0])

				return nil
			})
		},
	}

	groupStatusCmd = &cobra.Command{
		Use:   "status <group-id>",
		Short: "Show a group's current status and roster.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				group, err := a.Membership.Get(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Group:   %s (%s)\n", group.Name, group.ID)
				fmt.Fprintf(out, "Status:  %s\n", group.CurrentStatus)
				fmt.Fprintf(out, "Admin:   %s\n", group.AdminID)
				fmt.Fprintf(out, "Members: %s\n", strings.Join(group.Members, ", "))

				if len(group.PendingMembers) > 0 {
					fmt.Fprintf(out, "Invited: %s\n", strings.Join(group.PendingMembers, ", "))
				}

				if group.LastSafetyCheckAt != nil {
					fmt.Fprintf(out, "Last check: %s\n", group.LastSafetyCheckAt.Format(time.RFC3339))
				}

				return nil
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	groupCreateCmd.Flags().IntVar(&checkIntervalMinutes, "check-interval", 30,
		"minimum minutes between safety checks (1-1440)")
	groupCreateCmd.Flags().IntVar(&sosIntervalMinutes, "sos-interval", 5,
		"minimum minutes between direct SOS alerts per user (1-60)")

	groupCmd.AddCommand(groupCreateCmd, groupInviteCmd, groupAcceptCmd,
		groupRemoveCmd, groupDeleteCmd, groupStatusCmd)
	rootCmd.AddCommand(groupCmd)
}
