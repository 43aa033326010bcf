package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Review in-app notifications",
	}

	notifyCmd.AddCommand(newNotifyListCommand(ctx))
	notifyCmd.AddCommand(newNotifyReadCommand(ctx))
	notifyCmd.AddCommand(newNotifyReadAllCommand(ctx))
	notifyCmd.AddCommand(newNotifyTestCommand(ctx))

	return notifyCmd
}

// resolveUser accepts either a numeric id or a user name.
func resolveUser(ctx context.Context, st *store.Store, arg string) (*store.User, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("user id or name is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		user, err := st.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("no user with id %d", id)
		}
		return user, nil
	}
	user, err := st.GetUserByName(ctx, arg)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no user %q", arg)
	}
	return user, nil
}

func newNotifyListCommand(ctx *commandContext) *cobra.Command {
	var (
		userArg    string
		unreadOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			user, err := resolveUser(cmd.Context(), st, userArg)
			if err != nil {
				return err
			}
			ns, err := st.ListNotifications(cmd.Context(), user.ID, unreadOnly)
			if err != nil {
				return err
			}
			if len(ns) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No notifications for %s\n", user.Name)
				return nil
			}
			rows := make([][]string, 0, len(ns))
			for _, n := range ns {
				read := ""
				if !n.Read {
					read = "*"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", n.ID),
					read,
					n.Kind,
					n.Title,
					formatTimestamp(n.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "", "Kind", "Title", "When"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&userArg, "user", "", "User id or name")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newNotifyReadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := st.MarkNotificationRead(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification %d marked read\n", id)
			return nil
		},
	}
}

func newNotifyReadAllCommand(ctx *commandContext) *cobra.Command {
	var userArg string

	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark all of a user's notifications as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			user, err := resolveUser(cmd.Context(), st, userArg)
			if err != nil {
				return err
			}
			count, err := st.MarkAllNotificationsRead(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notifications read for %s\n", count, user.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&userArg, "user", "", "User id or name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to the configured push service",
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier, err := ctx.notifier()
			if err != nil {
				return err
			}
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
