package main

import (
	"context"
	"fmt"
	"time"

	"acmportal/notify"
	"acmportal/services"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Verify pending payments the gateway still lists as unverified",
		Args:  cobra.NoArgs,
		RunE: withServices(func(ctx context.Context, svc *services.Services, _ []string) error {
			report, err := svc.Ledger.ReconcilePending(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Unverified: %d\nChecked:    %d\nSuccessful: %d\nFailed:     %d\nErrors:     %d\n",
				report.Unverified, report.Checked, report.Successful, report.Failed, report.Errors)
			return nil
		}),
	}
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Manage the notification outbox",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List queued notifications",
		Args:  cobra.NoArgs,
	}
	pending.Flags().IntP("limit", "n", 20, "Maximum rows")
	pending.RunE = withServices(func(ctx context.Context, svc *services.Services, _ []string) error {
		limit, _ := pending.Flags().GetInt("limit")
		rows, err := svc.Queue.Pending(ctx, limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("Outbox is empty")
			return nil
		}
		for _, n := range rows {
			fmt.Printf("  #%-6d %-32s %-40v attempts=%d %s\n",
				n.ID, n.To, n.Context["status"], n.Attempts, n.CreatedAt.Format(time.RFC3339))
		}
		return nil
	})
	cmd.AddCommand(pending)

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Deliver one batch of queued notifications",
		Args:  cobra.NoArgs,
		RunE: withServices(func(ctx context.Context, svc *services.Services, _ []string) error {
			d := services.NewDispatcher(svc.Queue, notify.LogSender{}, nil, 0, 0)
			sent, err := d.DispatchOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Delivered %d notification(s)\n", sent)
			return nil
		}),
	})

	return cmd
}
