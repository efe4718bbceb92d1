package main

import (
	"context"
	"fmt"
	"strings"

	"acmportal/models"
	"acmportal/services"

	"github.com/spf13/cobra"
)

func teamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Review competition team requests",
	}

	cmd.AddCommand(teamActionCmd("approve", "Clear investigation and start payment",
		func(ctx context.Context, svc *services.Services, id uint, _ string) (*models.TeamRequest, error) {
			return svc.Teams.BackofficeApprove(ctx, id)
		}))

	reject := teamActionCmd("reject", "Reject a request under investigation",
		func(ctx context.Context, svc *services.Services, id uint, reason string) (*models.TeamRequest, error) {
			return svc.Teams.BackofficeReject(ctx, id, reason)
		})
	reject.Flags().String("reason", "", "Reason sent to the submitter")
	cmd.AddCommand(reject)

	cmd.AddCommand(teamActionCmd("final", "Mark a request awaiting payment as FINAL",
		func(ctx context.Context, svc *services.Services, id uint, _ string) (*models.TeamRequest, error) {
			return svc.Teams.MarkFinal(ctx, id)
		}))
	cmd.AddCommand(teamActionCmd("payment-rejected", "Close a request whose payment failed",
		func(ctx context.Context, svc *services.Services, id uint, _ string) (*models.TeamRequest, error) {
			return svc.Teams.MarkPaymentRejected(ctx, id)
		}))

	list := &cobra.Command{
		Use:   "list",
		Short: "List team requests in a status",
		Args:  cobra.NoArgs,
	}
	list.Flags().String("status", string(models.TeamRequestPendingInvestigation), "Request status")
	list.RunE = withServices(func(ctx context.Context, svc *services.Services, _ []string) error {
		status, _ := list.Flags().GetString("status")
		requests, err := svc.Teams.ListByStatus(ctx, models.TeamRequestStatus(strings.ToUpper(status)))
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			fmt.Println("No requests")
			return nil
		}
		for _, tr := range requests {
			fmt.Printf("  #%-6d %-24s %-22s %d member(s)\n", tr.ID, tr.TeamName, tr.Status, len(tr.Members))
		}
		return nil
	})
	cmd.AddCommand(list)

	return cmd
}

type teamAction func(ctx context.Context, svc *services.Services, id uint, reason string) (*models.TeamRequest, error)

func teamActionCmd(use, short string, action teamAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [ids...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = withServices(func(ctx context.Context, svc *services.Services, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		reason := ""
		if f := cmd.Flags().Lookup("reason"); f != nil {
			reason = f.Value.String()
		}

		failed := 0
		for _, id := range ids {
			tr, err := action(ctx, svc, id, reason)
			if err != nil {
				failed++
				fmt.Printf("  #%d: %v\n", id, err)
				continue
			}
			fmt.Printf("  #%d -> %s\n", tr.ID, tr.Status)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d request(s) failed", failed, len(ids))
		}
		return nil
	})
	return cmd
}
