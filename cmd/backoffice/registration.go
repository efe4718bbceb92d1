package main

import (
	"context"
	"fmt"
	"strings"

	"acmportal/services"

	"github.com/spf13/cobra"
)

func registrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registration",
		Aliases: []string{"reg"},
		Short:   "Review course registrations",
	}

	approve := &cobra.Command{
		Use:   "approve [ids...]",
		Short: "Approve registrations and start their payments",
		Args:  cobra.MinimumNArgs(1),
	}
	approve.Flags().String("payment-link", "", "Send this link instead of starting a gateway payment")
	approve.Flags().Int64("amount", -1, "Charge this amount instead of the registration total")
	approve.Flags().String("description", "", "Payment description")
	approve.RunE = withServices(func(ctx context.Context, svc *services.Services, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		opts := services.ApproveOptions{}
		opts.PaymentLink, _ = approve.Flags().GetString("payment-link")
		opts.Description, _ = approve.Flags().GetString("description")
		if amount, _ := approve.Flags().GetInt64("amount"); amount >= 0 {
			opts.Amount = &amount
		}

		return eachID(ids, func(id uint) (string, error) {
			reg, err := svc.Registrations.SetStatusApproved(ctx, id, opts)
			if err != nil {
				return "", err
			}
			return string(reg.Status), nil
		})
	})
	cmd.AddCommand(approve)

	reject := &cobra.Command{
		Use:   "reject [ids...]",
		Short: "Reject registrations with a reason",
		Args:  cobra.MinimumNArgs(1),
	}
	reject.Flags().String("reason", "", "Reason sent to the applicant (required unless already set)")
	reject.RunE = withServices(func(ctx context.Context, svc *services.Services, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		reason, _ := reject.Flags().GetString("reason")

		return eachID(ids, func(id uint) (string, error) {
			if strings.TrimSpace(reason) != "" {
				if _, err := svc.Registrations.SetRejectionReason(ctx, id, reason); err != nil {
					return "", err
				}
			}
			reg, err := svc.Registrations.SetStatusRejected(ctx, id)
			if err != nil {
				return "", err
			}
			return string(reg.Status), nil
		})
	})
	cmd.AddCommand(reject)

	cmd.AddCommand(&cobra.Command{
		Use:   "final [ids...]",
		Short: "Mark registrations FINAL",
		Args:  cobra.MinimumNArgs(1),
		RunE: withServices(func(ctx context.Context, svc *services.Services, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			regs, err := svc.Registrations.SetStatusFinal(ctx, ids...)
			if err != nil {
				return err
			}
			for _, reg := range regs {
				fmt.Printf("  #%d -> %s\n", reg.ID, reg.Status)
			}
			return nil
		}),
	})

	return cmd
}

// eachID applies fn to every id, printing the resulting status, and fails
// if any id failed.
func eachID(ids []uint, fn func(id uint) (string, error)) error {
	failed := 0
	for _, id := range ids {
		status, err := fn(id)
		if err != nil {
			failed++
			fmt.Printf("  #%d: %v\n", id, err)
			continue
		}
		fmt.Printf("  #%d -> %s\n", id, status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d registration(s) failed", failed, len(ids))
	}
	return nil
}
