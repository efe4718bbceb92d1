// handlers/backoffice.go - Staff-only workflow transitions
package handlers

import (
	"log"
	"strings"

	"acmportal/apperrors"
	"acmportal/models"
	"acmportal/services"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
)

// ================== TEAM REQUESTS ==================

// ListTeamRequests lists team requests in a status
// GET /api/backoffice/team-requests?status=PENDING_INVESTIGATION
func (h *Handler) ListTeamRequests(c *fiber.Ctx) error {
	status := models.TeamRequestStatus(strings.ToUpper(c.Query("status", string(models.TeamRequestPendingInvestigation))))
	requests, err := h.teams.ListByStatus(c.UserContext(), status)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"requests": requests})
}

// BackofficeApproveTeam clears investigation and starts payment
// POST /api/backoffice/team-requests/:id/approve
func (h *Handler) BackofficeApproveTeam(c *fiber.Ctx) error {
	return h.teamTransition(c, func(id uint) (*models.TeamRequest, error) {
		return h.teams.BackofficeApprove(c.UserContext(), id)
	})
}

// BackofficeRejectTeam rejects a request under investigation
// POST /api/backoffice/team-requests/:id/reject
func (h *Handler) BackofficeRejectTeam(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)
	return h.teamTransition(c, func(id uint) (*models.TeamRequest, error) {
		return h.teams.BackofficeReject(c.UserContext(), id, body.Reason)
	})
}

// MarkTeamFinal finalizes a request awaiting payment
// POST /api/backoffice/team-requests/:id/final
func (h *Handler) MarkTeamFinal(c *fiber.Ctx) error {
	return h.teamTransition(c, func(id uint) (*models.TeamRequest, error) {
		return h.teams.MarkFinal(c.UserContext(), id)
	})
}

// MarkTeamPaymentRejected closes a request whose payment failed
// POST /api/backoffice/team-requests/:id/payment-rejected
func (h *Handler) MarkTeamPaymentRejected(c *fiber.Ctx) error {
	return h.teamTransition(c, func(id uint) (*models.TeamRequest, error) {
		return h.teams.MarkPaymentRejected(c.UserContext(), id)
	})
}

func (h *Handler) teamTransition(c *fiber.Ctx, fn func(id uint) (*models.TeamRequest, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}
	tr, err := fn(id)
	if err != nil {
		return utils.JSONError(c, err)
	}
	log.Printf("🛠️ Team request %d -> %s (%s)", tr.ID, tr.Status, c.Path())
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"request": tr})
}

// ================== REGISTRATIONS ==================

// ApproveRegistration approves a registration and starts its payment
// unless a manual payment link is given
// POST /api/backoffice/registrations/:id/approve
func (h *Handler) ApproveRegistration(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}
	var body struct {
		PaymentLink string `json:"payment_link"`
		Amount      *int64 `json:"amount"`
		Description string `json:"description"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return utils.JSONError(c, invalidBody())
		}
	}

	reg, err := h.registrations.SetStatusApproved(c.UserContext(), id, services.ApproveOptions{
		PaymentLink: body.PaymentLink,
		Amount:      body.Amount,
		Description: body.Description,
	})
	if err != nil {
		return utils.JSONError(c, err)
	}
	log.Printf("🛠️ Registration %d -> %s", reg.ID, reg.Status)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"registration": reg})
}

// RejectRegistration stores the reason and rejects the registration
// POST /api/backoffice/registrations/:id/reject
func (h *Handler) RejectRegistration(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	if strings.TrimSpace(body.Reason) != "" {
		if _, err := h.registrations.SetRejectionReason(c.UserContext(), id, body.Reason); err != nil {
			return utils.JSONError(c, err)
		}
	}
	reg, err := h.registrations.SetStatusRejected(c.UserContext(), id)
	if err != nil {
		return utils.JSONError(c, err)
	}
	log.Printf("🛠️ Registration %d -> %s", reg.ID, reg.Status)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"registration": reg})
}

// FinalizeRegistrations marks registrations FINAL in bulk
// POST /api/backoffice/registrations/final
func (h *Handler) FinalizeRegistrations(c *fiber.Ctx) error {
	var body struct {
		IDs []uint `json:"ids"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.IDs) == 0 {
		return utils.JSONError(c, apperrors.New(apperrors.CodeInvalid, "ids are required"))
	}
	regs, err := h.registrations.SetStatusFinal(c.UserContext(), body.IDs...)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"registrations": regs})
}

// ================== PAYMENTS ==================

// ReconcilePayments verifies pending payments the gateway still lists
// POST /api/backoffice/payments/reconcile
func (h *Handler) ReconcilePayments(c *fiber.Ctx) error {
	report, err := h.ledger.ReconcilePending(c.UserContext())
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"report": report})
}
