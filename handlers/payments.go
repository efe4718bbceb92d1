// handlers/payments.go - Gateway callback, verify and restart endpoints
package handlers

import (
	"net/url"
	"strings"

	"acmportal/apperrors"
	"acmportal/middleware"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
)

// PaymentCallback is the gateway's return URL. It forwards the authority
// to the frontend, which calls verify.
// GET /api/payment/callback?Authority=<authority>&Status=<OK|NOK>
func (h *Handler) PaymentCallback(c *fiber.Ctx) error {
	authority := c.Query("Authority")
	if authority == "" {
		authority = c.Query("authority")
	}
	target := h.cfg.Payment.FrontendReturn
	if target == "" {
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"authority": authority})
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return c.Redirect(target+sep+"authority="+url.QueryEscape(authority), fiber.StatusFound)
}

// VerifyPayment settles the caller's payment for an authority
// POST /api/payment/verify
func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	var body struct {
		Authority string `json:"authority"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Authority) == "" {
		return utils.JSONError(c, apperrors.New(apperrors.CodeInvalid, "authority is required"))
	}

	p, err := h.ledger.Verify(c.UserContext(), user.ID, strings.TrimSpace(body.Authority))
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"payment": p})
}

// RestartPayment opens a fresh gateway attempt for the same purchase and
// redirects the payer to it. Links in payment emails point here.
// GET /api/payment/startpay/:authority
func (h *Handler) RestartPayment(c *fiber.Ctx) error {
	sp, err := h.ledger.Restart(c.UserContext(), c.Params("authority"))
	if err != nil {
		return utils.JSONError(c, err)
	}
	return c.Redirect(sp.URL, fiber.StatusFound)
}

// MyPayments lists the caller's payment attempts
// GET /api/payment/me
func (h *Handler) MyPayments(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	payments, err := h.ledger.ListForUser(c.UserContext(), user.ID)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"payments": payments})
}
