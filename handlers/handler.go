// handlers/handler.go - Route table and shared helpers for the HTTP API
package handlers

import (
	"strconv"
	"time"

	"acmportal/apperrors"
	"acmportal/config"
	"acmportal/middleware"
	"acmportal/payment"
	"acmportal/services"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the public, member and backoffice endpoints.
type Handler struct {
	catalog       *services.CatalogService
	teams         *services.TeamRequestService
	registrations *services.RegistrationService
	ledger        *payment.Ledger
	auth          *middleware.Auth
	cfg           config.Config
}

func New(
	catalog *services.CatalogService,
	teams *services.TeamRequestService,
	registrations *services.RegistrationService,
	ledger *payment.Ledger,
	auth *middleware.Auth,
	cfg config.Config,
) *Handler {
	return &Handler{
		catalog:       catalog,
		teams:         teams,
		registrations: registrations,
		ledger:        ledger,
		auth:          auth,
		cfg:           cfg,
	}
}

// Register mounts every route under /api.
func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.Health)

	// Competition routes
	approveLimit := middleware.RateLimit(30, time.Minute)
	comps := api.Group("/competitions")
	comps.Get("/", h.ListCompetitions)
	comps.Get("/approve", approveLimit, h.MemberApproveLink)
	comps.Post("/member/approve", approveLimit, h.MemberApprove)
	comps.Post("/request", h.auth.Required, h.SubmitTeamRequest)
	comps.Post("/request/cancel", h.auth.Required, h.CancelTeamRequest)
	comps.Get("/me/requests", h.auth.Required, h.MyTeamRequests)
	comps.Get("/:slug/fields", h.GetCompetitionFields)
	comps.Get("/:slug", h.GetCompetition)

	// Course routes
	courses := api.Group("/courses")
	courses.Post("/register", h.auth.Required, h.SubmitRegistration)
	courses.Get("/me/registrations", h.auth.Required, h.MyRegistrations)
	courses.Get("/session-link", h.auth.Required, h.SessionLink)
	courses.Get("/:slug", h.auth.Optional, h.GetCourse)

	// Payment routes
	pay := api.Group("/payment")
	pay.Get("/callback", h.PaymentCallback)
	pay.Get("/startpay/:authority", h.RestartPayment)
	pay.Post("/verify", h.auth.Required, h.VerifyPayment)
	pay.Get("/me", h.auth.Required, h.MyPayments)

	// Backoffice routes
	bo := api.Group("/backoffice", h.auth.Required, middleware.StaffRequired)
	bo.Get("/team-requests", h.ListTeamRequests)
	bo.Post("/team-requests/:id/approve", h.BackofficeApproveTeam)
	bo.Post("/team-requests/:id/reject", h.BackofficeRejectTeam)
	bo.Post("/team-requests/:id/final", h.MarkTeamFinal)
	bo.Post("/team-requests/:id/payment-rejected", h.MarkTeamPaymentRejected)
	bo.Post("/registrations/final", h.FinalizeRegistrations)
	bo.Post("/registrations/:id/approve", h.ApproveRegistration)
	bo.Post("/registrations/:id/reject", h.RejectRegistration)
	bo.Post("/payments/reconcile", h.ReconcilePayments)
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// ErrorHandler renders errors that escape a handler in the API envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return utils.JSONError(c, err)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.New(apperrors.CodeInvalid, "Invalid "+name)
	}
	return uint(id), nil
}

func invalidBody() error {
	return apperrors.New(apperrors.CodeInvalid, "Invalid request body")
}
