// handlers/competitions.go - Competition and team request endpoints
package handlers

import (
	"log"
	"net/url"
	"strconv"

	"acmportal/apperrors"
	"acmportal/middleware"
	"acmportal/models"
	"acmportal/services"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
)

// ListCompetitions returns active competitions
// GET /api/competitions
func (h *Handler) ListCompetitions(c *fiber.Ctx) error {
	comps, err := h.catalog.ListCompetitions(c.UserContext())
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"competitions": comps})
}

// GetCompetition returns a competition by slug
// GET /api/competitions/:slug
func (h *Handler) GetCompetition(c *fiber.Ctx) error {
	comp, err := h.catalog.CompetitionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"competition": comp})
}

// GetCompetitionFields returns the participant field modes
// GET /api/competitions/:slug/fields
func (h *Handler) GetCompetitionFields(c *fiber.Ctx) error {
	comp, err := h.catalog.CompetitionBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"fields": services.FieldModes(comp.FieldConfig)})
}

type submitTeamRequestBody struct {
	CompetitionID uint                   `json:"competition_id"`
	Competition   string                 `json:"competition"`
	TeamName      string                 `json:"team_name"`
	Participants  []services.Participant `json:"participants"`
}

// SubmitTeamRequest creates a team request for a competition
// POST /api/competitions/request
func (h *Handler) SubmitTeamRequest(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}

	var body submitTeamRequestBody
	if err := c.BodyParser(&body); err != nil {
		return utils.JSONError(c, invalidBody())
	}

	var comp *models.Competition
	switch {
	case body.CompetitionID != 0:
		comp, err = h.catalog.CompetitionByID(c.UserContext(), body.CompetitionID)
	case body.Competition != "":
		comp, err = h.catalog.CompetitionBySlug(c.UserContext(), body.Competition)
	default:
		err = apperrors.New(apperrors.CodeInvalid, "competition_id is required")
	}
	if err != nil {
		return utils.JSONError(c, err)
	}

	tr, err := h.teams.Submit(c.UserContext(), services.SubmitTeamInput{
		Competition:  comp,
		Submitter:    user,
		TeamName:     body.TeamName,
		Participants: body.Participants,
	})
	if err != nil {
		return utils.JSONError(c, err)
	}

	log.Printf("📝 Team request %d submitted for competition %d by user %d", tr.ID, comp.ID, user.ID)
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"request": tr})
}

type memberDecisionBody struct {
	RequestID uint   `json:"request_id"`
	Token     string `json:"token"`
	Accept    *bool  `json:"accept"`
}

// MemberApprove records a member's decision from a token
// POST /api/competitions/member/approve
func (h *Handler) MemberApprove(c *fiber.Ctx) error {
	var body memberDecisionBody
	if err := c.BodyParser(&body); err != nil {
		return utils.JSONError(c, invalidBody())
	}
	if body.RequestID == 0 || body.Token == "" {
		return utils.JSONError(c, apperrors.New(apperrors.CodeInvalid, "request_id and token are required"))
	}
	accept := body.Accept == nil || *body.Accept

	member, err := h.teams.ApproveOrReject(c.UserContext(), body.RequestID, body.Token, accept)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"member": member.ID,
		"status": member.ApprovalStatus,
	})
}

// MemberApproveLink handles the link sent in approval emails and sends
// the member on to the frontend
// GET /api/competitions/approve?rid=<id>&token=<token>[&action=reject]
func (h *Handler) MemberApproveLink(c *fiber.Ctx) error {
	rid, err := strconv.ParseUint(c.Query("rid"), 10, 64)
	token := c.Query("token")
	if err != nil || rid == 0 || token == "" {
		return h.approvalResult(c, nil, apperrors.New(apperrors.CodeInvalidOrExpiredToken, "Invalid or expired token"))
	}
	accept := c.Query("action") != "reject"

	member, err := h.teams.ApproveOrReject(c.UserContext(), uint(rid), token, accept)
	return h.approvalResult(c, member, err)
}

func (h *Handler) approvalResult(c *fiber.Ctx, member *models.TeamMember, err error) error {
	target := h.cfg.CompetitionApprovalRedirectURL
	if target == "" {
		if err != nil {
			return utils.JSONError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
			"member": member.ID,
			"status": member.ApprovalStatus,
		})
	}

	q := url.Values{}
	if err != nil {
		q.Set("error", string(apperrors.CodeOf(err)))
	} else {
		q.Set("member", strconv.FormatUint(uint64(member.ID), 10))
		q.Set("status", string(member.ApprovalStatus))
	}
	return c.Redirect(target+"?"+q.Encode(), fiber.StatusFound)
}

// MyTeamRequests lists the caller's team requests
// GET /api/competitions/me/requests
func (h *Handler) MyTeamRequests(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	requests, err := h.teams.ListForSubmitter(c.UserContext(), user.ID)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"requests": requests})
}

// CancelTeamRequest cancels the caller's pending request
// POST /api/competitions/request/cancel
func (h *Handler) CancelTeamRequest(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	var body struct {
		RequestID uint `json:"request_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.RequestID == 0 {
		return utils.JSONError(c, apperrors.New(apperrors.CodeInvalid, "request_id is required"))
	}

	tr, err := h.teams.Cancel(c.UserContext(), body.RequestID, user)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"request": tr})
}
