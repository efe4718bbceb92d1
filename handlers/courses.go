// handlers/courses.go - Course registration and live session endpoints
package handlers

import (
	"log"
	"strconv"

	"acmportal/apperrors"
	"acmportal/middleware"
	"acmportal/models"
	"acmportal/services"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
)

// GetCourse returns a course with its schedule, children and open seats.
// Signed-in callers also get their own registration for it.
// GET /api/courses/:slug
func (h *Handler) GetCourse(c *fiber.Ctx) error {
	view, err := h.catalog.CourseBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return utils.JSONError(c, err)
	}
	resp := fiber.Map{"course": view}

	if user, err := middleware.CurrentUser(c); err == nil {
		reg, err := h.registrations.ForCourse(c.UserContext(), user.ID, view.ID)
		if err != nil {
			return utils.JSONError(c, err)
		}
		resp["registration"] = reg
	}
	return utils.JSONSuccess(c, fiber.StatusOK, resp)
}

type submitRegistrationBody struct {
	CourseID     uint                   `json:"course_id"`
	Course       string                 `json:"course"`
	ChildIDs     []uint                 `json:"child_ids"`
	ExtraAnswers map[string]interface{} `json:"extra_answers"`
	ResumeURL    string                 `json:"resume_url"`
}

// SubmitRegistration registers the caller for a course
// POST /api/courses/register
func (h *Handler) SubmitRegistration(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}

	var body submitRegistrationBody
	if err := c.BodyParser(&body); err != nil {
		return utils.JSONError(c, invalidBody())
	}
	course, err := h.lookupCourse(c, body.CourseID, body.Course)
	if err != nil {
		return utils.JSONError(c, err)
	}

	reg, err := h.registrations.Submit(c.UserContext(), services.SubmitRegistrationInput{
		Course:       course,
		User:         user,
		ChildIDs:     body.ChildIDs,
		ExtraAnswers: body.ExtraAnswers,
		ResumeURL:    body.ResumeURL,
	})
	if err != nil {
		return utils.JSONError(c, err)
	}

	log.Printf("📝 Registration %d for course %d by user %d: %s", reg.ID, course.ID, user.ID, reg.Status)
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"registration": reg})
}

// MyRegistrations lists the caller's course registrations
// GET /api/courses/me/registrations
func (h *Handler) MyRegistrations(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	regs, err := h.registrations.ListForUser(c.UserContext(), user.ID)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"registrations": regs})
}

// SessionLink returns a join link for the course's live session
// GET /api/courses/session-link?course=<slug> or ?course_id=<id>
func (h *Handler) SessionLink(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}

	var courseID uint
	if raw := c.Query("course_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.JSONError(c, apperrors.New(apperrors.CodeInvalid, "Invalid course_id"))
		}
		courseID = uint(id)
	}
	course, err := h.lookupCourse(c, courseID, c.Query("course"))
	if err != nil {
		return utils.JSONError(c, err)
	}

	link, err := h.registrations.CreateSessionLink(c.UserContext(), user, course)
	if err != nil {
		return utils.JSONError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"url": link})
}

func (h *Handler) lookupCourse(c *fiber.Ctx, id uint, slug string) (*models.Course, error) {
	switch {
	case id != 0:
		return h.catalog.CourseByID(c.UserContext(), id)
	case slug != "":
		view, err := h.catalog.CourseBySlug(c.UserContext(), slug)
		if err != nil {
			return nil, err
		}
		return &view.Course, nil
	}
	return nil, apperrors.New(apperrors.CodeInvalid, "course_id is required")
}
