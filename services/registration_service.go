// services/registration_service.go - Course registration, waitlist and session links
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"acmportal/apperrors"
	"acmportal/config"
	"acmportal/models"
	"acmportal/notify"
	"acmportal/payment"
	"acmportal/videoroom"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationService struct {
	db       *gorm.DB
	ledger   *payment.Ledger
	notifier notify.Notifier
	rooms    videoroom.Provider
	cfg      config.Config
	loc      *time.Location
	now      func() time.Time
}

func NewRegistrationService(db *gorm.DB, ledger *payment.Ledger, notifier notify.Notifier, rooms videoroom.Provider, cfg config.Config) *RegistrationService {
	return &RegistrationService{
		db:       db,
		ledger:   ledger,
		notifier: notifier,
		rooms:    rooms,
		cfg:      cfg,
		loc:      cfg.Location(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRegistrationInput is a user's request for a course and a
// selection of its child courses.
type SubmitRegistrationInput struct {
	Course       *models.Course
	User         *models.User
	ChildIDs     []uint
	ExtraAnswers map[string]interface{}
	ResumeURL    string
}

// ApproveOptions overrides what SetStatusApproved charges. With a
// PaymentLink no payment is initiated.
type ApproveOptions struct {
	PaymentLink string
	Amount      *int64
	Description string
}

// ================== SUBMISSION ==================

// Submit creates or resets the user's registration for a course. A full
// course or child forces the registration onto the waitlist (RESERVED).
// Registrations that need no review progress to payment immediately.
func (s *RegistrationService) Submit(ctx context.Context, in SubmitRegistrationInput) (*models.Registration, error) {
	if in.User == nil || in.User.ID == 0 || !in.User.IsEmailVerified {
		return nil, apperrors.New(apperrors.CodeEmailNotVerified, "Login with verified email required")
	}
	if in.Course == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "Course not found")
	}
	childIDs := dedupeIDs(in.ChildIDs)

	var (
		out notify.Batch
		reg models.Registration
	)
	err := s.ledger.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// Serializes submissions for the course so seat counts stay honest.
		var course models.Course
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&course, in.Course.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "Course not found")
			}
			return err
		}

		children, err := activeChildren(tx, course.ID, childIDs)
		if err != nil {
			return err
		}
		if len(children) != len(childIDs) {
			return apperrors.New(apperrors.CodeChildInvalidSelection, "One or more selected child presentations are invalid.")
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND user_id = ?", course.ID, in.User.ID).
			First(&reg).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if exists && reg.Status == models.RegistrationFinal {
			return apperrors.New(apperrors.CodeAlreadyFinalOrApproved, "You already have an approved registration for this presentation.")
		}

		owned, err := ownedCourseIDs(tx, in.User.ID)
		if err != nil {
			return err
		}
		if owned[course.ID] {
			return apperrors.New(apperrors.CodeAlreadyOwned, "You already own this presentation.")
		}
		var ownedNames []string
		for _, c := range children {
			if owned[c.ID] {
				ownedNames = append(ownedNames, c.Name)
			}
		}
		if len(ownedNames) > 0 {
			return apperrors.New(apperrors.CodeChildAlreadyOwned,
				"You already own these selected child presentations: "+strings.Join(ownedNames, ", "))
		}

		parentFull, err := IsFull(tx, &course)
		if err != nil {
			return err
		}
		var fullChildren []string
		for i := range children {
			full, err := IsFull(tx, &children[i])
			if err != nil {
				return err
			}
			if full {
				fullChildren = append(fullChildren, children[i].Name)
			}
		}
		waitlisted := parentFull || len(fullChildren) > 0

		reg.CourseID = course.ID
		reg.UserID = in.User.ID
		if in.ResumeURL != "" {
			reg.ResumeURL = in.ResumeURL
		}
		reg.SubmittedAt = s.now()
		reg.RejectionReason = ""
		reg.Status = models.RegistrationQueued
		if waitlisted {
			reg.Status = models.RegistrationReserved
		}
		reg.Items = nil
		if err := tx.Omit(clause.Associations).Save(&reg).Error; err != nil {
			return err
		}

		if err := mergeExtraAnswers(tx, in.User.ID, in.ExtraAnswers); err != nil {
			return err
		}

		if err := tx.Where("registration_id = ?", reg.ID).Delete(&models.RegistrationItem{}).Error; err != nil {
			return err
		}
		for i := range children {
			item := models.RegistrationItem{
				RegistrationID: reg.ID,
				ChildCourseID:  children[i].ID,
				Price:          children[i].Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			item.ChildCourse = &children[i]
			reg.Items = append(reg.Items, item)
		}
		reg.Course = &course
		reg.User = in.User

		out.StatusChange(in.User.Email, notify.CourseRequestSubmitted, map[string]interface{}{
			"course":              course.Name,
			"registration_status": string(reg.Status),
			"waitlisted_children": strings.Join(fullChildren, ", "),
		})

		needsReview := course.RequiresApproval || waitlisted
		for _, c := range children {
			needsReview = needsReview || c.RequiresApproval
		}
		if needsReview || reg.Status != models.RegistrationQueued {
			return nil
		}
		return s.autoProgress(ctx, tx, &reg, &out)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📝 Registration %d for course %d is %s", reg.ID, reg.CourseID, reg.Status)
	out.Flush(ctx, s.notifier)
	return &reg, nil
}

// autoProgress finalizes a free registration or approves it for payment.
func (s *RegistrationService) autoProgress(ctx context.Context, tx *gorm.DB, reg *models.Registration, out *notify.Batch) error {
	total := totalAmount(reg)
	if total <= 0 {
		return s.finalize(tx, []*models.Registration{reg}, out)
	}
	return s.approve(ctx, tx, reg, ApproveOptions{Amount: &total, Description: bundleDescription(reg)}, out)
}

// ================== BACKOFFICE ==================

// SetStatusApproved approves a registration and sends the payment link.
func (s *RegistrationService) SetStatusApproved(ctx context.Context, regID uint, opts ApproveOptions) (*models.Registration, error) {
	return s.transition(ctx, regID, func(tx *gorm.DB, reg *models.Registration, out *notify.Batch) error {
		if !reg.Status.IsPreDecision() && reg.Status != models.RegistrationApproved {
			return apperrors.New(apperrors.CodeRegistrationInvalidState,
				fmt.Sprintf("Registration %d cannot be approved from %s", reg.ID, reg.Status))
		}
		if opts.PaymentLink == "" && opts.Amount == nil && totalAmount(reg) <= 0 {
			return s.finalize(tx, []*models.Registration{reg}, out)
		}
		return s.approve(ctx, tx, reg, opts, out)
	})
}

// SetStatusFinal finalizes registrations covered by one payment. A single
// notification goes to the owner of the first registration.
func (s *RegistrationService) SetStatusFinal(ctx context.Context, regIDs ...uint) ([]models.Registration, error) {
	var (
		out  notify.Batch
		regs []*models.Registration
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range dedupeIDs(regIDs) {
			reg, err := lockRegistration(tx, "id = ?", id)
			if err != nil {
				return err
			}
			if reg.Status == models.RegistrationRejected || reg.Status == models.RegistrationCancelled {
				return apperrors.New(apperrors.CodeRegistrationInvalidState,
					fmt.Sprintf("Registration %d cannot be finalized from %s", reg.ID, reg.Status))
			}
			regs = append(regs, reg)
		}
		return s.finalize(tx, regs, &out)
	})
	if err != nil {
		return nil, err
	}

	out.Flush(ctx, s.notifier)
	result := make([]models.Registration, len(regs))
	for i, reg := range regs {
		result[i] = *reg
	}
	return result, nil
}

// SetRejectionReason records why a registration is about to be rejected.
func (s *RegistrationService) SetRejectionReason(ctx context.Context, regID uint, reason string) (*models.Registration, error) {
	return s.transition(ctx, regID, func(tx *gorm.DB, reg *models.Registration, _ *notify.Batch) error {
		if reg.Status.IsTerminal() {
			return apperrors.New(apperrors.CodeRegistrationInvalidState,
				fmt.Sprintf("Registration %d is already %s", reg.ID, reg.Status))
		}
		reg.RejectionReason = strings.TrimSpace(reason)
		return tx.Model(reg).Update("rejection_reason", reg.RejectionReason).Error
	})
}

// SetStatusRejected rejects a registration whose rejection reason is set.
func (s *RegistrationService) SetStatusRejected(ctx context.Context, regID uint) (*models.Registration, error) {
	return s.transition(ctx, regID, func(tx *gorm.DB, reg *models.Registration, out *notify.Batch) error {
		if reg.RejectionReason == "" {
			return apperrors.New(apperrors.CodeRejectionReasonRequired, "rejection_reason must be set before rejecting")
		}
		if reg.Status.IsTerminal() {
			return apperrors.New(apperrors.CodeRegistrationInvalidState,
				fmt.Sprintf("Registration %d is already %s", reg.ID, reg.Status))
		}
		now := s.now()
		if err := tx.Model(reg).Updates(map[string]interface{}{
			"status":     models.RegistrationRejected,
			"decided_at": now,
		}).Error; err != nil {
			return err
		}
		reg.Status = models.RegistrationRejected
		reg.DecidedAt = &now
		out.StatusChange(reg.User.Email, notify.CourseRequestRejected, map[string]interface{}{
			"course": reg.Course.Name,
			"reason": reg.RejectionReason,
		})
		return nil
	})
}

// approve moves reg to APPROVED, initiating a bundle payment unless a link
// is supplied.
func (s *RegistrationService) approve(ctx context.Context, tx *gorm.DB, reg *models.Registration, opts ApproveOptions, out *notify.Batch) error {
	link := opts.PaymentLink
	if link == "" {
		amount := totalAmount(reg)
		if opts.Amount != nil {
			amount = *opts.Amount
		}
		description := opts.Description
		if description == "" {
			description = bundleDescription(reg)
		}

		courseIDs := []uint{reg.CourseID}
		childIDs := make([]uint, 0, len(reg.Items))
		for _, item := range reg.Items {
			childIDs = append(childIDs, item.ChildCourseID)
		}
		courseIDs = append(courseIDs, childIDs...)

		start, err := s.ledger.Initiate(ctx, tx, payment.InitiateRequest{
			User:        reg.User,
			Target:      payment.CourseBundleTarget{CourseIDs: courseIDs},
			Amount:      amount,
			Description: description,
			Metadata: map[string]interface{}{
				"reg_id":           reg.ID,
				"parent_course_id": reg.CourseID,
				"child_course_ids": childIDs,
			},
		}, out)
		if err != nil {
			return &apperrors.Error{
				Code:     apperrors.CodeRegistrationPaymentFailed,
				Message:  "Payment initiate failed: " + err.Error(),
				Metadata: map[string]string{"cause": string(apperrors.CodeOf(err))},
				Cause:    err,
			}
		}
		link = start.EmailURL
	}

	now := s.now()
	if err := tx.Model(reg).Updates(map[string]interface{}{
		"status":       models.RegistrationApproved,
		"payment_link": link,
		"decided_at":   now,
	}).Error; err != nil {
		return err
	}
	reg.Status = models.RegistrationApproved
	reg.PaymentLink = link
	reg.DecidedAt = &now

	out.StatusChange(reg.User.Email, notify.CourseRequestApproved, map[string]interface{}{
		"course":       reg.Course.Name,
		"payment_link": link,
	})
	return nil
}

// finalize marks regs FINAL and sends one notification keyed off the first.
func (s *RegistrationService) finalize(tx *gorm.DB, regs []*models.Registration, out *notify.Batch) error {
	if len(regs) == 0 {
		return nil
	}
	now := s.now()
	for _, reg := range regs {
		if err := tx.Model(reg).Updates(map[string]interface{}{
			"status":       models.RegistrationFinal,
			"decided_at":   now,
			"payment_link": "",
		}).Error; err != nil {
			return err
		}
		reg.Status = models.RegistrationFinal
		reg.DecidedAt = &now
		reg.PaymentLink = ""
		log.Printf("✅ Registration %d is FINAL", reg.ID)
	}

	first := regs[0]
	out.StatusChange(first.User.Email, notify.CourseRequestFinal, map[string]interface{}{
		"course": first.Course.Name,
	})
	return nil
}

// ================== PAYMENT SETTLEMENT ==================

// CoursePaid finalizes the payer's approved registrations of the bundle's
// parent course.
func (s *RegistrationService) CoursePaid(_ context.Context, tx *gorm.DB, p *models.Payment, t payment.CourseBundleTarget, out *notify.Batch) error {
	parentID := t.CourseIDs[0]

	var ids []uint
	if err := tx.Model(&models.Registration{}).
		Where("user_id = ? AND course_id = ? AND status = ?", p.UserID, parentID, models.RegistrationApproved).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		log.Printf("⚠️ Payment %d: no approved registration of course %d for user %d", p.ID, parentID, p.UserID)
		return nil
	}

	regs := make([]*models.Registration, 0, len(ids))
	for _, id := range ids {
		reg, err := lockRegistration(tx, "id = ?", id)
		if err != nil {
			return err
		}
		regs = append(regs, reg)
	}
	return s.finalize(tx, regs, out)
}

// CoursePaymentFailed leaves the registration APPROVED so the user can pay
// again from the same link.
func (s *RegistrationService) CoursePaymentFailed(_ context.Context, _ *gorm.DB, p *models.Payment, t payment.CourseBundleTarget, _ *notify.Batch) error {
	log.Printf("⚠️ Payment %d for course bundle %s failed; registration stays APPROVED", p.ID, t.ID())
	return nil
}

func (s *RegistrationService) FinalizeRegistration(_ context.Context, tx *gorm.DB, userID, regID uint, out *notify.Batch) error {
	reg, err := lockRegistration(tx, "id = ? AND user_id = ?", regID, userID)
	if err != nil {
		return err
	}
	switch reg.Status {
	case models.RegistrationFinal:
		return nil
	case models.RegistrationRejected, models.RegistrationCancelled:
		return apperrors.New(apperrors.CodeRegistrationInvalidState,
			fmt.Sprintf("Registration %d cannot be finalized from %s", reg.ID, reg.Status))
	}
	return s.finalize(tx, []*models.Registration{reg}, out)
}

// ================== SESSIONS ==================

// CreateSessionLink returns a join link for a live session of course. The
// user must own the course and the call must fall inside a session window.
func (s *RegistrationService) CreateSessionLink(ctx context.Context, user *models.User, course *models.Course) (string, error) {
	if user == nil || course == nil {
		return "", apperrors.New(apperrors.CodeSessionUnavailable, "Session link unavailable")
	}
	db := s.db.WithContext(ctx)

	ok, err := HasCourseAccess(db, user.ID, course.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.New(apperrors.CodeSessionUnavailable,
			"You are not registered for this presentation or it's not within the scheduled time window.")
	}

	now := s.now().In(s.loc)
	var rules []models.ScheduleRule
	if err := db.Where("course_id = ? AND weekday = ?", course.ID, models.MondayWeekday(now.Weekday())).
		Find(&rules).Error; err != nil {
		return "", err
	}
	window := time.Duration(s.cfg.SessionWindowMinutes) * time.Minute
	if !InSessionWindow(rules, now, window) {
		return "", apperrors.New(apperrors.CodeSessionUnavailable,
			"You are not registered for this presentation or it's not within the scheduled time window.")
	}

	ttl := s.cfg.Skyroom.LinkTTL
	if ttl <= 0 {
		ttl = 5400 * time.Second
	}
	link, err := s.rooms.CreateJoinLink(ctx, videoroom.JoinRequest{
		RoomID:   s.cfg.Skyroom.RoomID,
		UserID:   user.Email,
		Nickname: user.FullName(),
		TTL:      ttl,
	})
	if err != nil {
		return "", fmt.Errorf("create join link: %w", err)
	}
	if link == "" {
		return "", apperrors.New(apperrors.CodeSessionUnavailable, "Session provider returned no link")
	}
	return link, nil
}

// HasCourseAccess reports whether the user holds a FINAL registration for
// the course itself, for a parent that lists it as a child, or one that
// selected it as an item.
func HasCourseAccess(db *gorm.DB, userID, courseID uint) (bool, error) {
	var n int64
	if err := db.Model(&models.Registration{}).
		Where("user_id = ? AND status = ? AND course_id = ?", userID, models.RegistrationFinal, courseID).
		Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}

	if err := db.Model(&models.RegistrationItem{}).
		Joins("JOIN registrations ON registrations.id = registration_items.registration_id").
		Where("registrations.user_id = ? AND registrations.status = ? AND registration_items.child_course_id = ?",
			userID, models.RegistrationFinal, courseID).
		Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}

	err := db.Model(&models.Registration{}).
		Joins("JOIN course_children ON course_children.parent_id = registrations.course_id").
		Where("registrations.user_id = ? AND registrations.status = ? AND course_children.child_id = ?",
			userID, models.RegistrationFinal, courseID).
		Count(&n).Error
	return n > 0, err
}

// InSessionWindow reports whether now falls within window of any rule's
// time slot on now's date.
func InSessionWindow(rules []models.ScheduleRule, now time.Time, window time.Duration) bool {
	for _, rule := range rules {
		start, end, err := rule.Window(now)
		if err != nil {
			log.Printf("⚠️ Skipping schedule rule %d: %v", rule.ID, err)
			continue
		}
		if !now.Before(start.Add(-window)) && !now.After(end.Add(window)) {
			return true
		}
	}
	return false
}

// ================== QUERIES ==================

// Get returns a registration with course, user and items.
func (s *RegistrationService) Get(ctx context.Context, regID uint) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("User").
		Preload("Items.ChildCourse").
		First(&reg, regID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Registration not found")
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListForUser returns the user's registrations, newest first.
func (s *RegistrationService) ListForUser(ctx context.Context, userID uint) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Course").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Preload("Items.ChildCourse").
		Order("submitted_at DESC, id DESC").
		Find(&regs).Error
	return regs, err
}

// ForCourse returns the user's registration for a course, or nil.
func (s *RegistrationService) ForCourse(ctx context.Context, userID, courseID uint) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Preload("Items.ChildCourse").
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ================== HELPERS ==================

func (s *RegistrationService) transition(ctx context.Context, regID uint, fn func(tx *gorm.DB, reg *models.Registration, out *notify.Batch) error) (*models.Registration, error) {
	var (
		out    notify.Batch
		result *models.Registration
	)
	err := s.ledger.WithinTransaction(ctx, func(tx *gorm.DB) error {
		reg, err := lockRegistration(tx, "id = ?", regID)
		if err != nil {
			return err
		}
		if err := fn(tx, reg, &out); err != nil {
			return err
		}
		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Flush(ctx, s.notifier)
	return result, nil
}

// lockRegistration selects the registration matching query FOR UPDATE
// and loads its course, user and items.
func lockRegistration(tx *gorm.DB, query string, args ...interface{}) (*models.Registration, error) {
	var reg models.Registration
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Registration not found")
	}
	if err != nil {
		return nil, err
	}

	var course models.Course
	if err := tx.First(&course, reg.CourseID).Error; err != nil {
		return nil, fmt.Errorf("load course %d: %w", reg.CourseID, err)
	}
	var user models.User
	if err := tx.First(&user, reg.UserID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", reg.UserID, err)
	}
	if err := tx.Where("registration_id = ?", reg.ID).Order("id").
		Preload("ChildCourse").Find(&reg.Items).Error; err != nil {
		return nil, fmt.Errorf("load items of registration %d: %w", reg.ID, err)
	}
	reg.Course = &course
	reg.User = &user
	return &reg, nil
}

// activeChildren returns the active children of parent among ids.
func activeChildren(tx *gorm.DB, parentID uint, ids []uint) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var children []models.Course
	err := tx.Joins("JOIN course_children ON course_children.child_id = courses.id").
		Where("course_children.parent_id = ? AND courses.is_active = ? AND courses.id IN ?", parentID, true, ids).
		Order("courses.id").
		Find(&children).Error
	return children, err
}

// ownedCourseIDs returns the courses and child courses of the user's
// FINAL registrations.
func ownedCourseIDs(tx *gorm.DB, userID uint) (map[uint]bool, error) {
	var parents []uint
	if err := tx.Model(&models.Registration{}).
		Where("user_id = ? AND status = ?", userID, models.RegistrationFinal).
		Pluck("course_id", &parents).Error; err != nil {
		return nil, err
	}
	var children []uint
	if err := tx.Model(&models.RegistrationItem{}).
		Joins("JOIN registrations ON registrations.id = registration_items.registration_id").
		Where("registrations.user_id = ? AND registrations.status = ?", userID, models.RegistrationFinal).
		Pluck("registration_items.child_course_id", &children).Error; err != nil {
		return nil, err
	}

	owned := make(map[uint]bool, len(parents)+len(children))
	for _, id := range append(parents, children...) {
		owned[id] = true
	}
	return owned, nil
}

// mergeExtraAnswers folds answers into the user's extra data. Numeric
// fields that do not parse are left unchanged.
func mergeExtraAnswers(tx *gorm.DB, userID uint, answers map[string]interface{}) error {
	if len(answers) == 0 {
		return nil
	}
	var extra models.UserExtraData
	if err := tx.Where(models.UserExtraData{UserID: userID}).FirstOrCreate(&extra).Error; err != nil {
		return fmt.Errorf("load extra data: %w", err)
	}

	merged := datatypes.JSONMap{}
	for k, v := range extra.Answers {
		merged[k] = v
	}
	for k, v := range answers {
		merged[k] = v
	}
	extra.Answers = merged

	if v, ok := answers["codeforces_score"]; ok {
		if score, ok := coerceInt(v); ok {
			extra.CodeforcesScore = score
		}
	}
	if v, ok := answers["codeforces_handle"]; ok && v != nil {
		extra.CodeforcesHandle = clip(fmt.Sprint(v), 64)
	}
	return tx.Save(&extra).Error
}

func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func totalAmount(reg *models.Registration) int64 {
	var total int64
	if reg.Course != nil {
		total = reg.Course.Price
	}
	for _, item := range reg.Items {
		total += item.Price
	}
	return total
}

// bundleDescription renders "parent-slug + [child-slug, ...]".
func bundleDescription(reg *models.Registration) string {
	slug := ""
	if reg.Course != nil {
		slug = reg.Course.Slug
	}
	var children []string
	for _, item := range reg.Items {
		if item.ChildCourse != nil {
			children = append(children, item.ChildCourse.Slug)
		}
	}
	if len(children) == 0 {
		return slug
	}
	return slug + " + [" + strings.Join(children, ", ") + "]"
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
