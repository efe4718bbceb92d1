// services/team_request_service.go - Competition team requests and member approval
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"acmportal/apperrors"
	"acmportal/config"
	"acmportal/models"
	"acmportal/notify"
	"acmportal/payment"
	"acmportal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const approvalTokenBytes = 24

var blockingStatuses = []models.TeamRequestStatus{
	models.TeamRequestPendingApproval,
	models.TeamRequestPendingInvestigation,
	models.TeamRequestPendingPayment,
	models.TeamRequestFinal,
}

// Participant is one team member as entered by the submitter.
type Participant struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phone_number"`
	NationalID       string `json:"national_id"`
	StudentNumber    string `json:"student_number"`
	StudentCardImage string `json:"student_card_image"`
	NationalIDImage  string `json:"national_id_image"`
	TshirtSize       string `json:"tshirt_size"`
	UniversityName   string `json:"university_name"`
}

func (p Participant) field(name string) string {
	switch name {
	case "first_name":
		return p.FirstName
	case "last_name":
		return p.LastName
	case "email":
		return p.Email
	case "phone_number":
		return p.PhoneNumber
	case "national_id":
		return p.NationalID
	case "student_number":
		return p.StudentNumber
	case "student_card_image":
		return p.StudentCardImage
	case "national_id_image":
		return p.NationalIDImage
	case "tshirt_size":
		return p.TshirtSize
	case "university_name":
		return p.UniversityName
	}
	return ""
}

// Always validated; a competition without a field config requires them all.
var coreParticipantFields = []string{
	"first_name", "last_name", "email", "phone_number",
	"national_id", "student_card_image", "national_id_image", "tshirt_size",
}

// Validated only when the competition configures them.
var configuredParticipantFields = []string{"student_number", "university_name"}

// FieldModes lists the participant fields that apply to a competition
// and their modes.
func FieldModes(cfg *models.CompetitionFieldConfig) map[string]models.FieldRequirement {
	modes := make(map[string]models.FieldRequirement)
	for _, name := range coreParticipantFields {
		modes[name] = cfg.Requirement(name)
	}
	if cfg != nil {
		for _, name := range configuredParticipantFields {
			modes[name] = cfg.Requirement(name)
		}
	}
	return modes
}

// ValidateParticipant checks populated fields against the competition's
// per-field modes.
func ValidateParticipant(cfg *models.CompetitionFieldConfig, p Participant) error {
	fields := coreParticipantFields
	if cfg != nil {
		fields = append(append([]string{}, coreParticipantFields...), configuredParticipantFields...)
	}
	for _, name := range fields {
		mode := cfg.Requirement(name)
		hasValue := strings.TrimSpace(p.field(name)) != ""
		if mode == models.FieldHidden && hasValue {
			return apperrors.WithMetadata(apperrors.CodeFieldInvalid,
				name+": Field not allowed for this competition", map[string]string{"field": name})
		}
		if mode == models.FieldRequired && !hasValue {
			return apperrors.WithMetadata(apperrors.CodeFieldInvalid,
				name+": Field is required", map[string]string{"field": name})
		}
	}
	return nil
}

type TeamRequestService struct {
	db       *gorm.DB
	ledger   *payment.Ledger
	notifier notify.Notifier
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewTeamRequestService(db *gorm.DB, ledger *payment.Ledger, notifier notify.Notifier, cfg config.Config) *TeamRequestService {
	ttl := cfg.ApprovalTokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TeamRequestService{
		db:       db,
		ledger:   ledger,
		notifier: notifier,
		secret:   cfg.SecretKey,
		tokenTTL: ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TeamRequestService) hashToken(token string) string {
	return utils.HMACSHA256Hex(s.secret, token)
}

// SubmitTeamInput is a new team signup.
type SubmitTeamInput struct {
	Competition  *models.Competition
	Submitter    *models.User
	TeamName     string
	Participants []Participant
}

// ================== SUBMISSION ==================

// Submit creates a PENDING_APPROVAL request and emails every member a
// one-time approval link.
func (s *TeamRequestService) Submit(ctx context.Context, in SubmitTeamInput) (*models.TeamRequest, error) {
	if in.Submitter == nil || !in.Submitter.IsEmailVerified {
		return nil, apperrors.New(apperrors.CodeEmailNotVerified, "Login with verified email required")
	}
	comp := in.Competition
	if comp == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "Competition not found")
	}

	n := len(in.Participants)
	if n < comp.MinTeamSize || n > comp.MaxTeamSize {
		return nil, apperrors.New(apperrors.CodeTeamSizeInvalid,
			fmt.Sprintf("Team size must be between %d and %d", comp.MinTeamSize, comp.MaxTeamSize))
	}

	var out notify.Batch
	var tr models.TeamRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg := comp.FieldConfig
		if cfg == nil {
			var loaded models.CompetitionFieldConfig
			err := tx.Where("competition_id = ?", comp.ID).First(&loaded).Error
			if err == nil {
				cfg = &loaded
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		seen := map[string]bool{}
		for _, p := range in.Participants {
			if err := ValidateParticipant(cfg, p); err != nil {
				return err
			}
			email := normalizeEmail(p.Email)
			if seen[email] {
				return apperrors.New(apperrors.CodeDuplicateParticipantEmail, "Duplicate participant email in payload")
			}
			seen[email] = true

			active, err := hasActiveMembership(tx, comp.ID, email)
			if err != nil {
				return err
			}
			if active {
				return apperrors.WithMetadata(apperrors.CodeParticipantAlreadyActive,
					email+" is already on another active team for this competition",
					map[string]string{"email": email})
			}
		}

		tr = models.TeamRequest{
			CompetitionID: comp.ID,
			SubmitterID:   in.Submitter.ID,
			TeamName:      strings.TrimSpace(in.TeamName),
			Status:        models.TeamRequestPendingApproval,
		}
		if err := tx.Create(&tr).Error; err != nil {
			return err
		}

		expires := s.now().Add(s.tokenTTL)
		submitterEmail := normalizeEmail(in.Submitter.Email)
		for _, p := range in.Participants {
			token, err := utils.RandomToken(approvalTokenBytes)
			if err != nil {
				return err
			}
			member := models.TeamMember{
				RequestID:              tr.ID,
				FirstName:              p.FirstName,
				LastName:               p.LastName,
				Email:                  normalizeEmail(p.Email),
				PhoneNumber:            p.PhoneNumber,
				NationalID:             p.NationalID,
				StudentNumber:          p.StudentNumber,
				StudentCardImage:       p.StudentCardImage,
				NationalIDImage:        p.NationalIDImage,
				TshirtSize:             p.TshirtSize,
				UniversityName:         p.UniversityName,
				ApprovalStatus:         models.ApprovalPending,
				ApprovalTokenHash:      s.hashToken(token),
				ApprovalTokenExpiresAt: &expires,
			}
			if member.Email == submitterEmail {
				member.UserID = &in.Submitter.ID
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			tr.Members = append(tr.Members, member)

			out.StatusChange(member.Email, notify.CompetitionMemberApproval, map[string]interface{}{
				"competition": comp.Name,
				"team_name":   tr.TeamName,
				"action_link": fmt.Sprintf("/api/competitions/approve?rid=%d&token=%s", tr.ID, token),
			})
		}

		out.StatusChange(in.Submitter.Email, notify.CompetitionRequestSubmitted, map[string]interface{}{
			"competition": comp.Name,
			"team_name":   tr.TeamName,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📝 Team request %d submitted for %s with %d member(s)", tr.ID, comp.Slug, len(tr.Members))
	out.Flush(ctx, s.notifier)
	return &tr, nil
}

func hasActiveMembership(tx *gorm.DB, competitionID uint, email string) (bool, error) {
	var count int64
	err := tx.Model(&models.TeamMember{}).
		Joins("JOIN team_requests ON team_requests.id = team_members.request_id").
		Where("team_requests.competition_id = ? AND lower(team_members.email) = ? AND team_requests.status IN ?",
			competitionID, email, blockingStatuses).
		Count(&count).Error
	return count > 0, err
}

// ================== MEMBER APPROVAL ==================

// ApproveOrReject records a member's decision from their approval link.
// Replaying a consumed link returns the member unchanged.
func (s *TeamRequestService) ApproveOrReject(ctx context.Context, requestID uint, token string, accept bool) (*models.TeamMember, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.CodeInvalidOrExpiredToken, "Invalid or expired token")
	}
	hash := s.hashToken(token)

	var (
		out    notify.Batch
		member models.TeamMember
	)
	err := s.ledger.WithinTransaction(ctx, func(tx *gorm.DB) error {
		tr, err := lockTeamRequest(tx, requestID)
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.New(apperrors.CodeInvalidOrExpiredToken, "Invalid or expired token")
		}
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("request_id = ? AND (approval_token_hash = ? OR consumed_token_hash = ?)", requestID, hash, hash).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeInvalidOrExpiredToken, "Invalid or expired token")
		}
		if err != nil {
			return err
		}

		if member.ApprovalStatus != models.ApprovalPending {
			return nil
		}
		now := s.now()
		if member.ApprovalTokenExpiresAt != nil && member.ApprovalTokenExpiresAt.Before(now) {
			return apperrors.New(apperrors.CodeTokenExpired, "Token expired")
		}

		member.ApprovalStatus = models.ApprovalRejected
		if accept {
			member.ApprovalStatus = models.ApprovalApproved
		}
		member.ApprovalAt = &now
		member.ApprovalTokenHash = ""
		member.ConsumedTokenHash = hash
		if err := tx.Model(&member).Updates(map[string]interface{}{
			"approval_status":     member.ApprovalStatus,
			"approval_at":         now,
			"approval_token_hash": "",
			"consumed_token_hash": hash,
		}).Error; err != nil {
			return err
		}

		if tr.Status != models.TeamRequestPendingApproval {
			return nil
		}
		return s.advanceAfterDecision(ctx, tx, tr, &out)
	})
	if err != nil {
		return nil, err
	}

	out.Flush(ctx, s.notifier)
	return &member, nil
}

// advanceAfterDecision moves a PENDING_APPROVAL request once a rejection
// arrives or every member has decided.
func (s *TeamRequestService) advanceAfterDecision(ctx context.Context, tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
	var rejected, pending int64
	if err := tx.Model(&models.TeamMember{}).
		Where("request_id = ? AND approval_status = ?", tr.ID, models.ApprovalRejected).
		Count(&rejected).Error; err != nil {
		return err
	}
	if rejected > 0 {
		if err := setTeamStatus(tx, tr, models.TeamRequestRejected); err != nil {
			return err
		}
		out.StatusChange(tr.Submitter.Email, notify.CompetitionRequestRejected, map[string]interface{}{
			"competition": tr.Competition.Name,
		})
		return nil
	}

	if err := tx.Model(&models.TeamMember{}).
		Where("request_id = ? AND approval_status = ?", tr.ID, models.ApprovalPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	if tr.Competition.RequiresBackofficeApproval {
		if err := setTeamStatus(tx, tr, models.TeamRequestPendingInvestigation); err != nil {
			return err
		}
		out.StatusChange(tr.Submitter.Email, notify.CompetitionPendingInvestigation, map[string]interface{}{
			"competition": tr.Competition.Name,
		})
		return nil
	}
	return s.startPayment(ctx, tx, tr, out)
}

// startPayment requests the signup fee and moves the request to
// PENDING_PAYMENT. A free competition is finalized without a payment.
func (s *TeamRequestService) startPayment(ctx context.Context, tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
	if tr.Competition.SignupFee <= 0 {
		tr.PaymentLink = ""
		if err := tx.Model(tr).Updates(map[string]interface{}{
			"status":       models.TeamRequestFinal,
			"payment_link": "",
		}).Error; err != nil {
			return err
		}
		tr.Status = models.TeamRequestFinal
		log.Printf("✅ Team request %d finalized without payment (free competition)", tr.ID)
		return s.notifyMembers(tx, tr, notify.CompetitionRequestFinal, map[string]interface{}{
			"competition": tr.Competition.Name,
		}, out)
	}

	start, err := s.ledger.Initiate(ctx, tx, payment.InitiateRequest{
		User:        tr.Submitter,
		Target:      payment.CompetitionTarget{RequestID: tr.ID},
		Amount:      tr.Competition.SignupFee,
		Description: fmt.Sprintf("Competition %s #%d", tr.Competition.Name, tr.ID),
	}, out)
	if err != nil {
		return &apperrors.Error{
			Code:     apperrors.CodeCompetitionPaymentInitFailed,
			Message:  "Payment initiate failed: " + err.Error(),
			Metadata: map[string]string{"cause": string(apperrors.CodeOf(err))},
			Cause:    err,
		}
	}

	tr.PaymentLink = start.EmailURL
	if err := tx.Model(tr).Updates(map[string]interface{}{
		"status":       models.TeamRequestPendingPayment,
		"payment_link": start.EmailURL,
	}).Error; err != nil {
		return err
	}
	tr.Status = models.TeamRequestPendingPayment
	out.StatusChange(tr.Submitter.Email, notify.CompetitionPendingPayment, map[string]interface{}{
		"link": tr.PaymentLink,
	})
	return nil
}

// ================== SUBMITTER ACTIONS ==================

// Cancel withdraws a pending request of an approval-mode competition.
func (s *TeamRequestService) Cancel(ctx context.Context, requestID uint, byUser *models.User) (*models.TeamRequest, error) {
	return s.transition(ctx, requestID, func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
		if byUser == nil || tr.SubmitterID != byUser.ID {
			return apperrors.New(apperrors.CodeOnlySubmitterCanCancel, "Only submitter can cancel")
		}
		if !tr.Competition.RequiresBackofficeApproval {
			return apperrors.New(apperrors.CodeCancellationNotApplicable, "Cancellation is only applicable for approval-mode competitions")
		}
		if tr.Status != models.TeamRequestPendingApproval && tr.Status != models.TeamRequestPendingInvestigation {
			return apperrors.New(apperrors.CodeCancellationNotAllowedState, "Only pending requests can be cancelled")
		}
		if err := setTeamStatus(tx, tr, models.TeamRequestCancelled); err != nil {
			return err
		}
		out.StatusChange(tr.Submitter.Email, notify.CompetitionRequestCancelled, map[string]interface{}{
			"competition": tr.Competition.Name,
		})
		return nil
	})
}

// ================== BACKOFFICE ==================

// BackofficeApprove clears investigation and starts the signup payment.
func (s *TeamRequestService) BackofficeApprove(ctx context.Context, requestID uint) (*models.TeamRequest, error) {
	return s.transition(ctx, requestID, func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
		if tr.Status != models.TeamRequestPendingInvestigation {
			return apperrors.New(apperrors.CodeNotInInvestigationState, "Request not in investigation state")
		}
		return s.startPayment(ctx, tx, tr, out)
	})
}

// BackofficeReject rejects a request and tells every member why.
func (s *TeamRequestService) BackofficeReject(ctx context.Context, requestID uint, reason string) (*models.TeamRequest, error) {
	return s.transition(ctx, requestID, func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
		if tr.Status != models.TeamRequestPendingInvestigation && tr.Status != models.TeamRequestPendingApproval {
			return apperrors.New(apperrors.CodeBackofficeRejectInvalidState, "Request not in a rejectable state")
		}
		if err := setTeamStatus(tx, tr, models.TeamRequestRejected); err != nil {
			return err
		}
		return s.notifyMembers(tx, tr, notify.CompetitionRequestRejected, map[string]interface{}{
			"competition": tr.Competition.Name,
			"reason":      reason,
		}, out)
	})
}

// MarkFinal finalizes a request whose payment succeeded.
func (s *TeamRequestService) MarkFinal(ctx context.Context, requestID uint) (*models.TeamRequest, error) {
	return s.transition(ctx, requestID, func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
		return s.markFinal(tx, tr, out)
	})
}

// MarkPaymentRejected closes a request whose payment failed.
func (s *TeamRequestService) MarkPaymentRejected(ctx context.Context, requestID uint) (*models.TeamRequest, error) {
	return s.transition(ctx, requestID, func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
		return s.markPaymentRejected(tx, tr, out)
	})
}

func (s *TeamRequestService) markFinal(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
	if tr.Status == models.TeamRequestFinal {
		return nil
	}
	if tr.Status != models.TeamRequestPendingPayment {
		return apperrors.New(apperrors.CodeTeamRequestInvalidState,
			fmt.Sprintf("Request %d cannot be finalized from %s", tr.ID, tr.Status))
	}
	if err := setTeamStatus(tx, tr, models.TeamRequestFinal); err != nil {
		return err
	}
	log.Printf("✅ Team request %d is FINAL", tr.ID)
	return s.notifyMembers(tx, tr, notify.CompetitionRequestFinal, map[string]interface{}{
		"competition": tr.Competition.Name,
	}, out)
}

func (s *TeamRequestService) markPaymentRejected(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error {
	if tr.Status == models.TeamRequestPaymentRejected {
		return nil
	}
	if tr.Status != models.TeamRequestPendingPayment {
		return apperrors.New(apperrors.CodeTeamRequestInvalidState,
			fmt.Sprintf("Request %d payment cannot be rejected from %s", tr.ID, tr.Status))
	}
	if err := setTeamStatus(tx, tr, models.TeamRequestPaymentRejected); err != nil {
		return err
	}
	out.StatusChange(tr.Submitter.Email, notify.CompetitionPaymentRejected, map[string]interface{}{
		"competition": tr.Competition.Name,
	})
	return nil
}

// ================== PAYMENT SETTLEMENT ==================

func (s *TeamRequestService) CompetitionPaid(_ context.Context, tx *gorm.DB, _ *models.Payment, t payment.CompetitionTarget, out *notify.Batch) error {
	tr, err := lockTeamRequest(tx, t.RequestID)
	if err != nil {
		return err
	}
	return s.markFinal(tx, tr, out)
}

func (s *TeamRequestService) CompetitionPaymentFailed(_ context.Context, tx *gorm.DB, _ *models.Payment, t payment.CompetitionTarget, out *notify.Batch) error {
	tr, err := lockTeamRequest(tx, t.RequestID)
	if err != nil {
		return err
	}
	return s.markPaymentRejected(tx, tr, out)
}

// ================== QUERIES ==================

// Get returns a request with competition and members.
func (s *TeamRequestService) Get(ctx context.Context, requestID uint) (*models.TeamRequest, error) {
	var tr models.TeamRequest
	err := s.db.WithContext(ctx).
		Preload("Competition").
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		First(&tr, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Team request not found")
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// ListForSubmitter returns the user's requests, newest first.
func (s *TeamRequestService) ListForSubmitter(ctx context.Context, userID uint) ([]models.TeamRequest, error) {
	var requests []models.TeamRequest
	err := s.db.WithContext(ctx).
		Where("submitter_id = ?", userID).
		Preload("Competition").
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

// ListByStatus returns requests in a status for backoffice review.
func (s *TeamRequestService) ListByStatus(ctx context.Context, status models.TeamRequestStatus) ([]models.TeamRequest, error) {
	var requests []models.TeamRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Preload("Competition").
		Preload("Submitter").
		Preload("Members").
		Order("created_at ASC, id ASC").
		Find(&requests).Error
	return requests, err
}

// ================== HELPERS ==================

// transition runs fn against a locked request and flushes its
// notifications after commit.
func (s *TeamRequestService) transition(ctx context.Context, requestID uint, fn func(tx *gorm.DB, tr *models.TeamRequest, out *notify.Batch) error) (*models.TeamRequest, error) {
	var (
		out    notify.Batch
		result *models.TeamRequest
	)
	err := s.ledger.WithinTransaction(ctx, func(tx *gorm.DB) error {
		tr, err := lockTeamRequest(tx, requestID)
		if err != nil {
			return err
		}
		if err := fn(tx, tr, &out); err != nil {
			return err
		}
		result = tr
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Flush(ctx, s.notifier)
	return result, nil
}

// lockTeamRequest selects a request FOR UPDATE and loads its competition
// and submitter.
func lockTeamRequest(tx *gorm.DB, id uint) (*models.TeamRequest, error) {
	var tr models.TeamRequest
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tr, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Team request not found")
	}
	if err != nil {
		return nil, err
	}

	var comp models.Competition
	if err := tx.First(&comp, tr.CompetitionID).Error; err != nil {
		return nil, fmt.Errorf("load competition %d: %w", tr.CompetitionID, err)
	}
	var submitter models.User
	if err := tx.First(&submitter, tr.SubmitterID).Error; err != nil {
		return nil, fmt.Errorf("load submitter %d: %w", tr.SubmitterID, err)
	}
	tr.Competition = &comp
	tr.Submitter = &submitter
	return &tr, nil
}

func setTeamStatus(tx *gorm.DB, tr *models.TeamRequest, status models.TeamRequestStatus) error {
	if err := tx.Model(tr).Update("status", status).Error; err != nil {
		return err
	}
	tr.Status = status
	return nil
}

func (s *TeamRequestService) notifyMembers(tx *gorm.DB, tr *models.TeamRequest, code string, extra map[string]interface{}, out *notify.Batch) error {
	var emails []string
	if err := tx.Model(&models.TeamMember{}).
		Where("request_id = ?", tr.ID).
		Order("id").
		Pluck("email", &emails).Error; err != nil {
		return err
	}
	for _, email := range emails {
		out.StatusChange(email, code, extra)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
