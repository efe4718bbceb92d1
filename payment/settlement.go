package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"acmportal/models"
	"acmportal/notify"

	"gorm.io/gorm"
)

// CompetitionListener moves a team request when its signup fee settles.
type CompetitionListener interface {
	CompetitionPaid(ctx context.Context, tx *gorm.DB, p *models.Payment, t CompetitionTarget, out *notify.Batch) error
	CompetitionPaymentFailed(ctx context.Context, tx *gorm.DB, p *models.Payment, t CompetitionTarget, out *notify.Batch) error
}

// CourseListener moves course registrations when a bundle settles.
type CourseListener interface {
	CoursePaid(ctx context.Context, tx *gorm.DB, p *models.Payment, t CourseBundleTarget, out *notify.Batch) error
	CoursePaymentFailed(ctx context.Context, tx *gorm.DB, p *models.Payment, t CourseBundleTarget, out *notify.Batch) error
	// FinalizeRegistration finalizes the registration a payment was
	// started for, identified by the reg_id metadata key.
	FinalizeRegistration(ctx context.Context, tx *gorm.DB, userID, regID uint, out *notify.Batch) error
}

var errNoListener = errors.New("no settlement listener registered")

func (l *Ledger) RegisterCompetition(listener CompetitionListener) {
	l.competition = listener
}

func (l *Ledger) RegisterCourse(listener CourseListener) {
	l.course = listener
}

// settle dispatches a terminal payment to the listener of its target.
func (l *Ledger) settle(ctx context.Context, tx *gorm.DB, p *models.Payment, out *notify.Batch) error {
	target, err := TargetOf(p)
	if err != nil {
		return err
	}
	paid := p.Status == models.PaymentSuccessful

	switch t := target.(type) {
	case CompetitionTarget:
		if l.competition == nil {
			return errNoListener
		}
		if paid {
			return l.competition.CompetitionPaid(ctx, tx, p, t, out)
		}
		return l.competition.CompetitionPaymentFailed(ctx, tx, p, t, out)
	case CourseBundleTarget:
		if l.course == nil {
			return errNoListener
		}
		if paid {
			return l.course.CoursePaid(ctx, tx, p, t, out)
		}
		return l.course.CoursePaymentFailed(ctx, tx, p, t, out)
	}
	return fmt.Errorf("unhandled target %T", target)
}

// settleBounded runs settle in a savepoint. A listener failure rolls back
// only the listener's writes; it is logged and stored on the payment so
// the payment outcome itself is kept.
func (l *Ledger) settleBounded(ctx context.Context, tx *gorm.DB, p *models.Payment, out *notify.Batch) {
	var local notify.Batch
	err := tx.Transaction(func(sp *gorm.DB) error {
		return l.settle(ctx, sp, p, &local)
	})
	if err == nil {
		out.Add(local.Messages()...)
		return
	}

	log.Printf("❌ Settlement of payment %d (%s %s) failed: %v", p.ID, p.TargetType, p.TargetID, err)
	if p.Metadata == nil {
		p.Metadata = map[string]interface{}{}
	}
	p.Metadata["settlement_error"] = err.Error()
	if err := tx.Model(p).Update("metadata", p.Metadata).Error; err != nil {
		log.Printf("❌ Failed to record settlement error on payment %d: %v", p.ID, err)
	}
}

// finalizeRegistration eagerly finalizes the registration named in the
// payment metadata. Errors are ignored; the course listener already ran.
func (l *Ledger) finalizeRegistration(ctx context.Context, tx *gorm.DB, p *models.Payment, out *notify.Batch) {
	if l.course == nil || p.TargetType != models.TargetCourse {
		return
	}
	regID, ok := metaUint(p.Metadata, "reg_id")
	if !ok {
		return
	}
	var local notify.Batch
	err := tx.Transaction(func(sp *gorm.DB) error {
		return l.course.FinalizeRegistration(ctx, sp, p.UserID, regID, &local)
	})
	if err != nil {
		log.Printf("⚠️ Eager finalization of registration %d skipped: %v", regID, err)
		return
	}
	out.Add(local.Messages()...)
}

// metaUint reads an id stored in a JSON metadata map. Values read back
// from the database are json.Number; values set in memory keep their type.
func metaUint(meta map[string]interface{}, key string) (uint, bool) {
	switch v := meta[key].(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		return uint(n), err == nil && n > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return uint(n), err == nil && n > 0
	}
	return 0, false
}
