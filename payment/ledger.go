// Package payment records gateway payment attempts and settles their
// outcome with the workflow that requested them.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"acmportal/apperrors"
	"acmportal/config"
	"acmportal/gateway"
	"acmportal/models"
	"acmportal/notify"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	db       *gorm.DB
	gw       gateway.Gateway
	cfg      config.Payment
	notifier notify.Notifier

	competition CompetitionListener
	course      CourseListener
}

func NewLedger(db *gorm.DB, gw gateway.Gateway, cfg config.Payment, notifier notify.Notifier) *Ledger {
	return &Ledger{db: db, gw: gw, cfg: cfg, notifier: notifier}
}

// InitiateRequest describes a new purchase.
type InitiateRequest struct {
	User        *models.User
	Target      Target
	Amount      int64
	Description string
	Metadata    map[string]interface{}
}

// StartPay is a recorded pending payment and the URL to send the payer to.
// EmailURL is the link put in notifications; it goes through the restart
// endpoint when PAYMENT_EMAIL_LINK_BASE_URL is set.
type StartPay struct {
	URL       string
	EmailURL  string
	Authority string
	Payment   *models.Payment
}

// Initiate reconciles the user's pending payments, then requests a new
// payment from the gateway and records it as PENDING. It must run inside
// WithinTransaction so failed attempts are kept after rollback.
func (l *Ledger) Initiate(ctx context.Context, tx *gorm.DB, req InitiateRequest, out *notify.Batch) (*StartPay, error) {
	if req.User == nil || req.User.ID == 0 {
		return nil, apperrors.New(apperrors.CodePaymentAuthRequired, "Authentication required")
	}
	if !l.gw.Configured() {
		return nil, apperrors.New(apperrors.CodeMerchantNotConfigured, "Payment merchant id not configured")
	}
	if req.Target == nil {
		return nil, apperrors.New(apperrors.CodeUnknownTarget, "Payment target is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalid, "Payment amount must be positive")
	}

	kind, targetID := req.Target.Kind(), req.Target.ID()

	reconciled, err := l.reconcileUser(ctx, tx, req.User.ID, out)
	if err != nil {
		return nil, err
	}
	for i := range reconciled {
		p := reconciled[i]
		if p.Status == models.PaymentSuccessful && p.TargetType == kind && p.TargetID == targetID {
			return nil, &AttemptError{
				Err:        apperrors.New(apperrors.CodeExistingSuccess, "Existing successful payment found for this purchase"),
				Reconciled: reconciled,
			}
		}
	}
	// Outcomes for other purchases are settled with this transaction.
	for i := range reconciled {
		if reconciled[i].Status == models.PaymentSuccessful {
			l.settleBounded(ctx, tx, &reconciled[i], out)
		}
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("%s:%s", kind, targetID)
	}

	attempt := &models.Payment{
		UserID:      req.User.ID,
		TargetType:  kind,
		TargetID:    targetID,
		Amount:      req.Amount,
		Currency:    l.cfg.Currency,
		Description: req.Description,
	}

	res, err := l.gw.RequestPayment(ctx, gateway.PaymentRequest{
		Amount:      req.Amount,
		CallbackURL: l.cfg.CallbackURL,
		Description: description,
		Email:       req.User.Email,
		Mobile:      req.User.PhoneNumber,
	})
	if err != nil {
		log.Printf("❌ Gateway request failed for %s %s: %v", kind, targetID, err)
		attempt.Status = models.PaymentGatewayInitFail
		attempt.GatewayMessage = truncate(err.Error(), 200)
		attempt.Metadata = mergeMeta(map[string]interface{}{"stage": "request", "exc": err.Error()}, req.Metadata)
		return nil, &AttemptError{
			Err:        apperrors.Wrap(apperrors.CodePaymentInitFailed, "Payment gateway error while initiating", err),
			Attempt:    attempt,
			Reconciled: reconciled,
		}
	}
	if res.Code != gateway.SuccessCode {
		log.Printf("❌ Gateway refused %s %s: %d %s", kind, targetID, res.Code, res.Message)
		attempt.Status = models.PaymentGatewayInitFail
		attempt.GatewayCode = strconv.Itoa(res.Code)
		attempt.GatewayMessage = truncate(res.Message, 200)
		attempt.Metadata = mergeMeta(map[string]interface{}{
			"stage": "request",
			"resp":  map[string]interface{}{"code": res.Code, "message": res.Message},
		}, req.Metadata)
		return nil, &AttemptError{
			Err:        apperrors.New(apperrors.CodeGatewayRefused, "Gateway refused: "+res.Message),
			Attempt:    attempt,
			Reconciled: reconciled,
		}
	}

	attempt.Status = models.PaymentPending
	attempt.Authority = res.Authority
	attempt.Metadata = mergeMeta(map[string]interface{}{"fee_type": res.FeeType, "fee": res.Fee}, req.Metadata)
	if err := tx.Create(attempt).Error; err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	log.Printf("💳 Payment %d initiated: %s %s amount=%d authority=%s", attempt.ID, kind, targetID, attempt.Amount, attempt.Authority)
	return &StartPay{
		URL:       l.gw.StartPayURL(res.Authority),
		EmailURL:  l.emailLink(res.Authority),
		Authority: res.Authority,
		Payment:   attempt,
	}, nil
}

// reconcileUser verifies the user's PENDING payments the gateway still
// lists as unverified. Failed outcomes are recorded without settlement;
// the user is paying again.
func (l *Ledger) reconcileUser(ctx context.Context, tx *gorm.DB, userID uint, out *notify.Batch) ([]models.Payment, error) {
	var pending []models.Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, models.PaymentPending).
		Order("id").
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load pending payments: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	unverified := map[string]bool{}
	for _, item := range l.gw.ListUnverified(ctx) {
		unverified[item.Authority] = true
	}

	var reconciled []models.Payment
	for i := range pending {
		p := &pending[i]
		if p.Authority == "" || !unverified[p.Authority] {
			continue
		}
		v, err := l.gw.VerifyPayment(ctx, p.Amount, p.Authority)
		if err != nil {
			log.Printf("⚠️ Could not verify pending payment %d: %v", p.ID, err)
			continue
		}
		applyVerify(p, v)
		if err := tx.Save(p).Error; err != nil {
			return nil, fmt.Errorf("update payment %d: %w", p.ID, err)
		}
		log.Printf("🔁 Reconciled payment %d -> %s", p.ID, p.Status)
		reconciled = append(reconciled, *p)
	}
	return reconciled, nil
}

// Verify settles the payment identified by authority for userID. A payment
// that is no longer PENDING is returned unchanged.
func (l *Ledger) Verify(ctx context.Context, userID uint, authority string) (*models.Payment, error) {
	if userID == 0 {
		return nil, apperrors.New(apperrors.CodePaymentAuthRequired, "Authentication required")
	}

	var (
		result models.Payment
		out    notify.Batch
	)
	err := l.WithinTransaction(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND authority = ?", userID, authority).
			Order("id DESC").
			First(&result).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodePaymentNotFound, "Payment not found for this user/authority")
		}
		if err != nil {
			return err
		}
		if result.Status != models.PaymentPending {
			return nil
		}
		return l.verifyLocked(ctx, tx, &result, &out)
	})
	if err != nil {
		return nil, err
	}

	out.Flush(ctx, l.notifier)
	return &result, nil
}

// verifyLocked asks the gateway about a locked PENDING payment, stores the
// outcome and runs settlement.
func (l *Ledger) verifyLocked(ctx context.Context, tx *gorm.DB, p *models.Payment, out *notify.Batch) error {
	v, err := l.gw.VerifyPayment(ctx, p.Amount, p.Authority)
	if err != nil {
		log.Printf("❌ Gateway verify failed for payment %d: %v", p.ID, err)
		p.Status = models.PaymentFailed
		p.GatewayMessage = truncate(err.Error(), 200)
	} else {
		applyVerify(p, v)
	}
	if err := tx.Save(p).Error; err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	log.Printf("🧾 Payment %d verified: %s", p.ID, p.Status)

	l.settleBounded(ctx, tx, p, out)
	if p.Status == models.PaymentSuccessful {
		l.finalizeRegistration(ctx, tx, p, out)
	}
	return nil
}

// Restart starts a new payment for the same purchase as the attempt
// identified by authority.
func (l *Ledger) Restart(ctx context.Context, authority string) (*StartPay, error) {
	var previous models.Payment
	err := l.db.WithContext(ctx).
		Preload("User").
		Where("authority = ?", authority).
		Order("id DESC").
		First(&previous).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && previous.User == nil) {
		return nil, apperrors.New(apperrors.CodePaymentNotFound, "Payment not found for this user/authority")
	}
	if err != nil {
		return nil, err
	}

	target, err := TargetOf(&previous)
	if err != nil {
		return nil, err
	}

	var (
		start *StartPay
		out   notify.Batch
	)
	err = l.WithinTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		start, err = l.Initiate(ctx, tx, InitiateRequest{
			User:        previous.User,
			Target:      target,
			Amount:      previous.Amount,
			Description: previous.Description,
			Metadata:    carriedMeta(previous.Metadata),
		}, &out)
		return err
	})
	if err != nil {
		return nil, &apperrors.Error{
			Code:     apperrors.CodeCompetitionPaymentInitFailed,
			Message:  "Failed to initiate payment: " + err.Error(),
			Metadata: map[string]string{"cause": string(apperrors.CodeOf(err))},
			Cause:    err,
		}
	}

	out.Flush(ctx, l.notifier)
	return start, nil
}

// ReconcileReport summarizes one ReconcilePending sweep.
type ReconcileReport struct {
	Unverified int `json:"unverified"`
	Checked    int `json:"checked"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Errors     int `json:"errors"`
}

// ReconcilePending verifies and settles every PENDING payment whose
// authority the gateway lists as unverified.
func (l *Ledger) ReconcilePending(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	var authorities []string
	for _, item := range l.gw.ListUnverified(ctx) {
		if item.Authority != "" {
			authorities = append(authorities, item.Authority)
		}
	}
	report.Unverified = len(authorities)
	if len(authorities) == 0 {
		return report, nil
	}

	var ids []uint
	if err := l.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND authority IN ?", models.PaymentPending, authorities).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return report, fmt.Errorf("load pending payments: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var (
			p   models.Payment
			out notify.Batch
		)
		err := l.WithinTransaction(ctx, func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
				return err
			}
			if p.Status != models.PaymentPending {
				return nil
			}
			return l.verifyLocked(ctx, tx, &p, &out)
		})
		if err != nil {
			report.Errors++
			log.Printf("❌ Reconcile payment %d: %v", id, err)
			continue
		}
		report.Checked++
		switch p.Status {
		case models.PaymentSuccessful:
			report.Successful++
		case models.PaymentFailed:
			report.Failed++
		}
		out.Flush(ctx, l.notifier)
	}

	log.Printf("✅ Reconciled %d pending payment(s): %d successful, %d failed, %d errors",
		report.Checked, report.Successful, report.Failed, report.Errors)
	return report, nil
}

// ListForUser returns the user's payments, newest first.
func (l *Ledger) ListForUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&payments).Error
	return payments, err
}

func applyVerify(p *models.Payment, v gateway.VerifyResult) {
	p.GatewayCode = strconv.Itoa(v.Code)
	p.GatewayMessage = truncate(v.Message, 200)
	if v.Code == gateway.SuccessCode {
		p.Status = models.PaymentSuccessful
		p.RefID = v.RefID
		p.CardPan = v.CardPan
		p.CardHash = v.CardHash
		return
	}
	p.Status = models.PaymentFailed
}

func mergeMeta(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// carriedMeta keeps the caller-provided keys of a previous attempt.
func carriedMeta(meta map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range meta {
		switch k {
		case "stage", "exc", "resp", "fee_type", "fee", "settlement_error":
			continue
		}
		out[k] = v
	}
	return out
}

func (l *Ledger) emailLink(authority string) string {
	if l.cfg.EmailLinkBase == "" {
		return l.gw.StartPayURL(authority)
	}
	return strings.TrimRight(l.cfg.EmailLinkBase, "/") + "/" + authority
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
