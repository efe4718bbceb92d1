package payment

import (
	"context"
	"errors"
	"log"

	"acmportal/models"
	"acmportal/notify"

	"gorm.io/gorm"
)

// AttemptError carries payment rows that must outlive the transaction
// that produced the error: the failed gateway attempt and any pending
// payments whose outcome was learned while reconciling.
type AttemptError struct {
	Err        error
	Attempt    *models.Payment
	Reconciled []models.Payment
}

func (e *AttemptError) Error() string {
	return e.Err.Error()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// WithinTransaction runs fn in a transaction. When fn fails with an
// AttemptError anywhere in its chain, the carried rows are written after
// the rollback and reconciled successes are settled in a fresh transaction.
func (l *Ledger) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := l.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}

	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		l.recordAfterRollback(ctx, attemptErr)
	}
	return err
}

func (l *Ledger) recordAfterRollback(ctx context.Context, e *AttemptError) {
	db := l.db.WithContext(ctx)

	for i := range e.Reconciled {
		p := &e.Reconciled[i]
		err := db.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":          p.Status,
				"gateway_code":    p.GatewayCode,
				"gateway_message": p.GatewayMessage,
				"ref_id":          p.RefID,
				"card_pan":        p.CardPan,
				"card_hash":       p.CardHash,
			}).Error
		if err != nil {
			log.Printf("❌ Failed to record reconciled payment %d: %v", p.ID, err)
			continue
		}
		if p.Status != models.PaymentSuccessful {
			continue
		}
		var out notify.Batch
		_ = db.Transaction(func(tx *gorm.DB) error {
			l.settleBounded(ctx, tx, p, &out)
			return nil
		})
		out.Flush(ctx, l.notifier)
	}

	if e.Attempt != nil {
		row := *e.Attempt
		row.ID = 0
		if err := db.Create(&row).Error; err != nil {
			log.Printf("❌ Failed to record payment attempt for %s %s: %v", row.TargetType, row.TargetID, err)
			return
		}
		e.Attempt.ID = row.ID
		log.Printf("📝 Recorded failed payment attempt %d (%s)", row.ID, row.Status)
	}
}
