package notify

import (
	"context"
	"fmt"
	"time"

	"acmportal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxAttempts is how many deliveries a row gets before it is marked failed.
const MaxAttempts = 3

// Queue is the database outbox. Notify inserts rows; the dispatcher
// drains them through a Sender.
type Queue struct {
	db *gorm.DB
}

func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Notify(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	rows := make([]models.Notification, 0, len(msgs))
	for _, m := range msgs {
		if m.To == "" {
			continue
		}
		rows = append(rows, models.Notification{
			BatchID:      batchID,
			Channel:      "email",
			To:           m.To,
			TemplateCode: m.TemplateCode,
			Context:      m.Context,
			Status:       models.NotificationQueued,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	return nil
}

// Pending returns up to limit queued rows, oldest first.
func (q *Queue) Pending(ctx context.Context, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := q.db.WithContext(ctx).
		Where("status = ?", models.NotificationQueued).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (q *Queue) MarkSent(ctx context.Context, n *models.Notification) error {
	now := time.Now().UTC()
	n.Status = models.NotificationSent
	n.SentAt = &now
	n.Attempts++
	n.Error = ""
	return q.db.WithContext(ctx).Model(n).Updates(map[string]interface{}{
		"status":   n.Status,
		"sent_at":  now,
		"attempts": n.Attempts,
		"error":    "",
	}).Error
}

// MarkAttemptFailed records a failed delivery; the row stays queued until
// it runs out of attempts.
func (q *Queue) MarkAttemptFailed(ctx context.Context, n *models.Notification, cause error) error {
	n.Attempts++
	n.Error = cause.Error()
	if n.Attempts >= MaxAttempts {
		n.Status = models.NotificationFailed
	}
	return q.db.WithContext(ctx).Model(n).Updates(map[string]interface{}{
		"status":   n.Status,
		"attempts": n.Attempts,
		"error":    n.Error,
	}).Error
}
