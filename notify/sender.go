package notify

import (
	"context"
	"log"

	"acmportal/models"
)

// Sender delivers one outbox row. Template rendering and the mail
// transport live behind it.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}

// LogSender writes notifications to the process log instead of sending
// them. It is the default until a mail provider is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n models.Notification) error {
	log.Printf("📧 [%s] to=%s status=%v context=%v", n.TemplateCode, n.To, n.Context["status"], map[string]interface{}(n.Context))
	return nil
}
