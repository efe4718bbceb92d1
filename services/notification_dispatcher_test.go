package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"acmportal/models"
	"acmportal/notify"
	"acmportal/services"
	"acmportal/testutil"
)

type flakySender struct {
	fail map[string]bool
	sent []string
}

func (s *flakySender) Send(_ context.Context, n models.Notification) error {
	if s.fail[n.To] {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, n.To)
	return nil
}

func TestDispatchOnceDeliversAndRetries(t *testing.T) {
	db := testutil.NewDB(t)
	queue := notify.NewQueue(db)
	sender := &flakySender{fail: map[string]bool{"bounce@example.com": true}}
	d := services.NewDispatcher(queue, sender, nil, time.Hour, 0)

	err := queue.Notify(context.Background(),
		notify.StatusChange("ok@example.com", notify.CourseRequestFinal, map[string]interface{}{"course": "Graphs"}),
		notify.StatusChange("bounce@example.com", notify.CourseRequestFinal, nil),
	)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	for i := 0; i < notify.MaxAttempts; i++ {
		if _, err := d.DispatchOnce(context.Background()); err != nil {
			t.Fatalf("DispatchOnce failed: %v", err)
		}
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ok@example.com" {
		t.Fatalf("expected one delivery, got %v", sender.sent)
	}

	var rows []models.Notification
	db.Order("id").Find(&rows)
	if rows[0].Status != models.NotificationSent || rows[0].SentAt == nil {
		t.Fatalf("expected first row sent, got %+v", rows[0])
	}
	if rows[1].Status != models.NotificationFailed || rows[1].Attempts != notify.MaxAttempts {
		t.Fatalf("expected second row failed after %d attempts, got %s/%d", notify.MaxAttempts, rows[1].Status, rows[1].Attempts)
	}

	sent, err := d.DispatchOnce(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("expected empty queue, got %d (%v)", sent, err)
	}
}

func TestDispatcherStartStop(t *testing.T) {
	db := testutil.NewDB(t)
	d := services.NewDispatcher(notify.NewQueue(db), notify.LogSender{}, nil, 10*time.Millisecond, 0)
	d.Start()
	d.Stop()
	d.Stop()
}
