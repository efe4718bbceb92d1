package notify_test

import (
	"context"
	"errors"
	"testing"

	"acmportal/models"
	"acmportal/notify"
	"acmportal/testutil"
)

func TestStatusChangeSetsStatus(t *testing.T) {
	extra := map[string]interface{}{"course": "Graphs", "status": "ignored"}
	m := notify.StatusChange("a@example.com", notify.CourseRequestFinal, extra)

	if m.TemplateCode != notify.StatusChangeTemplate {
		t.Fatalf("expected template %s, got %s", notify.StatusChangeTemplate, m.TemplateCode)
	}
	if m.Status() != notify.CourseRequestFinal {
		t.Fatalf("expected status %s, got %s", notify.CourseRequestFinal, m.Status())
	}
	if extra["status"] != "ignored" {
		t.Fatalf("expected caller map untouched")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, ...notify.Message) error {
	f.calls++
	return errors.New("queue down")
}

func TestBatchFlush(t *testing.T) {
	var b notify.Batch
	b.StatusChange("a@example.com", notify.CourseRequestApproved, nil)
	b.StatusChange("b@example.com", notify.CourseRequestRejected, nil)

	rec := &testutil.RecordingNotifier{}
	b.Flush(context.Background(), rec)
	if len(rec.Messages) != 2 || b.Len() != 0 {
		t.Fatalf("expected 2 flushed messages and empty batch, got %d/%d", len(rec.Messages), b.Len())
	}

	b.StatusChange("c@example.com", notify.CourseRequestFinal, nil)
	failing := &failingNotifier{}
	b.Flush(context.Background(), failing)
	if failing.calls != 1 || b.Len() != 0 {
		t.Fatalf("expected failed flush to be dropped, got calls=%d len=%d", failing.calls, b.Len())
	}

	b.Flush(context.Background(), failing)
	if failing.calls != 1 {
		t.Fatalf("expected empty batch not to call notifier")
	}
}

func TestQueueNotify(t *testing.T) {
	db := testutil.NewDB(t)
	q := notify.NewQueue(db)

	err := q.Notify(context.Background(),
		notify.StatusChange("a@example.com", notify.CompetitionRequestFinal, map[string]interface{}{"competition": "ICPC"}),
		notify.StatusChange("", notify.CompetitionRequestFinal, nil),
		notify.StatusChange("b@example.com", notify.CompetitionRequestFinal, nil),
	)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	rows, err := q.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 queued rows, got %d", len(rows))
	}
	if rows[0].BatchID == "" || rows[0].BatchID != rows[1].BatchID {
		t.Fatalf("expected shared batch id, got %q and %q", rows[0].BatchID, rows[1].BatchID)
	}
	if rows[0].Context["competition"] != "ICPC" {
		t.Fatalf("expected context to round-trip, got %v", rows[0].Context)
	}

	if err := q.MarkSent(context.Background(), &rows[0]); err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
	if err := q.MarkAttemptFailed(context.Background(), &rows[1], errors.New("bounced")); err != nil {
		t.Fatalf("MarkAttemptFailed failed: %v", err)
	}
	rows, _ = q.Pending(context.Background(), 10)
	if len(rows) != 1 || rows[0].Status != models.NotificationQueued || rows[0].Attempts != 1 {
		t.Fatalf("expected one queued row with 1 attempt, got %+v", rows)
	}
}
