// Package notify queues status-change emails for asynchronous delivery.
package notify

import (
	"context"
	"log"
)

// StatusChangeTemplate renders every workflow status email; the status
// code travels in the "status" context key.
const StatusChangeTemplate = "status_change"

// Status codes carried in StatusChangeTemplate contexts.
const (
	CompetitionMemberApproval       = "COMPETITION_MEMBER_APPROVAL"
	CompetitionRequestSubmitted     = "COMPETITION_REQUEST_SUBMITTED"
	CompetitionRequestRejected      = "COMPETITION_REQUEST_REJECTED"
	CompetitionPendingInvestigation = "COMPETITION_REQUEST_PENDING_INVESTIGATION"
	CompetitionPendingPayment       = "COMPETITION_REQUEST_PENDING_PAYMENT"
	CompetitionRequestCancelled     = "COMPETITION_REQUEST_CANCELLED"
	CompetitionRequestFinal         = "COMPETITION_REQUEST_FINAL"
	CompetitionPaymentRejected      = "COMPETITION_PAYMENT_REJECTED"
	CourseRequestSubmitted          = "COURSE_REQUEST_SUBMITTED"
	CourseRequestApproved           = "COURSE_REQUEST_APPROVED"
	CourseRequestFinal              = "COURSE_REQUEST_FINAL"
	CourseRequestRejected           = "COURSE_REQUEST_REJECTED"
)

type Message struct {
	To           string
	TemplateCode string
	Context      map[string]interface{}
}

// StatusChange builds a status_change message for code with extra context.
func StatusChange(to, code string, extra map[string]interface{}) Message {
	ctx := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		ctx[k] = v
	}
	ctx["status"] = code
	return Message{To: to, TemplateCode: StatusChangeTemplate, Context: ctx}
}

// Status returns the status code of a status_change message.
func (m Message) Status() string {
	s, _ := m.Context["status"].(string)
	return s
}

// Notifier accepts messages for delivery. Callers do not wait for the
// messages to be sent.
type Notifier interface {
	Notify(ctx context.Context, msgs ...Message) error
}

// Batch collects messages produced inside a transaction so they can be
// handed to a Notifier once the transaction commits.
type Batch struct {
	msgs []Message
}

func (b *Batch) Add(msgs ...Message) {
	b.msgs = append(b.msgs, msgs...)
}

func (b *Batch) StatusChange(to, code string, extra map[string]interface{}) {
	b.Add(StatusChange(to, code, extra))
}

func (b *Batch) Messages() []Message {
	return b.msgs
}

func (b *Batch) Len() int {
	return len(b.msgs)
}

// Reset drops collected messages, used when a transaction rolls back.
func (b *Batch) Reset() {
	b.msgs = nil
}

// Flush hands the batch to n and empties it. Delivery problems are logged,
// never returned: notifications must not fail a committed operation.
func (b *Batch) Flush(ctx context.Context, n Notifier) {
	if n == nil || len(b.msgs) == 0 {
		b.Reset()
		return
	}
	if err := n.Notify(ctx, b.msgs...); err != nil {
		log.Printf("⚠️ Failed to queue %d notification(s): %v", len(b.msgs), err)
	}
	b.Reset()
}
