package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"acmportal/apperrors"
	"acmportal/models"
	"acmportal/notify"
	"acmportal/payment"
	"acmportal/services"
	"acmportal/testutil"

	"gorm.io/gorm"
)

type regFixture struct {
	db       *gorm.DB
	gw       *testutil.FakeGateway
	notifier *testutil.RecordingNotifier
	rooms    *testutil.FakeVideoRoom
	ledger   *payment.Ledger
	svc      *services.RegistrationService
	user     *models.User
}

func newRegFixture(t *testing.T) *regFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &regFixture{
		db:       db,
		gw:       testutil.NewFakeGateway(),
		notifier: &testutil.RecordingNotifier{},
		rooms:    &testutil.FakeVideoRoom{Link: "https://room.test/login/abc"},
	}
	cfg := testConfig()
	f.ledger = payment.NewLedger(db, f.gw, cfg.Payment, f.notifier)
	f.svc = services.NewRegistrationService(db, f.ledger, f.notifier, f.rooms, cfg)
	f.ledger.RegisterCourse(f.svc)
	f.user = testutil.CreateUser(t, db, "student@example.com")
	return f
}

func (f *regFixture) submit(course *models.Course, user *models.User, children ...uint) (*models.Registration, error) {
	return f.svc.Submit(context.Background(), services.SubmitRegistrationInput{
		Course:   course,
		User:     user,
		ChildIDs: children,
	})
}

func (f *regFixture) status(t *testing.T, id uint) models.RegistrationStatus {
	t.Helper()
	reg, err := f.svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return reg.Status
}

func TestFinalRegistrationCannotBeResubmitted(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "algo-101", -1, 1000, false)
	testutil.CreateRegistration(t, f.db, course, f.user, models.RegistrationFinal)

	_, err := f.submit(course, f.user)
	expectCode(t, err, apperrors.CodeAlreadyFinalOrApproved)

	var count int64
	f.db.Model(&models.Registration{}).Where("course_id = ? AND user_id = ?", course.ID, f.user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 registration row, got %d", count)
	}
}

func TestIsFullPolicy(t *testing.T) {
	f := newRegFixture(t)
	unlimited := testutil.CreateCourse(t, f.db, "open", -1, 0, true)
	closed := testutil.CreateCourse(t, f.db, "closed", 0, 0, true)
	two := testutil.CreateCourse(t, f.db, "two-seats", 2, 0, true)

	a := testutil.CreateUser(t, f.db, "a@example.com")
	b := testutil.CreateUser(t, f.db, "b@example.com")
	c := testutil.CreateUser(t, f.db, "c@example.com")
	testutil.CreateRegistration(t, f.db, two, a, models.RegistrationApproved)
	testutil.CreateRegistration(t, f.db, two, c, models.RegistrationQueued)
	testutil.CreateRegistration(t, f.db, unlimited, a, models.RegistrationFinal)

	cases := []struct {
		course *models.Course
		full   bool
	}{{unlimited, false}, {closed, true}, {two, false}}
	for _, tc := range cases {
		full, err := services.IsFull(f.db, tc.course)
		if err != nil {
			t.Fatalf("IsFull(%s) failed: %v", tc.course.Slug, err)
		}
		if full != tc.full {
			t.Fatalf("IsFull(%s): expected %v, got %v", tc.course.Slug, tc.full, full)
		}
	}

	testutil.CreateRegistration(t, f.db, two, b, models.RegistrationFinal)
	full, err := services.IsFull(f.db, two)
	if err != nil || !full {
		t.Fatalf("expected two-seat course full, got %v (%v)", full, err)
	}
	remaining, limited, err := services.RemainingSeats(f.db, two)
	if err != nil || !limited || remaining != 0 {
		t.Fatalf("expected 0 limited seats, got %d %v (%v)", remaining, limited, err)
	}
}

func TestChildSeatsCountAgainstChildCapacity(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "bootcamp", -1, 0, true)
	child := testutil.CreateCourse(t, f.db, "graphs", 1, 500, false)
	testutil.AddChildren(t, f.db, parent, child)

	other := testutil.CreateUser(t, f.db, "other@example.com")
	testutil.CreateRegistration(t, f.db, parent, other, models.RegistrationFinal, child)

	full, err := services.IsFull(f.db, child)
	if err != nil || !full {
		t.Fatalf("expected child full from registration item, got %v (%v)", full, err)
	}

	reg, err := f.submit(parent, f.user, child.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if reg.Status != models.RegistrationReserved {
		t.Fatalf("expected RESERVED, got %s", reg.Status)
	}
	mails := f.notifier.WithStatus(notify.CourseRequestSubmitted)
	if len(mails) != 1 || mails[0].Context["waitlisted_children"] != child.Name {
		t.Fatalf("expected waitlisted child in submission mail, got %+v", mails)
	}
}

func TestSubmissionCapacity(t *testing.T) {
	f := newRegFixture(t)

	two := testutil.CreateCourse(t, f.db, "two-seats", 2, 1000, true)
	closed := testutil.CreateCourse(t, f.db, "closed", 0, 1000, true)
	unlimited := testutil.CreateCourse(t, f.db, "open", -1, 1000, true)
	for i := 0; i < 2; i++ {
		u := testutil.CreateUser(t, f.db, fmt.Sprintf("seat%d@example.com", i))
		testutil.CreateRegistration(t, f.db, two, u, models.RegistrationApproved)
		testutil.CreateRegistration(t, f.db, unlimited, u, models.RegistrationFinal)
	}

	cases := []struct {
		course *models.Course
		want   models.RegistrationStatus
	}{
		{two, models.RegistrationReserved},
		{closed, models.RegistrationReserved},
		{unlimited, models.RegistrationQueued},
	}
	for _, tc := range cases {
		reg, err := f.submit(tc.course, f.user)
		if err != nil {
			t.Fatalf("Submit(%s) failed: %v", tc.course.Slug, err)
		}
		if reg.Status != tc.want {
			t.Fatalf("Submit(%s): expected %s, got %s", tc.course.Slug, tc.want, reg.Status)
		}
	}
	if f.gw.RequestCount() != 0 {
		t.Fatalf("expected no payments for reviewed courses, got %d", f.gw.RequestCount())
	}
}

func TestAutoProgressThenWaitlist(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "dp", 1, 1000, false)
	other := testutil.CreateUser(t, f.db, "late@example.com")

	first, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if first.Status != models.RegistrationApproved {
		t.Fatalf("expected APPROVED, got %s", first.Status)
	}
	if !strings.HasPrefix(first.PaymentLink, "https://pay.test/pg/StartPay/") {
		t.Fatalf("expected payment link, got %q", first.PaymentLink)
	}
	if f.gw.Requests[0].Amount != 1000 {
		t.Fatalf("expected amount 1000, got %d", f.gw.Requests[0].Amount)
	}

	second, err := f.submit(course, other)
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if second.Status != models.RegistrationReserved {
		t.Fatalf("expected RESERVED, got %s", second.Status)
	}
	if f.gw.RequestCount() != 1 {
		t.Fatalf("expected one payment, got %d", f.gw.RequestCount())
	}
}

func TestFreeCourseFinalizesImmediately(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "intro", -1, 0, false)

	reg, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if reg.Status != models.RegistrationFinal || reg.PaymentLink != "" {
		t.Fatalf("expected FINAL without link, got %s %q", reg.Status, reg.PaymentLink)
	}
	if got := len(f.notifier.WithStatus(notify.CourseRequestFinal)); got != 1 {
		t.Fatalf("expected 1 FINAL mail, got %d", got)
	}
	if f.gw.RequestCount() != 0 {
		t.Fatalf("expected no gateway request")
	}
}

func TestPaymentVerifyFinalizesRegistration(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "geometry", -1, 1000, true)

	reg := &models.Registration{
		ID:          42,
		CourseID:    course.ID,
		UserID:      f.user.ID,
		Status:      models.RegistrationApproved,
		SubmittedAt: time.Now().UTC(),
	}
	if err := f.db.Create(reg).Error; err != nil {
		t.Fatalf("Failed to create registration: %v", err)
	}
	p := &models.Payment{
		UserID:     f.user.ID,
		TargetType: models.TargetCourse,
		TargetID:   fmt.Sprint(course.ID),
		Amount:     1000,
		Status:     models.PaymentPending,
		Authority:  "A00042",
		Metadata:   map[string]interface{}{"reg_id": 42, "parent_course_id": course.ID},
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	paid, err := f.ledger.Verify(context.Background(), f.user.ID, "A00042")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if paid.Status != models.PaymentSuccessful {
		t.Fatalf("expected SUCCESSFUL, got %s", paid.Status)
	}
	if got := f.status(t, 42); got != models.RegistrationFinal {
		t.Fatalf("expected registration 42 FINAL, got %s", got)
	}
	mails := f.notifier.WithStatus(notify.CourseRequestFinal)
	if len(mails) != 1 {
		t.Fatalf("expected 1 FINAL mail, got %d", len(mails))
	}
	if mails[0].Context["course"] != course.Name {
		t.Fatalf("expected course %q in mail, got %v", course.Name, mails[0].Context["course"])
	}
}

func TestPaymentFinalizesRegistrationNamedInMetadata(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "strings", -1, 1000, true)
	reg := testutil.CreateRegistration(t, f.db, course, f.user, models.RegistrationReserved)

	p := &models.Payment{
		UserID:     f.user.ID,
		TargetType: models.TargetCourse,
		TargetID:   fmt.Sprint(course.ID),
		Amount:     1000,
		Status:     models.PaymentPending,
		Authority:  "A00077",
		Metadata:   map[string]interface{}{"reg_id": reg.ID},
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}
	if _, err := f.ledger.Verify(context.Background(), f.user.ID, "A00077"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := f.status(t, reg.ID); got != models.RegistrationFinal {
		t.Fatalf("expected FINAL, got %s", got)
	}
}

func TestFailedCoursePaymentKeepsApproval(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "flows", -1, 1000, false)
	reg, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var p models.Payment
	if err := f.db.Where("target_type = ?", models.TargetCourse).First(&p).Error; err != nil {
		t.Fatalf("expected payment: %v", err)
	}
	f.gw.VerifyCodes[p.Authority] = -51
	if _, err := f.ledger.Verify(context.Background(), f.user.ID, p.Authority); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := f.status(t, reg.ID); got != models.RegistrationApproved {
		t.Fatalf("expected APPROVED, got %s", got)
	}
}

func TestSubmitValidatesChildren(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "parent", -1, 1000, true)
	child := testutil.CreateCourse(t, f.db, "child", -1, 200, true)
	stranger := testutil.CreateCourse(t, f.db, "stranger", -1, 200, true)
	inactive := testutil.CreateCourse(t, f.db, "inactive", -1, 200, true)
	testutil.AddChildren(t, f.db, parent, child, inactive)
	f.db.Model(inactive).Update("is_active", false)

	_, err := f.submit(parent, f.user, child.ID, stranger.ID)
	expectCode(t, err, apperrors.CodeChildInvalidSelection)
	_, err = f.submit(parent, f.user, inactive.ID)
	expectCode(t, err, apperrors.CodeChildInvalidSelection)

	reg, err := f.submit(parent, f.user, child.ID, child.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(reg.Items) != 1 || reg.Items[0].Price != 200 {
		t.Fatalf("expected one deduplicated item priced 200, got %+v", reg.Items)
	}

	// Resubmitting replaces the item set.
	reg, err = f.submit(parent, f.user)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	var items int64
	f.db.Model(&models.RegistrationItem{}).Where("registration_id = ?", reg.ID).Count(&items)
	if items != 0 {
		t.Fatalf("expected items cleared, got %d", items)
	}
}

func TestSubmitRejectsOwnedCourses(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "summer", -1, 1000, true)
	winter := testutil.CreateCourse(t, f.db, "winter", -1, 1000, true)
	child := testutil.CreateCourse(t, f.db, "trees", -1, 300, true)
	testutil.AddChildren(t, f.db, parent, child)
	testutil.AddChildren(t, f.db, winter, child)
	testutil.CreateRegistration(t, f.db, parent, f.user, models.RegistrationFinal, child)

	_, err := f.submit(winter, f.user, child.ID)
	expectCode(t, err, apperrors.CodeChildAlreadyOwned)
	_, err = f.submit(child, f.user)
	expectCode(t, err, apperrors.CodeAlreadyOwned)

	if _, err := f.submit(winter, f.user); err != nil {
		t.Fatalf("expected winter without child to pass, got %v", err)
	}
}

func TestSubmitRequiresVerifiedUser(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "secure", -1, 0, false)
	f.user.IsEmailVerified = false

	_, err := f.submit(course, f.user)
	expectCode(t, err, apperrors.CodeEmailNotVerified)
}

func TestSubmitMergesExtraAnswers(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "cf-round", -1, 0, true)

	_, err := f.svc.Submit(context.Background(), services.SubmitRegistrationInput{
		Course: course,
		User:   f.user,
		ExtraAnswers: map[string]interface{}{
			"codeforces_score":  "1820",
			"codeforces_handle": strings.Repeat("h", 80),
			"motivation":        "contests",
		},
		ResumeURL: "https://cv.test/me.pdf",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	_, err = f.svc.Submit(context.Background(), services.SubmitRegistrationInput{
		Course:       course,
		User:         f.user,
		ExtraAnswers: map[string]interface{}{"codeforces_score": "not a number", "level": "advanced"},
	})
	if err != nil {
		t.Fatalf("Submit with malformed score failed: %v", err)
	}

	var extra models.UserExtraData
	if err := f.db.Where("user_id = ?", f.user.ID).First(&extra).Error; err != nil {
		t.Fatalf("expected extra data: %v", err)
	}
	if extra.CodeforcesScore != 1820 {
		t.Fatalf("expected score 1820, got %d", extra.CodeforcesScore)
	}
	if len(extra.CodeforcesHandle) != 64 {
		t.Fatalf("expected handle clipped to 64, got %d", len(extra.CodeforcesHandle))
	}
	if fmt.Sprint(extra.Answers["motivation"]) != "contests" || fmt.Sprint(extra.Answers["level"]) != "advanced" {
		t.Fatalf("expected merged answers, got %v", extra.Answers)
	}

	regs, err := f.svc.ListForUser(context.Background(), f.user.ID)
	if err != nil || len(regs) != 1 {
		t.Fatalf("expected one registration, got %d (%v)", len(regs), err)
	}
	if regs[0].ResumeURL != "https://cv.test/me.pdf" {
		t.Fatalf("expected resume kept across resubmission, got %q", regs[0].ResumeURL)
	}
}

func TestSetStatusApprovedInitiatesBundlePayment(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "camp", -1, 1000, true)
	child := testutil.CreateCourse(t, f.db, "camp-flows", -1, 250, true)
	testutil.AddChildren(t, f.db, parent, child)

	reg, err := f.submit(parent, f.user, child.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	approved, err := f.svc.SetStatusApproved(context.Background(), reg.ID, services.ApproveOptions{})
	if err != nil {
		t.Fatalf("SetStatusApproved failed: %v", err)
	}
	if approved.Status != models.RegistrationApproved || approved.DecidedAt == nil {
		t.Fatalf("expected APPROVED with decision time, got %s", approved.Status)
	}

	req := f.gw.Requests[0]
	if req.Amount != 1250 {
		t.Fatalf("expected amount 1250, got %d", req.Amount)
	}
	if req.Description != "camp + [camp-flows]" {
		t.Fatalf("expected bundle description, got %q", req.Description)
	}

	var p models.Payment
	if err := f.db.Where("target_type = ?", models.TargetCourse).First(&p).Error; err != nil {
		t.Fatalf("expected payment: %v", err)
	}
	if want := fmt.Sprintf("%d,%d", parent.ID, child.ID); p.TargetID != want {
		t.Fatalf("expected target %s, got %s", want, p.TargetID)
	}
	if fmt.Sprint(p.Metadata["reg_id"]) != fmt.Sprint(reg.ID) {
		t.Fatalf("expected reg_id metadata %d, got %v", reg.ID, p.Metadata["reg_id"])
	}
	mails := f.notifier.WithStatus(notify.CourseRequestApproved)
	if len(mails) != 1 || mails[0].Context["payment_link"] != approved.PaymentLink {
		t.Fatalf("expected approval mail with link, got %+v", mails)
	}

	// Paying the bundle finalizes the parent registration.
	if _, err := f.ledger.Verify(context.Background(), f.user.ID, p.Authority); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := f.status(t, reg.ID); got != models.RegistrationFinal {
		t.Fatalf("expected FINAL, got %s", got)
	}
}

func TestSetStatusApprovedWithManualLink(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "manual", 0, 1000, true)
	reg, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	approved, err := f.svc.SetStatusApproved(context.Background(), reg.ID, services.ApproveOptions{PaymentLink: "https://pay.test/manual"})
	if err != nil {
		t.Fatalf("SetStatusApproved failed: %v", err)
	}
	if approved.PaymentLink != "https://pay.test/manual" {
		t.Fatalf("expected manual link, got %q", approved.PaymentLink)
	}
	if f.gw.RequestCount() != 0 {
		t.Fatalf("expected no gateway request")
	}
}

func TestSetStatusApprovedPaymentFailure(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "broken", -1, 1000, true)
	reg, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f.gw.RequestErr = errors.New("timeout")

	_, err = f.svc.SetStatusApproved(context.Background(), reg.ID, services.ApproveOptions{})
	expectCode(t, err, apperrors.CodeRegistrationPaymentFailed)
	if got := f.status(t, reg.ID); got != models.RegistrationQueued {
		t.Fatalf("expected QUEUED, got %s", got)
	}
}

func TestSetStatusRejectedRequiresReason(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "selective", -1, 1000, true)
	reg, err := f.submit(course, f.user)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err = f.svc.SetStatusRejected(context.Background(), reg.ID)
	expectCode(t, err, apperrors.CodeRejectionReasonRequired)

	if _, err := f.svc.SetRejectionReason(context.Background(), reg.ID, "  class is full  "); err != nil {
		t.Fatalf("SetRejectionReason failed: %v", err)
	}
	rejected, err := f.svc.SetStatusRejected(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("SetStatusRejected failed: %v", err)
	}
	if rejected.Status != models.RegistrationRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}
	mails := f.notifier.WithStatus(notify.CourseRequestRejected)
	if len(mails) != 1 || mails[0].Context["reason"] != "class is full" {
		t.Fatalf("expected rejection mail with reason, got %+v", mails)
	}

	_, err = f.svc.SetStatusApproved(context.Background(), reg.ID, services.ApproveOptions{})
	expectCode(t, err, apperrors.CodeRegistrationInvalidState)
}

func TestSetStatusFinalBulk(t *testing.T) {
	f := newRegFixture(t)
	a := testutil.CreateCourse(t, f.db, "bulk-a", -1, 1000, true)
	b := testutil.CreateCourse(t, f.db, "bulk-b", -1, 1000, true)
	ra := testutil.CreateRegistration(t, f.db, a, f.user, models.RegistrationApproved)
	rb := testutil.CreateRegistration(t, f.db, b, f.user, models.RegistrationQueued)

	regs, err := f.svc.SetStatusFinal(context.Background(), ra.ID, rb.ID)
	if err != nil {
		t.Fatalf("SetStatusFinal failed: %v", err)
	}
	for _, reg := range regs {
		if reg.Status != models.RegistrationFinal || reg.DecidedAt == nil {
			t.Fatalf("expected FINAL with decision time, got %+v", reg)
		}
	}
	mails := f.notifier.WithStatus(notify.CourseRequestFinal)
	if len(mails) != 1 || mails[0].Context["course"] != a.Name {
		t.Fatalf("expected one FINAL mail for the first course, got %+v", mails)
	}
}

func todayRule(courseID uint) models.ScheduleRule {
	return models.ScheduleRule{
		CourseID:  courseID,
		Weekday:   models.MondayWeekday(time.Now().UTC().Weekday()),
		StartTime: "00:00",
		EndTime:   "23:59",
	}
}

func TestCreateSessionLink(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "live", -1, 0, true)
	child := testutil.CreateCourse(t, f.db, "live-part", -1, 0, true)
	testutil.AddChildren(t, f.db, parent, child)
	for _, c := range []*models.Course{parent, child} {
		rule := todayRule(c.ID)
		if err := f.db.Create(&rule).Error; err != nil {
			t.Fatalf("Failed to create schedule: %v", err)
		}
	}

	_, err := f.svc.CreateSessionLink(context.Background(), f.user, parent)
	expectCode(t, err, apperrors.CodeSessionUnavailable)

	testutil.CreateRegistration(t, f.db, parent, f.user, models.RegistrationFinal)
	link, err := f.svc.CreateSessionLink(context.Background(), f.user, parent)
	if err != nil {
		t.Fatalf("CreateSessionLink failed: %v", err)
	}
	if link != f.rooms.Link {
		t.Fatalf("expected %q, got %q", f.rooms.Link, link)
	}
	req := f.rooms.Requests[0]
	if req.RoomID != "77" || req.UserID != f.user.Email || req.Nickname != "Test User" || req.TTL != 90*time.Minute {
		t.Fatalf("unexpected join request %+v", req)
	}

	// Owning the parent grants access to its children.
	if _, err := f.svc.CreateSessionLink(context.Background(), f.user, child); err != nil {
		t.Fatalf("expected child access through parent, got %v", err)
	}

	f.rooms.Err = errors.New("provider down")
	_, err = f.svc.CreateSessionLink(context.Background(), f.user, parent)
	if err == nil || apperrors.HasCode(err, apperrors.CodeSessionUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestCreateSessionLinkOutsideSchedule(t *testing.T) {
	f := newRegFixture(t)
	course := testutil.CreateCourse(t, f.db, "tomorrow", -1, 0, true)
	rule := todayRule(course.ID)
	rule.Weekday = (rule.Weekday + 1) % 7
	if err := f.db.Create(&rule).Error; err != nil {
		t.Fatalf("Failed to create schedule: %v", err)
	}
	testutil.CreateRegistration(t, f.db, course, f.user, models.RegistrationFinal)

	_, err := f.svc.CreateSessionLink(context.Background(), f.user, course)
	expectCode(t, err, apperrors.CodeSessionUnavailable)
	if len(f.rooms.Requests) != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestHasCourseAccessThroughItem(t *testing.T) {
	f := newRegFixture(t)
	parent := testutil.CreateCourse(t, f.db, "p", -1, 0, true)
	child := testutil.CreateCourse(t, f.db, "c", -1, 0, true)
	testutil.CreateRegistration(t, f.db, parent, f.user, models.RegistrationFinal, child)

	ok, err := services.HasCourseAccess(f.db, f.user.ID, child.ID)
	if err != nil || !ok {
		t.Fatalf("expected access through item, got %v (%v)", ok, err)
	}
	other := testutil.CreateUser(t, f.db, "other@example.com")
	ok, err = services.HasCourseAccess(f.db, other.ID, child.ID)
	if err != nil || ok {
		t.Fatalf("expected no access for other user, got %v (%v)", ok, err)
	}
}

func TestInSessionWindow(t *testing.T) {
	rules := []models.ScheduleRule{{Weekday: 0, StartTime: "10:00", EndTime: "11:00"}}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	cases := []struct {
		at   string
		want bool
	}{
		{"09:44", false},
		{"09:45", true},
		{"10:30", true},
		{"11:15", true},
		{"11:16", false},
	}
	for _, tc := range cases {
		clock, _ := time.Parse("15:04", tc.at)
		now := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		if got := services.InSessionWindow(rules, now, window); got != tc.want {
			t.Fatalf("at %s: expected %v, got %v", tc.at, tc.want, got)
		}
	}

	bad := []models.ScheduleRule{{StartTime: "25:00", EndTime: "11:00"}}
	if services.InSessionWindow(bad, day, window) {
		t.Fatalf("expected malformed rule to be skipped")
	}
}
