package models_test

import (
	"testing"
	"time"

	"acmportal/models"
	"acmportal/testutil"
)

func TestFieldRequirementDefaults(t *testing.T) {
	var nilCfg *models.CompetitionFieldConfig
	if got := nilCfg.Requirement("national_id"); got != models.FieldRequired {
		t.Fatalf("expected REQ for a nil config, got %s", got)
	}

	cfg := &models.CompetitionFieldConfig{NationalID: models.FieldHidden}
	if got := cfg.Requirement("national_id"); got != models.FieldHidden {
		t.Fatalf("expected HID, got %s", got)
	}
	if got := cfg.Requirement("tshirt_size"); got != models.FieldRequired {
		t.Fatalf("expected an unset mode to be REQ, got %s", got)
	}
	if got := cfg.Requirement("favourite_color"); got != models.FieldRequired {
		t.Fatalf("expected an unknown field to be REQ, got %s", got)
	}
}

func TestScheduleRuleWindow(t *testing.T) {
	loc := time.FixedZone("IRST", 3*3600+1800)
	day := time.Date(2025, 3, 10, 22, 0, 0, 0, loc)

	start, end, err := models.ScheduleRule{StartTime: "18:30", EndTime: "20:00"}.Window(day)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !start.Equal(time.Date(2025, 3, 10, 18, 30, 0, 0, loc)) || !end.Equal(time.Date(2025, 3, 10, 20, 0, 0, 0, loc)) {
		t.Fatalf("unexpected window %s - %s", start, end)
	}

	if _, _, err := (models.ScheduleRule{StartTime: "6pm", EndTime: "20:00"}).Window(day); err == nil {
		t.Fatalf("expected an error for a malformed time")
	}
}

func TestMondayWeekday(t *testing.T) {
	if got := models.MondayWeekday(time.Monday); got != 0 {
		t.Fatalf("expected Monday to be 0, got %d", got)
	}
	if got := models.MondayWeekday(time.Sunday); got != 6 {
		t.Fatalf("expected Sunday to be 6, got %d", got)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !models.TeamRequestCancelled.IsTerminal() || models.TeamRequestPendingPayment.IsTerminal() {
		t.Fatalf("unexpected team request terminal states")
	}
	if models.TeamRequestRejected.BlocksParticipants() || !models.TeamRequestFinal.BlocksParticipants() {
		t.Fatalf("unexpected blocking states")
	}
	if !models.RegistrationReserved.IsPreDecision() || models.RegistrationApproved.IsPreDecision() {
		t.Fatalf("unexpected pre-decision states")
	}
}

func TestSlugDerivedFromName(t *testing.T) {
	db := testutil.NewDB(t)

	comp := &models.Competition{Name: "ICPC Tehran Site 2025", MinTeamSize: 3, MaxTeamSize: 3, IsActive: true}
	if err := db.Create(comp).Error; err != nil {
		t.Fatalf("Create competition failed: %v", err)
	}
	if comp.Slug != "icpc-tehran-site-2025" {
		t.Fatalf("expected icpc-tehran-site-2025, got %q", comp.Slug)
	}

	course := &models.Course{Name: "Dynamic Programming", Slug: "dp", IsActive: true}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("Create course failed: %v", err)
	}
	if course.Slug != "dp" {
		t.Fatalf("expected an explicit slug to be kept, got %q", course.Slug)
	}
}
