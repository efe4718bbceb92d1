package payment

import (
	"testing"

	"acmportal/apperrors"
	"acmportal/models"
)

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget(models.TargetCourse, "12, 30,31")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bundle, ok := target.(CourseBundleTarget)
	if !ok {
		t.Fatalf("expected course bundle, got %T", target)
	}
	if len(bundle.CourseIDs) != 3 || bundle.CourseIDs[0] != 12 || bundle.ID() != "12,30,31" {
		t.Fatalf("unexpected bundle %+v", bundle)
	}

	target, err = ParseTarget(models.TargetCompetition, "7")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c, ok := target.(CompetitionTarget); !ok || c.RequestID != 7 {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestParseTargetRejectsGarbage(t *testing.T) {
	cases := []struct {
		kind models.PaymentTargetType
		id   string
	}{
		{models.TargetCompetition, "abc"},
		{models.TargetCourse, " , "},
		{models.TargetCourse, "1,x"},
		{"MEMBERSHIP", "1"},
	}
	for _, tc := range cases {
		if _, err := ParseTarget(tc.kind, tc.id); !apperrors.HasCode(err, apperrors.CodeUnknownTarget) {
			t.Fatalf("ParseTarget(%s, %q): expected unknown target, got %v", tc.kind, tc.id, err)
		}
	}
}

func TestMetaUint(t *testing.T) {
	meta := map[string]interface{}{"a": float64(42), "b": uint(3), "c": "17", "d": "x", "e": float64(0)}
	if v, ok := metaUint(meta, "a"); !ok || v != 42 {
		t.Fatalf("expected 42, got %d %v", v, ok)
	}
	if v, ok := metaUint(meta, "b"); !ok || v != 3 {
		t.Fatalf("expected 3, got %d %v", v, ok)
	}
	if v, ok := metaUint(meta, "c"); !ok || v != 17 {
		t.Fatalf("expected 17, got %d %v", v, ok)
	}
	for _, key := range []string{"d", "e", "missing"} {
		if _, ok := metaUint(meta, key); ok {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}
