package payment

import (
	"fmt"
	"strconv"
	"strings"

	"acmportal/apperrors"
	"acmportal/models"
)

// Target is what a payment buys. It is either a CompetitionTarget or a
// CourseBundleTarget.
type Target interface {
	Kind() models.PaymentTargetType
	// ID is the stored target_id.
	ID() string
	isTarget()
}

// CompetitionTarget is the signup fee of one team request.
type CompetitionTarget struct {
	RequestID uint
}

func (CompetitionTarget) Kind() models.PaymentTargetType { return models.TargetCompetition }

func (t CompetitionTarget) ID() string { return strconv.FormatUint(uint64(t.RequestID), 10) }

func (CompetitionTarget) isTarget() {}

// CourseBundleTarget is a parent course followed by the child courses
// bought with it.
type CourseBundleTarget struct {
	CourseIDs []uint
}

func (CourseBundleTarget) Kind() models.PaymentTargetType { return models.TargetCourse }

func (t CourseBundleTarget) ID() string {
	parts := make([]string, len(t.CourseIDs))
	for i, id := range t.CourseIDs {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func (CourseBundleTarget) isTarget() {}

// ParseTarget decodes a stored (target_type, target_id) pair.
func ParseTarget(kind models.PaymentTargetType, id string) (Target, error) {
	switch kind {
	case models.TargetCompetition:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknownTarget, fmt.Sprintf("invalid competition target %q", id), err)
		}
		return CompetitionTarget{RequestID: uint(n)}, nil
	case models.TargetCourse:
		var ids []uint
		for _, part := range strings.Split(id, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeUnknownTarget, fmt.Sprintf("invalid course bundle %q", id), err)
			}
			ids = append(ids, uint(n))
		}
		if len(ids) == 0 {
			return nil, apperrors.New(apperrors.CodeUnknownTarget, "empty course bundle")
		}
		return CourseBundleTarget{CourseIDs: ids}, nil
	default:
		return nil, apperrors.New(apperrors.CodeUnknownTarget, fmt.Sprintf("unknown target type %q", kind))
	}
}

// TargetOf returns the target a payment row points at.
func TargetOf(p *models.Payment) (Target, error) {
	return ParseTarget(p.TargetType, p.TargetID)
}
