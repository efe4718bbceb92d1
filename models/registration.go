// models/registration.go
package models

import "time"

type RegistrationStatus string

const (
	RegistrationSubmitted RegistrationStatus = "SUBMITTED"
	RegistrationReserved  RegistrationStatus = "RESERVED"
	RegistrationQueued    RegistrationStatus = "QUEUED"
	RegistrationApproved  RegistrationStatus = "APPROVED"
	RegistrationFinal     RegistrationStatus = "FINAL"
	RegistrationRejected  RegistrationStatus = "REJECTED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

// SeatConsuming lists the statuses counted against course capacity.
var SeatConsuming = []RegistrationStatus{RegistrationApproved, RegistrationFinal}

func (s RegistrationStatus) IsTerminal() bool {
	switch s {
	case RegistrationFinal, RegistrationRejected, RegistrationCancelled:
		return true
	}
	return false
}

// IsPreDecision reports whether backoffice has not decided yet.
func (s RegistrationStatus) IsPreDecision() bool {
	switch s {
	case RegistrationSubmitted, RegistrationQueued, RegistrationReserved:
		return true
	}
	return false
}

type Registration struct {
	ID       uint               `json:"id" gorm:"primaryKey"`
	CourseID uint               `json:"course_id" gorm:"not null;uniqueIndex:idx_registrations_course_user"`
	Course   *Course            `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	UserID   uint               `json:"user_id" gorm:"not null;uniqueIndex:idx_registrations_course_user;index"`
	User     *User              `json:"-" gorm:"foreignKey:UserID"`
	Status   RegistrationStatus `json:"status" gorm:"size:12;not null;default:'SUBMITTED';index"`

	ResumeURL       string `json:"resume_url" gorm:"size:500"`
	RejectionReason string `json:"rejection_reason" gorm:"type:text"`
	PaymentLink     string `json:"payment_link" gorm:"size:500"`

	Items []RegistrationItem `json:"items,omitempty" gorm:"foreignKey:RegistrationID"`

	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// RegistrationItem is a child course selected alongside the parent, with
// its price captured at submission time.
type RegistrationItem struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RegistrationID uint      `json:"registration_id" gorm:"not null;uniqueIndex:idx_registration_items_reg_child"`
	ChildCourseID  uint      `json:"child_course_id" gorm:"not null;uniqueIndex:idx_registration_items_reg_child;index"`
	ChildCourse    *Course   `json:"child_course,omitempty" gorm:"foreignKey:ChildCourseID"`
	Price          int64     `json:"price" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Registration) TableName() string {
	return "registrations"
}

func (RegistrationItem) TableName() string {
	return "registration_items"
}
