// models/team_member.go
package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// TeamMember is one participant of a team request. Only the submitter is
// linked to a user; other members are identified by email.
type TeamMember struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	RequestID uint         `json:"request_id" gorm:"not null;uniqueIndex:idx_team_members_request_email"`
	Request   *TeamRequest `json:"-" gorm:"foreignKey:RequestID"`
	UserID    *uint        `json:"user_id,omitempty" gorm:"index"`

	FirstName        string `json:"first_name" gorm:"size:150"`
	LastName         string `json:"last_name" gorm:"size:150"`
	Email            string `json:"email" gorm:"size:254;not null;uniqueIndex:idx_team_members_request_email"`
	PhoneNumber      string `json:"phone_number" gorm:"size:30"`
	NationalID       string `json:"national_id" gorm:"size:50"`
	StudentNumber    string `json:"student_number" gorm:"size:15"`
	StudentCardImage string `json:"student_card_image" gorm:"size:500"`
	NationalIDImage  string `json:"national_id_image" gorm:"size:500"`
	TshirtSize       string `json:"tshirt_size" gorm:"size:10"`
	UniversityName   string `json:"university_name" gorm:"size:120"`

	ApprovalStatus    ApprovalStatus `json:"approval_status" gorm:"size:10;not null;default:'PENDING'"`
	ApprovalTokenHash string         `json:"-" gorm:"size:64;index"`
	// ConsumedTokenHash keeps the spent token so replays of the same link
	// return the recorded decision.
	ConsumedTokenHash      string     `json:"-" gorm:"size:64;index"`
	ApprovalTokenExpiresAt *time.Time `json:"-"`
	ApprovalAt             *time.Time `json:"approval_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
