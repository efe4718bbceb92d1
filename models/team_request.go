// models/team_request.go
package models

import "time"

type TeamRequestStatus string

const (
	TeamRequestPendingApproval      TeamRequestStatus = "PENDING_APPROVAL"
	TeamRequestPendingInvestigation TeamRequestStatus = "PENDING_INVESTIGATION"
	TeamRequestPendingPayment       TeamRequestStatus = "PENDING_PAYMENT"
	TeamRequestFinal                TeamRequestStatus = "FINAL"
	TeamRequestPaymentRejected      TeamRequestStatus = "PAYMENT_REJECTED"
	TeamRequestRejected             TeamRequestStatus = "REJECTED"
	TeamRequestCancelled            TeamRequestStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TeamRequestStatus) IsTerminal() bool {
	switch s {
	case TeamRequestFinal, TeamRequestPaymentRejected, TeamRequestRejected, TeamRequestCancelled:
		return true
	}
	return false
}

// BlocksParticipants reports whether members of a request in this status
// may not join another team of the same competition.
func (s TeamRequestStatus) BlocksParticipants() bool {
	switch s {
	case TeamRequestPendingApproval, TeamRequestPendingInvestigation, TeamRequestPendingPayment, TeamRequestFinal:
		return true
	}
	return false
}

type TeamRequest struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	CompetitionID uint              `json:"competition_id" gorm:"not null;index:idx_team_requests_competition_status"`
	Competition   *Competition      `json:"competition,omitempty" gorm:"foreignKey:CompetitionID"`
	SubmitterID   uint              `json:"submitter_id" gorm:"not null;index"`
	Submitter     *User             `json:"submitter,omitempty" gorm:"foreignKey:SubmitterID"`
	TeamName      string            `json:"team_name" gorm:"size:120"`
	Status        TeamRequestStatus `json:"status" gorm:"size:24;not null;default:'PENDING_APPROVAL';index:idx_team_requests_competition_status"`
	PaymentLink   string            `json:"payment_link" gorm:"size:500"`
	Members       []TeamMember      `json:"members,omitempty" gorm:"foreignKey:RequestID"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (TeamRequest) TableName() string {
	return "team_requests"
}
