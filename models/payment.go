// models/payment.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "PENDING"
	PaymentSuccessful      PaymentStatus = "SUCCESSFUL"
	PaymentFailed          PaymentStatus = "FAILED"
	PaymentGatewayInitFail PaymentStatus = "PG_INITIATE_ERROR"
)

type PaymentTargetType string

const (
	TargetCourse      PaymentTargetType = "COURSE"
	TargetCompetition PaymentTargetType = "COMPETITION"
)

// Payment is one gateway attempt. TargetID may hold a CSV bundle
// ("parent,child1,child2") for course purchases.
type Payment struct {
	ID         uint              `json:"id" gorm:"primaryKey"`
	UserID     uint              `json:"user_id" gorm:"not null;index:idx_payments_user_status"`
	User       *User             `json:"-" gorm:"foreignKey:UserID"`
	TargetType PaymentTargetType `json:"target_type" gorm:"size:16;not null;index:idx_payments_target"`
	TargetID   string            `json:"target_id" gorm:"size:255;not null;index:idx_payments_target"`

	Amount   int64         `json:"amount" gorm:"not null"`
	Currency string        `json:"currency" gorm:"size:8;default:'IRR'"`
	Status   PaymentStatus `json:"status" gorm:"size:24;not null;default:'PENDING';index:idx_payments_user_status;index:idx_payments_target"`

	Authority      string `json:"authority" gorm:"size:64;index"`
	RefID          string `json:"ref_id" gorm:"size:64"`
	CardPan        string `json:"card_pan" gorm:"size:32"`
	CardHash       string `json:"-" gorm:"size:128"`
	GatewayCode    string `json:"gateway_code" gorm:"size:8"`
	GatewayMessage string `json:"gateway_message" gorm:"size:200"`

	Description string            `json:"description" gorm:"size:255"`
	Metadata    datatypes.JSONMap `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
