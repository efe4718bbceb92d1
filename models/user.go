// models/user.go
package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null;size:254" json:"email"`
	FirstName       string    `gorm:"size:150" json:"first_name"`
	LastName        string    `gorm:"size:150" json:"last_name"`
	PhoneNumber     string    `gorm:"size:30" json:"phone_number"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	IsStaff         bool      `gorm:"default:false" json:"is_staff"`
	IsEmailVerified bool      `gorm:"default:false" json:"is_email_verified"`
	DateJoined      time.Time `json:"date_joined"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Extra *UserExtraData `gorm:"foreignKey:UserID" json:"extra,omitempty"`
}

// FullName is the display name sent to external providers.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserExtraData holds profile answers collected by registration forms.
type UserExtraData struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	UserID           uint              `gorm:"uniqueIndex;not null" json:"user_id"`
	CodeforcesHandle string            `gorm:"size:64" json:"codeforces_handle"`
	CodeforcesScore  int               `gorm:"default:0" json:"codeforces_score"`
	Achievements     string            `gorm:"type:text" json:"achievements"`
	Answers          datatypes.JSONMap `json:"answers"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (UserExtraData) TableName() string {
	return "user_extra_data"
}
