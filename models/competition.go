// models/competition.go
package models

import (
	"time"

	"acmportal/utils"

	"gorm.io/gorm"
)

type Competition struct {
	ID                         uint                    `json:"id" gorm:"primaryKey"`
	Name                       string                  `json:"name" gorm:"not null;size:200"`
	Slug                       string                  `json:"slug" gorm:"uniqueIndex;size:220"`
	Description                string                  `json:"description" gorm:"type:text"`
	MinTeamSize                int                     `json:"min_team_size" gorm:"default:1"`
	MaxTeamSize                int                     `json:"max_team_size" gorm:"default:1"`
	SignupFee                  int64                   `json:"signup_fee" gorm:"default:0"`
	RequiresBackofficeApproval bool                    `json:"requires_backoffice_approval" gorm:"not null"`
	IsActive                   bool                    `json:"is_active" gorm:"not null;index"`
	FieldConfig                *CompetitionFieldConfig `json:"field_config,omitempty" gorm:"foreignKey:CompetitionID"`
	CreatedAt                  time.Time               `json:"created_at"`
	UpdatedAt                  time.Time               `json:"updated_at"`
}

type FieldRequirement string

const (
	FieldRequired FieldRequirement = "REQ"
	FieldOptional FieldRequirement = "OPT"
	FieldHidden   FieldRequirement = "HID"
)

// CompetitionFieldConfig controls which participant fields are required,
// optional or hidden for a competition.
type CompetitionFieldConfig struct {
	ID               uint             `json:"id" gorm:"primaryKey"`
	CompetitionID    uint             `json:"competition_id" gorm:"uniqueIndex;not null"`
	FirstName        FieldRequirement `json:"first_name" gorm:"size:3;default:'REQ'"`
	LastName         FieldRequirement `json:"last_name" gorm:"size:3;default:'REQ'"`
	Email            FieldRequirement `json:"email" gorm:"size:3;default:'REQ'"`
	PhoneNumber      FieldRequirement `json:"phone_number" gorm:"size:3;default:'REQ'"`
	NationalID       FieldRequirement `json:"national_id" gorm:"size:3;default:'OPT'"`
	StudentNumber    FieldRequirement `json:"student_number" gorm:"size:3;default:'OPT'"`
	StudentCardImage FieldRequirement `json:"student_card_image" gorm:"size:3;default:'OPT'"`
	NationalIDImage  FieldRequirement `json:"national_id_image" gorm:"size:3;default:'OPT'"`
	TshirtSize       FieldRequirement `json:"tshirt_size" gorm:"size:3;default:'OPT'"`
	UniversityName   FieldRequirement `json:"university_name" gorm:"size:3;default:'OPT'"`
}

// Requirement returns the mode for a participant field name. A nil config
// or an unknown field is treated as required.
func (c *CompetitionFieldConfig) Requirement(field string) FieldRequirement {
	if c == nil {
		return FieldRequired
	}
	var mode FieldRequirement
	switch field {
	case "first_name":
		mode = c.FirstName
	case "last_name":
		mode = c.LastName
	case "email":
		mode = c.Email
	case "phone_number":
		mode = c.PhoneNumber
	case "national_id":
		mode = c.NationalID
	case "student_number":
		mode = c.StudentNumber
	case "student_card_image":
		mode = c.StudentCardImage
	case "national_id_image":
		mode = c.NationalIDImage
	case "tshirt_size":
		mode = c.TshirtSize
	case "university_name":
		mode = c.UniversityName
	}
	if mode == "" {
		return FieldRequired
	}
	return mode
}

// BeforeCreate derives the slug from the name when none is given.
func (c *Competition) BeforeCreate(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = utils.Slugify(c.Name)
	}
	return nil
}

func (Competition) TableName() string {
	return "competitions"
}

func (CompetitionFieldConfig) TableName() string {
	return "competition_field_configs"
}
