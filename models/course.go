// models/course.go
package models

import (
	"fmt"
	"time"

	"acmportal/utils"

	"gorm.io/gorm"
)

type Course struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null;size:200"`
	Subtitle    string `json:"subtitle" gorm:"size:200"`
	Description string `json:"description" gorm:"type:text"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:220"`

	StartDate    *time.Time `json:"start_date,omitempty"`
	Online       bool       `json:"online" gorm:"not null"`
	Onsite       bool       `json:"onsite" gorm:"default:false"`
	ClassesCount int        `json:"classes_count" gorm:"default:0"`

	// Capacity nil means unlimited seats, 0 means closed.
	Capacity         *int  `json:"capacity"`
	Price            int64 `json:"price" gorm:"not null;default:0"`
	RequiresApproval bool  `json:"requires_approval" gorm:"not null"`
	IsActive         bool  `json:"is_active" gorm:"not null;index"`

	Children []Course       `json:"children,omitempty" gorm:"many2many:course_children;joinForeignKey:ParentID;joinReferences:ChildID"`
	Schedule []ScheduleRule `json:"schedule,omitempty" gorm:"foreignKey:CourseID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleRule is a weekly time slot of a course. Weekday is 0 for Monday
// through 6 for Sunday; times are "HH:MM" in the configured time zone.
type ScheduleRule struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	CourseID  uint   `json:"course_id" gorm:"not null;index"`
	Weekday   int    `json:"weekday" gorm:"not null"`
	StartTime string `json:"start_time" gorm:"size:5;not null"`
	EndTime   string `json:"end_time" gorm:"size:5;not null"`
}

// Window returns the rule's start and end on the given day.
func (r ScheduleRule) Window(day time.Time) (time.Time, time.Time, error) {
	start, err := clockOn(day, r.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockOn(day, r.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule time %q: %w", hhmm, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// MondayWeekday converts a time.Weekday to the Monday=0 convention.
func MondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = utils.Slugify(c.Name)
	}
	return nil
}

func (Course) TableName() string {
	return "courses"
}

func (ScheduleRule) TableName() string {
	return "schedule_rules"
}
