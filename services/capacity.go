// services/capacity.go - Seat accounting for courses and child courses
package services

import (
	"fmt"

	"acmportal/models"

	"gorm.io/gorm"
)

// SeatsTaken counts seat-consuming registrations of a course, both as the
// registered course and as a selected child item.
func SeatsTaken(tx *gorm.DB, courseID uint) (int64, error) {
	var direct int64
	if err := tx.Model(&models.Registration{}).
		Where("course_id = ? AND status IN ?", courseID, models.SeatConsuming).
		Count(&direct).Error; err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}

	var asChild int64
	if err := tx.Model(&models.RegistrationItem{}).
		Joins("JOIN registrations ON registrations.id = registration_items.registration_id").
		Where("registration_items.child_course_id = ? AND registrations.status IN ?", courseID, models.SeatConsuming).
		Count(&asChild).Error; err != nil {
		return 0, fmt.Errorf("count registration items: %w", err)
	}

	return direct + asChild, nil
}

// IsFull applies the capacity policy: unset capacity is never full, zero
// is always full, otherwise full once taken seats reach capacity.
func IsFull(tx *gorm.DB, course *models.Course) (bool, error) {
	if course.Capacity == nil {
		return false, nil
	}
	if *course.Capacity == 0 {
		return true, nil
	}
	taken, err := SeatsTaken(tx, course.ID)
	if err != nil {
		return false, err
	}
	return taken >= int64(*course.Capacity), nil
}

// RemainingSeats returns the open seats of a course; limited is false
// when the course has no capacity set.
func RemainingSeats(tx *gorm.DB, course *models.Course) (remaining int, limited bool, err error) {
	if course.Capacity == nil {
		return 0, false, nil
	}
	taken, err := SeatsTaken(tx, course.ID)
	if err != nil {
		return 0, true, err
	}
	left := int64(*course.Capacity) - taken
	if left < 0 {
		left = 0
	}
	return int(left), true, nil
}
