package testutil

import (
	"fmt"
	"testing"
	"time"

	"acmportal/models"

	"gorm.io/gorm"
)

// CreateUser inserts a verified, active user with the given email.
func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Email:           email,
		FirstName:       "Test",
		LastName:        "User",
		PhoneNumber:     "09120000000",
		IsActive:        true,
		IsEmailVerified: true,
		DateJoined:      time.Now().UTC(),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return u
}

// CreateCompetition inserts an active competition.
func CreateCompetition(t testing.TB, db *gorm.DB, min, max int, fee int64, backoffice bool) *models.Competition {
	t.Helper()
	c := &models.Competition{
		Name:                       fmt.Sprintf("Contest %d-%d-%d", min, max, fee),
		MinTeamSize:                min,
		MaxTeamSize:                max,
		SignupFee:                  fee,
		RequiresBackofficeApproval: backoffice,
		IsActive:                   true,
	}
	c.Slug = fmt.Sprintf("contest-%d", time.Now().UnixNano())
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create competition: %v", err)
	}
	return c
}

// CreateCourse inserts an active course. A negative capacity means unlimited.
func CreateCourse(t testing.TB, db *gorm.DB, slug string, capacity int, price int64, requiresApproval bool) *models.Course {
	t.Helper()
	c := &models.Course{
		Name:             "Course " + slug,
		Slug:             slug,
		Price:            price,
		RequiresApproval: requiresApproval,
		IsActive:         true,
	}
	if capacity >= 0 {
		c.Capacity = &capacity
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create course %s: %v", slug, err)
	}
	return c
}

// AddChildren links children to parent.
func AddChildren(t testing.TB, db *gorm.DB, parent *models.Course, children ...*models.Course) {
	t.Helper()
	for _, child := range children {
		if err := db.Exec("INSERT INTO course_children (parent_id, child_id) VALUES (?, ?)", parent.ID, child.ID).Error; err != nil {
			t.Fatalf("Failed to link child %d to %d: %v", child.ID, parent.ID, err)
		}
	}
}

// CreateRegistration inserts a registration in the given status with
// optional child items priced at their current price.
func CreateRegistration(t testing.TB, db *gorm.DB, course *models.Course, user *models.User, status models.RegistrationStatus, children ...*models.Course) *models.Registration {
	t.Helper()
	reg := &models.Registration{
		CourseID:    course.ID,
		UserID:      user.ID,
		Status:      status,
		SubmittedAt: time.Now().UTC(),
	}
	for _, child := range children {
		reg.Items = append(reg.Items, models.RegistrationItem{ChildCourseID: child.ID, Price: child.Price})
	}
	if err := db.Create(reg).Error; err != nil {
		t.Fatalf("Failed to create registration: %v", err)
	}
	return reg
}
