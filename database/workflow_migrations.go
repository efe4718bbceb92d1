// database/workflow_migrations.go - Competition and course registration tables
package database

import (
	"log"

	"acmportal/models"

	"gorm.io/gorm"
)

// RunCompetitionMigrations creates competition and team request tables
func RunCompetitionMigrations(db *gorm.DB) error {
	log.Println("Running competition migrations...")

	if err := db.AutoMigrate(
		&models.Competition{},
		&models.CompetitionFieldConfig{},
		&models.TeamRequest{},
		&models.TeamMember{},
	); err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_members_email_lower ON team_members(lower(email))")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_team_requests_submitter_created ON team_requests(submitter_id, created_at DESC)")

	log.Println("✅ Competition migrations completed successfully")
	return nil
}

// RunRegistrationMigrations creates course registration tables
func RunRegistrationMigrations(db *gorm.DB) error {
	log.Println("Running registration migrations...")

	if err := db.AutoMigrate(
		&models.Registration{},
		&models.RegistrationItem{},
	); err != nil {
		return err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_registrations_course_status ON registrations(course_id, status)")

	log.Println("✅ Registration migrations completed successfully")
	return nil
}
