// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"
	"log"

	"acmportal/models"

	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	// Accounts and catalog
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserExtraData{},
		&models.Course{},
		&models.ScheduleRule{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("core migrations: %w", err)
	}

	log.Println("✅ Core migrations completed")

	if err := RunCompetitionMigrations(db); err != nil {
		return fmt.Errorf("competition migrations: %w", err)
	}
	if err := RunRegistrationMigrations(db); err != nil {
		return fmt.Errorf("registration migrations: %w", err)
	}

	createCoreIndexes(db)

	log.Println("✅ All migrations completed successfully")
	return nil
}

// createCoreIndexes creates indexes gorm tags cannot express
func createCoreIndexes(db *gorm.DB) {
	log.Println("Creating core indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(lower(email))")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_payments_created ON payments(created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_queue ON notifications(status, created_at)")

	log.Println("✅ Core indexes created successfully")
}
