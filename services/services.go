// services/services.go - Wiring shared by the HTTP server and the backoffice CLI
package services

import (
	"fmt"

	"acmportal/config"
	"acmportal/gateway"
	"acmportal/notify"
	"acmportal/payment"
	"acmportal/videoroom"

	"gorm.io/gorm"
)

// Services holds the workflow services built over one database.
type Services struct {
	Queue         *notify.Queue
	Ledger        *payment.Ledger
	Catalog       *CatalogService
	Teams         *TeamRequestService
	Registrations *RegistrationService
}

// New builds the payment gateway, the ledger and the workflow services
// and registers the workflows as settlement listeners.
func New(db *gorm.DB, cfg config.Config) (*Services, error) {
	gw, err := gateway.New(cfg.Payment)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}

	queue := notify.NewQueue(db)
	ledger := payment.NewLedger(db, gw, cfg.Payment, queue)
	teams := NewTeamRequestService(db, ledger, queue, cfg)
	registrations := NewRegistrationService(db, ledger, queue, videoroom.NewSkyroom(cfg.Skyroom), cfg)

	ledger.RegisterCompetition(teams)
	ledger.RegisterCourse(registrations)

	return &Services{
		Queue:         queue,
		Ledger:        ledger,
		Catalog:       NewCatalogService(db),
		Teams:         teams,
		Registrations: registrations,
	}, nil
}
