// Command backoffice runs staff transitions on team requests, course
// registrations and payments from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"acmportal/config"
	"acmportal/database"
	"acmportal/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "backoffice",
		Short:        "Backoffice actions for competitions, courses and payments",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(registrationCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(notificationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withServices loads configuration, opens the database and hands the
// wired services to run.
func withServices(run func(ctx context.Context, svc *services.Services, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		db, err := database.Connect(cfg.Database, gormlogger.Warn)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer database.Close(db)

		svc, err := services.New(db, cfg)
		if err != nil {
			return err
		}
		return run(cmd.Context(), svc, args)
	}
}

// parseIDs accepts ids as separate arguments or comma separated.
func parseIDs(args []string) ([]uint, error) {
	var ids []uint
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, uint(id))
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}
	return ids, nil
}
