package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	academicapp "github.com/madrasa/backend/internal/application/academic"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var in academicapp.OnboardInput
	flag.StringVar(&in.Code, "code", "", "Organization code, 3-20 upper-case letters and digits")
	flag.StringVar(&in.Name, "name", "", "Organization name")
	flag.StringVar(&in.Email, "email", "", "Contact email")
	flag.StringVar(&in.Phone, "phone", "", "Contact phone")
	flag.StringVar(&in.AdminEmail, "admin-email", "", "Email of the first ADMIN user")
	flag.StringVar(&in.AdminPassword, "admin-password", os.Getenv("MADRASA_ONBOARD_PASSWORD"), "Password of the first ADMIN user")
	flag.Parse()

	if in.Code == "" || in.Name == "" || in.AdminEmail == "" || in.AdminPassword == "" {
		fmt.Fprintln(os.Stderr, "Usage: onboard -code CODE -name NAME -admin-email EMAIL -admin-password PASSWORD")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(config.LogConfig{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := academicapp.NewOrganizationService(persistence.NewRepositories(db.DB), persistence.NewGormTransactionScope(db.DB), log)
	org, admin, err := svc.Onboard(ctx, in)
	if err != nil {
		log.Fatal("Onboarding failed", zap.Error(err))
	}
	log.Info("Organization ready",
		zap.String("tenant_id", org.ID.String()),
		zap.String("code", org.Code),
		zap.String("admin_id", admin.ID.String()),
	)
}
