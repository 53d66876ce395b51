package main

import (
	"oficina/internal/config" // Custom import path (Config)
	"oficina/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed")

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	created, err := db.SeedAdmin(gdb, "Administrador", cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logrus.Fatalf("admin seed failed: %v", err)
	}
	logrus.WithFields(logrus.Fields{"email": cfg.AdminEmail, "created": created}).Info("Admin account checked")
}
