package db

import (
	"errors" // Error inspection
	"fmt"    // Error wrapping
	"strings"

	"oficina/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table, parents before children
var Models = []any{
	&domain.User{},
	&domain.Client{},
	&domain.Vehicle{},
	&domain.Service{},
	&domain.Product{},
	&domain.ServiceOrder{},
	&domain.OrderItem{},
	&domain.OrderUpdate{},
	&domain.Category{},
	&domain.Transaction{},
	&domain.HistoryRecord{},
	&domain.Appointment{},
	&domain.Notification{},
	&domain.Favorite{},
	&domain.Comment{},
	&domain.ChecklistItem{},
	&domain.Attachment{},
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// SeedAdmin creates the first administrator when no user owns email yet.
// It reports whether a user was created.
func SeedAdmin(db *gorm.DB, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil // Seeding not requested
	}
	var existing domain.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil // Already there
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("db: seed lookup: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("db: seed hash: %w", err)
	}
	admin := domain.User{Name: name, Email: email, Password: string(hash), Role: domain.RoleAdmin, Active: true}
	if err := db.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("db: seed create: %w", Classify(err))
	}
	logrus.WithField("email", email).Info("administrator seeded")
	return true, nil
}
