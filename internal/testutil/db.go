// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"testing"

	"oficina/internal/db"
	"oficina/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Secret signs tokens in tests
const Secret = "test-secret-0123456789abcdef0123456789"

// NewDB opens a private in-memory SQLite database migrated with the production schema
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // One connection keeps the memory database alive and serializes writers
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// CreateUser inserts an active user with the given role and password "secret123"
func CreateUser(t testing.TB, gdb *gorm.DB, name, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: email, Password: string(hash), Role: role, Active: true}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// CreateOrder inserts a client, a vehicle and an open service order for them
func CreateOrder(t testing.TB, gdb *gorm.DB) *domain.ServiceOrder {
	t.Helper()
	client := &domain.Client{Name: "Maria Souza"}
	require.NoError(t, gdb.Create(client).Error)
	vehicle := &domain.Vehicle{ClientID: client.ID, Plate: "ABC" + uuid.NewString()[:4], Make: "Fiat", Model: "Uno", Year: 2012}
	require.NoError(t, gdb.Create(vehicle).Error)
	order := &domain.ServiceOrder{
		ClientID:  client.ID,
		VehicleID: vehicle.ID,
		Status:    domain.StatusOpen,
		Total:     decimal.Zero,
		Problem:   "Barulho na suspensão",
	}
	require.NoError(t, gdb.Create(order).Error)
	return order
}
