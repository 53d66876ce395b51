package db

import (
	"fmt"  // DSN building and error wrapping
	"time" // Retry intervals

	"oficina/internal/config" // Application configuration

	"github.com/cenkalti/backoff/v4" // Connect retry with exponential backoff
	"github.com/sirupsen/logrus"     // Logging library
	"gorm.io/driver/mysql"           // MySQL driver for GORM
	"gorm.io/driver/postgres"        // PostgreSQL driver for GORM
	"gorm.io/driver/sqlite"          // SQLite driver for GORM
	"gorm.io/gorm"                   // GORM ORM library
)

// DSN returns the connection string for the configured driver
func DSN(cfg *config.Config) string {
	if cfg.DBDSN != "" {
		return cfg.DBDSN // Explicit DSN wins
	}
	switch cfg.DBDriver {
	case config.DriverPostgres:
		port := cfg.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, port, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	case config.DriverSQLite:
		return cfg.DBName + ".db" // Local file next to the binary
	default:
		port := cfg.DBPort
		if port == "" {
			port = "3306"
		}
		return cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + port + ")/" + cfg.DBName +
			"?charset=utf8mb4&parseTime=true&loc=UTC"
	}
}

func dialector(driver, dsn string) gorm.Dialector {
	switch driver {
	case config.DriverPostgres:
		return postgres.Open(dsn)
	case config.DriverSQLite:
		return sqlite.Open(dsn)
	default:
		return mysql.Open(dsn)
	}
}

// Open connects to the configured database, retrying until DB_CONNECT_TIMEOUT elapses,
// and applies the pool settings
func Open(cfg *config.Config) (*gorm.DB, error) {
	dsn := DSN(cfg)
	gcfg := &gorm.Config{Logger: NewLogger(time.Second)} // Route SQL logs through logrus

	var conn *gorm.DB
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.DBConnectTimeout // Give up after the configured budget
	err := backoff.RetryNotify(func() error {
		db, err := gorm.Open(dialector(cfg.DBDriver, dsn), gcfg) // Fresh dialector per attempt
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err) // Not a connectivity problem
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return err
		}
		conn = db
		return nil
	}, policy, func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{"driver": cfg.DBDriver, "retry_in": wait}).WithError(err).Warn("database not reachable yet")
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("db: pool handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)       // Pool ceiling
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)       // Idle connections kept
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime) // Recycle age
	if cfg.DBDriver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1) // SQLite serializes writers anyway
	}
	logrus.WithField("driver", cfg.DBDriver).Info("database connected")
	return conn, nil
}

// IsSQLite reports whether db talks to SQLite, which has no row locks
func IsSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == config.DriverSQLite
}
