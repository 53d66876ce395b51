package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 72*time.Hour, cfg.PublicLinkTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.False(t, cfg.StorageEnabled())
	assert.False(t, cfg.MailEnabled())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DBDriver:      DriverMySQL,
			JWTSecret:     testSecret,
			JWTTTL:        time.Hour,
			PublicLinkTTL: time.Hour,
			MaxUploadSize: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: "JWT_SECRET"},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "oracle" }, wantErr: "DB_DRIVER"},
		{name: "zero ttl", mutate: func(c *Config) { c.PublicLinkTTL = 0 }, wantErr: "lifetimes"},
		{name: "zero upload size", mutate: func(c *Config) { c.MaxUploadSize = 0 }, wantErr: "MAX_UPLOAD_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
