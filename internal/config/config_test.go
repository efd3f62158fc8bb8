package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:              "8375",
		Env:               "development",
		DBDriver:          DriverPostgres,
		DBPassword:        "password",
		SessionCookieName: "gigfolio_session",
		SessionTTLHours:   24,
		UploadDir:         "uploads",
		UploadMaxSizeMB:   16,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Defaults are valid", func(_ *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"SQLite without path", func(c *Config) { c.DBDriver = DriverSQLite }, true},
		{"SQLite with path", func(c *Config) { c.DBDriver = DriverSQLite; c.DBSQLitePath = "x.db" }, false},
		{"Zero session TTL", func(c *Config) { c.SessionTTLHours = 0 }, true},
		{"Zero upload size", func(c *Config) { c.UploadMaxSizeMB = 0 }, true},
		{"Empty upload dir", func(c *Config) { c.UploadDir = "" }, true},
		{"Production default password", func(c *Config) {
			c.Env = "production"
			c.SessionCookieSecure = true
		}, true},
		{"Production insecure cookie", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "s3cure-and-long"
		}, true},
		{"Production hardened", func(c *Config) {
			c.Env = "prod"
			c.DBPassword = "s3cure-and-long"
			c.DBSSLMode = "require"
			c.SessionCookieSecure = true
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("DB_SQLITE_PATH", "test.db")
	t.Setenv("UPLOAD_NAMESPACE_BY_USER", "true")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, "test.db", c.DBSQLitePath)
	assert.True(t, c.UploadNamespaceByUser)
	assert.Equal(t, "gigfolio_session", c.SessionCookieName)
	assert.Equal(t, 16, c.UploadMaxSizeMB)
}
