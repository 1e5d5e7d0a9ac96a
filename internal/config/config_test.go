package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		DBSSLMode:                "disable",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		ImageMaxUploadSizeMB:     10,
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		StorageBackend:           "local",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.DBSSLMode = "require"
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c.JWTSecret = "secure-secret-at-least-32-chars-long"
	c.DBPassword = "password"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateStorageBackend(t *testing.T) {
	c := validConfig()
	c.StorageBackend = "s3"
	assert.Error(t, c.Validate())

	c.S3Bucket = "farmlink-media"
	assert.NoError(t, c.Validate())

	c.StorageBackend = "ftp"
	assert.Error(t, c.Validate())
}

func TestConfig_Durations(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())
	assert.Equal(t, 10*time.Second, c.UpstreamTimeout())

	c.JWTTTLHours = 2
	c.UpstreamTimeoutSeconds = 3
	assert.Equal(t, 2*time.Hour, c.TokenTTL())
	assert.Equal(t, 3*time.Second, c.UpstreamTimeout())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("STORAGE_BACKEND", " Local ")
	t.Setenv("MEDIA_BASE_URL", "/media/")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "local", c.StorageBackend)
	assert.Equal(t, "/media", c.MediaBaseURL)
	assert.Equal(t, "farmlink", c.DBName)
}
