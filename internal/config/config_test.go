package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:      "8642",
		JWTSecret: "a-sufficiently-long-development-secret!!",
		Env:       "development",
	}
}

func TestValidate_RequiresPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionRejectsDefaultSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "your-secret-key-change-in-production"
	cfg.DBPassword = "S3cure-db-password"
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionRejectsShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "too-short"
	cfg.DBPassword = "S3cure-db-password"
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionRejectsWeakDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionAcceptsStrongValues(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.DBPassword = "S3cure-db-password"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_DevelopmentAllowsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "your-secret-key-change-in-production"
	assert.NoError(t, cfg.Validate())
}
