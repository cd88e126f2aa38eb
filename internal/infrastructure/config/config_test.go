package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "schoolpay-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "schoolpay.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, base().validate())
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "mysql"
		assert.Error(t, cfg.validate())
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 50
		assert.Error(t, cfg.validate())
	})

	t.Run("production postgres requires password", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		cfg.Database.Driver = "postgres"
		cfg.Database.SSLMode = "require"
		assert.Error(t, cfg.validate())

		cfg.Database.Password = "secret"
		assert.NoError(t, cfg.validate())
	})

	t.Run("production sqlite needs no password", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	t.Run("sqlite uses the file path", func(t *testing.T) {
		d := DatabaseConfig{Driver: "sqlite", Path: "ledger.db"}
		assert.Equal(t, "ledger.db", d.DSN())
	})

	t.Run("postgres escapes credentials", func(t *testing.T) {
		d := DatabaseConfig{
			Driver:   "postgres",
			Host:     "db.local",
			Port:     5432,
			User:     "bursar",
			Password: "p@ss/word",
			DBName:   "schoolpay",
			SSLMode:  "require",
		}
		dsn := d.DSN()
		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "db.local:5432")
		assert.Contains(t, dsn, "sslmode=require")
		assert.NotContains(t, dsn, "p@ss/word", "password must be URL-escaped")
	})
}
