package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every MANIFEST_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "MANIFEST_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "manifest-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "manifest", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "staging", cfg.Carrier.Mode)
	assert.Equal(t, 60*time.Second, cfg.Carrier.Timeout)

	assert.Equal(t, "Preetizen Lifestyle", cfg.Pickup.Name)
	assert.Equal(t, "Kolkata", cfg.Pickup.City)
	assert.Equal(t, "700107", cfg.Pickup.Pin)
	assert.Equal(t, "India", cfg.Pickup.Country)

	assert.Equal(t, "150.00", cfg.Compliance.ConsigneeGSTAmount)
	assert.Equal(t, "275.50", cfg.Compliance.IntegratedGSTAmount)
	assert.Equal(t, "35.25", cfg.Compliance.GSTCessAmount)
	assert.Equal(t, "27ABCDE1234F1Z5", cfg.Compliance.ConsigneeGSTTIN)
	assert.Equal(t, "851770", cfg.Compliance.HSNCode)

	assert.False(t, cfg.Manifest.DryRun)
	assert.Equal(t, "India", cfg.Manifest.Country)
	assert.Equal(t, 15*time.Minute, cfg.Manifest.PendingBatchAge)
	assert.Equal(t, time.Minute, cfg.Manifest.PendingCheckInterval)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "manifest-backend", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MANIFEST_APP_PORT", "9000")
	t.Setenv("MANIFEST_DATABASE_DRIVER", "sqlite")
	t.Setenv("MANIFEST_DATABASE_PATH", ":memory:")
	t.Setenv("MANIFEST_CARRIER_MODE", "live")
	t.Setenv("MANIFEST_CARRIER_TOKEN", "secret-token")
	t.Setenv("MANIFEST_PICKUP_NAME", "Warehouse 2")
	t.Setenv("MANIFEST_MANIFEST_DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "live", cfg.Carrier.Mode)
	assert.Equal(t, "secret-token", cfg.Carrier.Token)
	assert.Equal(t, "Warehouse 2", cfg.Pickup.Name)
	assert.Equal(t, "Kolkata", cfg.Pickup.City)
	assert.True(t, cfg.Manifest.DryRun)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[app]
name = "manifest-test"

[carrier]
mode = "staging"
timeout = "5s"

[pickup]
name = "Hub"
city = "Pune"
pin = "411001"
country = "India"

[compliance]
hsn_code = "620520"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "manifest-test", cfg.App.Name)
	assert.Equal(t, 5*time.Second, cfg.Carrier.Timeout)
	assert.Equal(t, "Pune", cfg.Pickup.City)
	assert.Equal(t, "620520", cfg.Compliance.HSNCode)
	assert.Equal(t, "150.00", cfg.Compliance.ConsigneeGSTAmount)

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("MANIFEST_PICKUP_CITY", "Mumbai")
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Mumbai", cfg.Pickup.City)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "cannot exceed"},
		{"unknown carrier mode", func(c *Config) { c.Carrier.Mode = "sandbox" }, "carrier.mode"},
		{"bad base url", func(c *Config) { c.Carrier.BaseURL = "not a url" }, "carrier.base_url"},
		{"non-numeric pin", func(c *Config) { c.Pickup.Pin = "70O107" }, "pickup"},
		{"short gst tin", func(c *Config) { c.Compliance.ConsigneeGSTTIN = "27ABC" }, "compliance"},
		{"non-numeric gst amount", func(c *Config) { c.Compliance.GSTCessAmount = "abc" }, "compliance"},
		{"sampling ratio above one", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
		{"production needs carrier token", func(c *Config) {
			c.App.Env = "production"
			c.Database.Password = "pw"
			c.Database.SSLMode = "require"
		}, "carrier.token"},
		{"production dry run needs no token", func(c *Config) {
			c.App.Env = "production"
			c.Manifest.DryRun = true
			c.Database.Password = "pw"
			c.Database.SSLMode = "require"
		}, ""},
		{"production rejects sslmode disable", func(c *Config) {
			c.App.Env = "production"
			c.Carrier.Token = "t"
			c.Database.Password = "pw"
		}, "sslmode"},
		{"production sqlite skips postgres checks", func(c *Config) {
			c.App.Env = "production"
			c.Carrier.Token = "t"
			c.Database.Driver = "sqlite"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "manifest", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:5432/manifest?sslmode=disable", d.DSN())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
