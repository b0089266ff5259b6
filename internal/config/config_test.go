package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/clausedesk/internal/usage"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, usage.DefaultLimits(), cfg.UsageLimits())
	assert.Equal(t, 15*time.Minute, cfg.Reminder.Interval)
	assert.True(t, cfg.Development())
	assert.True(t, cfg.Auth.DemoAccount)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLAUSEDESK_USAGE_REPORTS", "7")
	t.Setenv("CLAUSEDESK_USAGE_TIMEZONE", "America/New_York")
	t.Setenv("CLAUSEDESK_REMINDER_INTERVAL", "1m")
	t.Setenv("CLAUSEDESK_BILLING_DEMO_CHECKOUT", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.UsageLimits()[usage.ActionReports])
	assert.Equal(t, time.Minute, cfg.Reminder.Interval)
	assert.True(t, cfg.Billing.DemoCheckout)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "server:\n  addr: \":9090\"\nusage:\n  queries: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Usage.Queries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("negative limit", func(t *testing.T) {
		t.Setenv("CLAUSEDESK_USAGE_QUERIES", "-1")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("CLAUSEDESK_USAGE_TIMEZONE", "Mars/Olympus")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("production needs secret", func(t *testing.T) {
		t.Setenv("CLAUSEDESK_ENV", "production")
		_, err := Load("")
		assert.Error(t, err)

		t.Setenv("CLAUSEDESK_AUTH_JWT_SECRET", "s3cret")
		_, err = Load("")
		assert.NoError(t, err)
	})
}
