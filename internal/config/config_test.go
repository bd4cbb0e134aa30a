package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: "+filepath.Join(dir, "data", "test.db")+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Dhaka", cfg.Timezone)
	assert.Equal(t, 10*time.Minute, cfg.HoldDuration())
	assert.Equal(t, 30*24*time.Hour, cfg.BookingHorizon())
	assert.Equal(t, 10*time.Minute, cfg.Sessions.GroupReply.TTL())

	// The database directory is created as a side effect.
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("BOOKING_TZ", "Europe/Moscow")

	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "booking.db")+`
timezone: ${BOOKING_TZ}
booking:
  hold_minutes: 5
  horizon_days: 14
sessions:
  rating:
    max_uses: 5
    ttl_minutes: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Moscow", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.HoldDuration())
	assert.Equal(t, 14*24*time.Hour, cfg.BookingHorizon())
	assert.Equal(t, time.Hour, cfg.Sessions.Rating.TTL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
