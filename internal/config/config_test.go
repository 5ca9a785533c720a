package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "correlator", cfg.App.Name)
	assert.Equal(t, "Comprobantes", cfg.Correlator.Group)
	assert.Equal(t, 60000, cfg.Correlator.LiveWaitMS)
	assert.Equal(t, 60, cfg.Correlator.WindowSeconds)
	assert.Equal(t, 500, cfg.Correlator.BatchSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CORRELATOR_GROUP", "Pagos")
	t.Setenv("CORRELATOR_LIVE_WAIT_MS", "1500")
	t.Setenv("CORRELATOR_WINDOW_SECONDS", "30")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "Pagos", cfg.Correlator.Group)
	assert.Equal(t, 1500*time.Millisecond, cfg.Correlator.LiveWait())
	assert.Equal(t, 30*time.Second, cfg.Correlator.Window())
}
