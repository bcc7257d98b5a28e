package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, env(nil), io.Discard)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.3, cfg.ConfidenceThreshold)
	assert.Equal(t, 0.1, cfg.PinchThreshold)
	assert.Equal(t, 50.0, cfg.Padding)
	assert.Equal(t, 0, cfg.MaxHeldFrames)
	assert.Equal(t, UIWindow, cfg.UI)
}

func TestLoad_Precedence(t *testing.T) {
	vars := map[string]string{
		"HANDDISTANCE_PINCH_THRESHOLD": "0.2",
		"HANDDISTANCE_CAMERA":          "3",
		"HANDDISTANCE_UI":              "tray",
	}

	cfg, err := Load([]string{"-camera", "1", "-padding", "10"}, env(vars), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.CameraID, "flag beats environment")
	assert.Equal(t, 0.2, cfg.PinchThreshold, "environment beats default")
	assert.Equal(t, 10.0, cfg.Padding)
	assert.Equal(t, UITray, cfg.UI)
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := Load([]string{"-camera", "front"}, env(nil), io.Discard)
	assert.Error(t, err)
}

func TestLoad_BadEnvIsIgnored(t *testing.T) {
	cfg, err := Load(nil, env(map[string]string{"HANDDISTANCE_CAMERA": "front"}), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.CameraID)
}

func TestMergeSettings(t *testing.T) {
	cfg, err := Load([]string{"-padding", "20"}, env(map[string]string{"HANDDISTANCE_MIRROR": "false"}), io.Discard)
	require.NoError(t, err)

	err = cfg.MergeSettings(map[string]string{
		"padding":         "80",
		"mirror":          "true",
		"pinch-threshold": "0.15",
		"log-level":       "trace",
		"unknown":         "x",
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, cfg.Padding, "flag beats stored setting")
	assert.False(t, cfg.Mirror, "environment beats stored setting")
	assert.Equal(t, 0.15, cfg.PinchThreshold, "stored setting beats default")
	assert.Equal(t, "info", cfg.LogLevel, "log level is never taken from storage")

	t.Run("bad stored value", func(t *testing.T) {
		cfg := Default()
		assert.Error(t, cfg.MergeSettings(map[string]string{"camera": "nope"}))
	})
}

func TestSettings_RoundTrip(t *testing.T) {
	cfg, err := Load([]string{"-pinch-threshold", "0.08", "-max-held-frames", "5"}, env(nil), io.Discard)
	require.NoError(t, err)

	stored := cfg.Settings()
	assert.Equal(t, "0.08", stored["pinch-threshold"])
	assert.NotContains(t, stored, "data-dir")

	fresh := Default()
	require.NoError(t, fresh.MergeSettings(stored))
	assert.Equal(t, 0.08, fresh.PinchThreshold)
	assert.Equal(t, 5, fresh.MaxHeldFrames)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative camera", func(c *Config) { c.CameraID = -1 }},
		{"zero width", func(c *Config) { c.FrameWidth = 0 }},
		{"zero surface", func(c *Config) { c.SurfaceHeight = 0 }},
		{"zero fps", func(c *Config) { c.ActiveFPS = 0 }},
		{"zero confidence", func(c *Config) { c.ConfidenceThreshold = 0 }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.01 }},
		{"zero pinch", func(c *Config) { c.PinchThreshold = 0 }},
		{"negative padding", func(c *Config) { c.Padding = -1 }},
		{"negative hold", func(c *Config) { c.MaxHeldFrames = -1 }},
		{"unknown ui", func(c *Config) { c.UI = "web" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_ThresholdUpperBoundIncluded(t *testing.T) {
	cfg := Default()
	cfg.ConfidenceThreshold = 1
	cfg.PinchThreshold = 1
	assert.NoError(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.PinchThreshold = 0.12
	cfg.CameraID = 2

	assert.Equal(t, 0.12, cfg.Gesture().PinchThreshold)
	assert.Equal(t, 2, cfg.Camera().DeviceID)
	assert.Equal(t, cfg.IdleFPS, cfg.Camera().FPS)
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("HANDDISTANCE_TEST_DOTENV=7\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("HANDDISTANCE_TEST_DOTENV") })

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "7", os.Getenv("HANDDISTANCE_TEST_DOTENV"))
	})
}
