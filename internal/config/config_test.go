package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thermal-capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "cam://0", cfg.Camera.Path)
	assert.Equal(t, 5*time.Second, cfg.Capture.StopTimeout)
	assert.Equal(t, time.Second, cfg.Capture.CloseTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Capture.ErrorPollInterval)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
camera:
  path: cam://1
  calibration: /cal/pack.xca
  software_correction: true
  properties:
    - name: IntegrationTime
      value: "100"
  sim:
    width: 640
    height: 1
    frame_type: 16bpp-gray
    frame_interval: 5ms
capture:
  duration: 2s
  frame_timeout: 250ms
output:
  dir: /data
  name: scan-01
mqtt:
  enabled: true
  broker: localhost:1883
  topic: thermal/cam1
  qos: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cam://1", cfg.Camera.Path)
	assert.True(t, cfg.Camera.SoftwareCorrection)
	assert.Equal(t, []Property{{Name: "IntegrationTime", Value: "100"}}, cfg.Camera.Properties)
	assert.Equal(t, uint32(640), cfg.Camera.Sim.Width)
	assert.Equal(t, 5*time.Millisecond, cfg.Camera.Sim.FrameInterval)
	assert.Equal(t, 2*time.Second, cfg.Capture.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.FrameTimeout)
	assert.Equal(t, 5*time.Second, cfg.Capture.StopTimeout, "unset keys keep defaults")
	assert.Equal(t, "scan-01", cfg.Output.Name)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 64, cfg.MQTT.QueueFrames)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("THERMAL_CAPTURE_CAPTURE_DURATION", "750ms")
	t.Setenv("THERMAL_CAPTURE_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Capture.Duration)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing file", "", "failed to read config file"},
		{"zero geometry", "camera:\n  sim:\n    width: 0\n", "geometry"},
		{"frame type", "camera:\n  sim:\n    frame_type: 12bpp\n", "frame_type"},
		{"poll interval", "capture:\n  error_poll_interval: 1s\n", "error_poll_interval"},
		{"mqtt broker", "mqtt:\n  enabled: true\n", "mqtt.broker"},
		{"output name", "output:\n  name: a/b\n", "output.name"},
		{"correction", "camera:\n  software_correction: true\n", "software_correction"},
		{"log level", "logging:\n  level: loud\n", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "thermal-capture.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file is kept")
	require.NoError(t, WriteDefault(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "capture")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}
