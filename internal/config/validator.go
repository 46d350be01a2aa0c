package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/e7canasta/orion-thermal-capture/device"
)

const maxErrorPollInterval = 100 * time.Millisecond

// Validate checks cfg and fills derived defaults.
func Validate(cfg *Config) error {
	if cfg.Camera.Path == "" {
		cfg.Camera.Path = device.DefaultPath
	}
	if cfg.Camera.SoftwareCorrection && cfg.Camera.Calibration == "" {
		return fmt.Errorf("camera.software_correction requires camera.calibration")
	}

	for i, p := range cfg.Camera.Properties {
		if p.Name == "" {
			return fmt.Errorf("camera.properties[%d]: name is required", i)
		}
	}

	sim := cfg.Camera.Sim
	if sim.Width == 0 || sim.Height == 0 {
		return fmt.Errorf("camera.sim geometry must be non-zero, got %dx%d", sim.Width, sim.Height)
	}
	if _, err := device.ParseFrameType(sim.FrameType); err != nil {
		return fmt.Errorf("camera.sim.frame_type: %w", err)
	}
	if sim.FrameInterval < 0 {
		return fmt.Errorf("camera.sim.frame_interval must be >= 0")
	}

	c := cfg.Capture
	if c.Duration <= 0 {
		return fmt.Errorf("capture.duration must be > 0")
	}
	if c.StopTimeout < 0 || c.CloseTimeout < 0 || c.CaptureRetryDelay < 0 || c.FrameTimeout < 0 {
		return fmt.Errorf("capture timeouts must be >= 0")
	}
	if c.CaptureRetries < 0 {
		return fmt.Errorf("capture.capture_retries must be >= 0")
	}
	if c.ErrorPollInterval < 0 || c.ErrorPollInterval > maxErrorPollInterval {
		return fmt.Errorf("capture.error_poll_interval must be between 0 and %s", maxErrorPollInterval)
	}
	if c.StatsInterval <= 0 {
		cfg.Capture.StatsInterval = Default().Capture.StatsInterval
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
	if cfg.Output.Name == "" || strings.ContainsRune(cfg.Output.Name, '/') {
		return fmt.Errorf("output.name must be a plain file name, got %q", cfg.Output.Name)
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	if cfg.MQTT.QueueFrames <= 0 {
		cfg.MQTT.QueueFrames = 64
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	case "":
		cfg.Logging.Level = "info"
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch cfg.Logging.Format {
	case "text", "json":
	case "":
		cfg.Logging.Format = "text"
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}
