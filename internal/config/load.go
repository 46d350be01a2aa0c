package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. THERMAL_CAPTURE_MQTT_BROKER.
const EnvPrefix = "THERMAL_CAPTURE"

// Load reads configuration from path over the defaults. An empty path loads
// defaults and environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("camera.path", cfg.Camera.Path)
	v.SetDefault("camera.calibration", cfg.Camera.Calibration)
	v.SetDefault("camera.software_correction", cfg.Camera.SoftwareCorrection)
	v.SetDefault("camera.sim.width", cfg.Camera.Sim.Width)
	v.SetDefault("camera.sim.height", cfg.Camera.Sim.Height)
	v.SetDefault("camera.sim.frame_type", cfg.Camera.Sim.FrameType)
	v.SetDefault("camera.sim.frame_interval", cfg.Camera.Sim.FrameInterval)
	v.SetDefault("camera.sim.replay", cfg.Camera.Sim.Replay)
	v.SetDefault("capture.duration", cfg.Capture.Duration)
	v.SetDefault("capture.stop_timeout", cfg.Capture.StopTimeout)
	v.SetDefault("capture.close_timeout", cfg.Capture.CloseTimeout)
	v.SetDefault("capture.capture_retries", cfg.Capture.CaptureRetries)
	v.SetDefault("capture.capture_retry_delay", cfg.Capture.CaptureRetryDelay)
	v.SetDefault("capture.error_poll_interval", cfg.Capture.ErrorPollInterval)
	v.SetDefault("capture.frame_timeout", cfg.Capture.FrameTimeout)
	v.SetDefault("capture.stats_interval", cfg.Capture.StatsInterval)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.name", cfg.Output.Name)
	v.SetDefault("output.control_frames", cfg.Output.ControlFrames)
	v.SetDefault("output.manifest", cfg.Output.Manifest)
	v.SetDefault("mqtt.enabled", cfg.MQTT.Enabled)
	v.SetDefault("mqtt.broker", cfg.MQTT.Broker)
	v.SetDefault("mqtt.client_id", cfg.MQTT.ClientID)
	v.SetDefault("mqtt.topic", cfg.MQTT.Topic)
	v.SetDefault("mqtt.qos", cfg.MQTT.QoS)
	v.SetDefault("mqtt.queue_frames", cfg.MQTT.QueueFrames)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg := Default()
	data, err := Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
