// Package config loads the thermal-capture configuration file.
package config

import (
	"time"

	"github.com/e7canasta/orion-thermal-capture/device"
)

// Config is the complete thermal-capture configuration.
type Config struct {
	Camera  CameraConfig  `mapstructure:"camera" yaml:"camera"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	MQTT    MQTTConfig    `mapstructure:"mqtt" yaml:"mqtt"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CameraConfig selects and prepares the camera.
type CameraConfig struct {
	Path               string            `mapstructure:"path" yaml:"path"`
	Calibration        string            `mapstructure:"calibration" yaml:"calibration"`
	SoftwareCorrection bool              `mapstructure:"software_correction" yaml:"software_correction"`
	Properties         []Property        `mapstructure:"properties" yaml:"properties,omitempty"`
	Sim                SimConfig         `mapstructure:"sim" yaml:"sim"`
}

// Property is a camera property applied after open. A list keeps the
// case of property names, which viper folds for map keys.
type Property struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// SimConfig describes the simulated camera used when no driver is linked.
type SimConfig struct {
	Width         uint32        `mapstructure:"width" yaml:"width"`
	Height        uint32        `mapstructure:"height" yaml:"height"`
	FrameType     string        `mapstructure:"frame_type" yaml:"frame_type"`
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	Replay        string        `mapstructure:"replay" yaml:"replay,omitempty"`
}

// CaptureConfig tunes the capture session.
type CaptureConfig struct {
	Duration          time.Duration `mapstructure:"duration" yaml:"duration"`
	StopTimeout       time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	CloseTimeout      time.Duration `mapstructure:"close_timeout" yaml:"close_timeout"`
	CaptureRetries    int           `mapstructure:"capture_retries" yaml:"capture_retries"`
	CaptureRetryDelay time.Duration `mapstructure:"capture_retry_delay" yaml:"capture_retry_delay"`
	ErrorPollInterval time.Duration `mapstructure:"error_poll_interval" yaml:"error_poll_interval"`
	FrameTimeout      time.Duration `mapstructure:"frame_timeout" yaml:"frame_timeout"`
	StatsInterval     time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
}

// OutputConfig controls the files written by a recording.
type OutputConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	Name string `mapstructure:"name" yaml:"name"`
	// ControlFrames interleaves timestamps in the .bin file. ENVI readers
	// expect plain frames, so this is off by default.
	ControlFrames bool `mapstructure:"control_frames" yaml:"control_frames"`
	Manifest      bool `mapstructure:"manifest" yaml:"manifest"`
}

// MQTTConfig enables frame publishing.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker      string `mapstructure:"broker" yaml:"broker"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	Topic       string `mapstructure:"topic" yaml:"topic"`
	QoS         byte   `mapstructure:"qos" yaml:"qos"`
	QueueFrames int    `mapstructure:"queue_frames" yaml:"queue_frames"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Path: device.DefaultPath,
			Sim: SimConfig{
				Width:         320,
				Height:        256,
				FrameType:     device.FrameType16Gray.String(),
				FrameInterval: 20 * time.Millisecond,
			},
		},
		Capture: CaptureConfig{
			Duration:          5 * time.Second,
			StopTimeout:       5 * time.Second,
			CloseTimeout:      time.Second,
			CaptureRetries:    5,
			CaptureRetryDelay: 100 * time.Millisecond,
			ErrorPollInterval: 50 * time.Millisecond,
			StatsInterval:     time.Second,
		},
		Output: OutputConfig{
			Dir:      ".",
			Name:     "recording",
			Manifest: true,
		},
		MQTT: MQTTConfig{
			Topic:       "thermal/frames",
			QueueFrames: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
