package capture

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultStopTimeout bounds the loop join in StopRecording.
	DefaultStopTimeout = 5 * time.Second
	// DefaultCloseTimeout bounds the loop join in Close.
	DefaultCloseTimeout = 1 * time.Second
	// DefaultCaptureRetries is how often the loop re-checks IsCapturing.
	DefaultCaptureRetries = 5
	// DefaultCaptureRetryDelay is the pause between IsCapturing checks.
	DefaultCaptureRetryDelay = 100 * time.Millisecond
	// DefaultErrorPollInterval is how often WaitRecording checks for a
	// captured loop error.
	DefaultErrorPollInterval = 50 * time.Millisecond

	maxErrorPollInterval = 100 * time.Millisecond
)

// Options configures a Session. Zero values select the defaults above.
type Options struct {
	// Calibration is the path of a calibration pack loaded at Open. Empty
	// skips calibration.
	Calibration string
	// SoftwareCorrection starts the driver's software correction filter
	// after the calibration pack is loaded.
	SoftwareCorrection bool

	StopTimeout       time.Duration
	CloseTimeout      time.Duration
	CaptureRetries    int
	CaptureRetryDelay time.Duration
	ErrorPollInterval time.Duration

	// FrameTimeout bounds how long the loop spins on NoFrame before logging
	// a recoverable ErrFrameReadTimeout and re-checking the enable flag.
	// Zero spins until a frame arrives or recording is disabled.
	FrameTimeout time.Duration

	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
}

func (o Options) withDefaults() (Options, error) {
	if o.StopTimeout < 0 || o.CloseTimeout < 0 || o.CaptureRetryDelay < 0 ||
		o.ErrorPollInterval < 0 || o.FrameTimeout < 0 || o.CaptureRetries < 0 {
		return o, fmt.Errorf("capture: negative option value")
	}
	if o.ErrorPollInterval > maxErrorPollInterval {
		return o, fmt.Errorf("capture: error poll interval %s exceeds %s", o.ErrorPollInterval, maxErrorPollInterval)
	}

	if o.StopTimeout == 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.CloseTimeout == 0 {
		o.CloseTimeout = DefaultCloseTimeout
	}
	if o.CaptureRetries == 0 {
		o.CaptureRetries = DefaultCaptureRetries
	}
	if o.CaptureRetryDelay == 0 {
		o.CaptureRetryDelay = DefaultCaptureRetryDelay
	}
	if o.ErrorPollInterval == 0 {
		o.ErrorPollInterval = DefaultErrorPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	return o, nil
}
