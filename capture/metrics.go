package capture

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/e7canasta/orion-thermal-capture/capture"

type instruments struct {
	frames        metric.Int64Counter
	bytes         metric.Int64Counter
	loopFailures  metric.Int64Counter
	frameTimeouts metric.Int64Counter
	attrs         metric.MeasurementOption
}

func newInstruments(mp metric.MeterProvider, sessionID string) (*instruments, error) {
	meter := mp.Meter(meterName)

	frames, err := meter.Int64Counter("capture.frames",
		metric.WithDescription("Frames delivered to sinks"),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, fmt.Errorf("capture: frames counter: %w", err)
	}
	bytes, err := meter.Int64Counter("capture.bytes",
		metric.WithDescription("Payload bytes delivered to sinks"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("capture: bytes counter: %w", err)
	}
	failures, err := meter.Int64Counter("capture.loop.failures",
		metric.WithDescription("Acquisition loops that ended with an error"))
	if err != nil {
		return nil, fmt.Errorf("capture: failures counter: %w", err)
	}
	timeouts, err := meter.Int64Counter("capture.frame.timeouts",
		metric.WithDescription("Frame polls that exceeded the frame timeout"))
	if err != nil {
		return nil, fmt.Errorf("capture: timeouts counter: %w", err)
	}

	return &instruments{
		frames:        frames,
		bytes:         bytes,
		loopFailures:  failures,
		frameTimeouts: timeouts,
		attrs:         metric.WithAttributes(attribute.String("session", sessionID)),
	}, nil
}

func (m *instruments) frame(size int) {
	ctx := context.Background()
	m.frames.Add(ctx, 1, m.attrs)
	m.bytes.Add(ctx, int64(size), m.attrs)
}

func (m *instruments) failure() {
	m.loopFailures.Add(context.Background(), 1, m.attrs)
}

func (m *instruments) timeout() {
	m.frameTimeouts.Add(context.Background(), 1, m.attrs)
}
