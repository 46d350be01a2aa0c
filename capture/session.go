package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-thermal-capture/device"
	"github.com/e7canasta/orion-thermal-capture/internal/mailbox"
)

// Sink receives frames from the acquisition loop. Write is called from the
// loop goroutine and must not retain p past the call unless it treats it as
// read-only: every frame arrives in a freshly allocated buffer.
type Sink = io.Writer

type registration struct {
	w       Sink
	control bool
}

// Geometry is the frame layout reported by the camera.
type Geometry struct {
	Size      uint32
	Height    uint32
	Width     uint32
	Type      device.FrameType
	PixelSize int
}

// Session owns one camera handle and at most one acquisition loop.
//
// Lifecycle: NewSession → AddSink... → Open → StartRecording → WaitRecording
// → StopRecording → Close. A Session is driven by a single controller
// goroutine; Stats and the accessors are safe to call from anywhere.
type Session struct {
	id      string
	dev     device.Adapter
	opts    Options
	log     *slog.Logger
	metrics *instruments

	mu       sync.Mutex
	handle   device.Handle
	path     string
	opened   bool
	closed   bool
	sinks    []registration
	run      *run
	duration time.Duration

	enabled atomic.Bool
	errs    *mailbox.Slot[error]
}

// run is the state of one StartRecording..StopRecording cycle. The loop owns
// geom and timestamps until done is closed.
type run struct {
	id        string
	handle    device.Handle
	sinks     []registration
	done      chan struct{}
	startedAt time.Time
	stopped   bool

	frames   atomic.Uint64
	bytes    atomic.Uint64
	timeouts atomic.Uint64

	geom       Geometry
	geomSet    bool
	timestamps []time.Duration
}

func (r *run) alive() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *run) wait(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// NewSession creates a closed session on dev.
func NewSession(dev device.Adapter, opts Options) (*Session, error) {
	if dev == nil {
		return nil, fmt.Errorf("capture: device adapter is required")
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m, err := newInstruments(opts.MeterProvider, id)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:      id,
		dev:     dev,
		opts:    opts,
		log:     opts.Logger.With("session", id),
		metrics: m,
		errs:    mailbox.New[error](),
	}, nil
}

// ID returns the session identifier used in logs and metrics.
func (s *Session) ID() string {
	return s.id
}

// Open connects to the camera at path (device.DefaultPath when empty), checks
// initialisation and loads the calibration pack if one is configured. A
// failed Open releases any handle it acquired and may be retried; a Session
// opens at most once.
func (s *Session) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return ErrAlreadyOpened
	}
	if path == "" {
		path = device.DefaultPath
	}

	h := s.dev.Open(path)
	if !h.Valid() {
		return fmt.Errorf("%w: %s", ErrDeviceOpen, path)
	}
	if !s.dev.IsInitialized(h) {
		s.dev.Close(h)
		return fmt.Errorf("%w: %w", ErrDeviceOpen, ErrInitialization)
	}

	if s.opts.Calibration != "" {
		flags := device.CalibrationNone
		if s.opts.SoftwareCorrection {
			flags = device.CalibrationStartSoftwareCorrection
		}
		if code := s.dev.LoadCalibration(h, s.opts.Calibration, flags); !code.OK() {
			s.dev.Close(h)
			return s.deviceError(ErrCalibration, "LoadCalibration", code)
		}
		s.log.Info("capture: calibration loaded",
			"path", s.opts.Calibration,
			"software_correction", s.opts.SoftwareCorrection)
	}

	s.handle = h
	s.path = path
	s.opened = true
	s.log.Info("capture: camera opened", "path", path, "handle", int32(h))
	return nil
}

// Close stops hardware capture if active and releases the handle. A loop that
// does not exit within Options.CloseTimeout is reported as ErrThreadShutdown
// but does not delay the release. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.opened || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	h := s.handle
	r := s.run
	if r != nil && r.stopped {
		r = nil
	}
	s.mu.Unlock()

	var errs []error
	defer func() {
		s.dev.Close(h)
		s.log.Info("capture: camera closed", "path", s.path)
	}()

	if r != nil {
		s.enabled.Store(false)
		if !r.wait(s.opts.CloseTimeout) {
			s.log.Warn("capture: acquisition loop still running at close",
				"run_id", r.id,
				"timeout", s.opts.CloseTimeout)
			errs = append(errs, fmt.Errorf("%w within %s", ErrThreadShutdown, s.opts.CloseTimeout))
		}
		s.mu.Lock()
		r.stopped = true
		s.mu.Unlock()
	}

	if s.dev.IsCapturing(h) {
		if code := s.dev.StopCapture(h); !code.OK() {
			errs = append(errs, s.deviceError(ErrStopCapture, "StopCapture", code))
		}
	}
	if err, ok := s.errs.TryTake(); ok {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AddSink registers w. With controlFrames set, every frame is preceded by a
// ControlFrameSize timestamp record. Sinks receive frames in registration
// order and cannot be changed while the loop runs.
func (s *Session) AddSink(w Sink, controlFrames bool) error {
	if w == nil {
		return fmt.Errorf("capture: nil sink")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopAliveLocked() {
		return ErrSessionBusy
	}
	s.sinks = append(s.sinks, registration{w: w, control: controlFrames})
	return nil
}

// ClearSinks removes every registered sink.
func (s *Session) ClearSinks() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopAliveLocked() {
		return ErrSessionBusy
	}
	s.sinks = nil
	return nil
}

// StartRecording enables acquisition and spawns the loop. It returns at once;
// failures inside the loop surface from WaitRecording or StopRecording.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return ErrNotOpen
	}
	if s.loopAliveLocked() {
		return ErrAlreadyRecording
	}
	if s.run != nil && !s.run.stopped {
		if err, ok := s.errs.TryTake(); ok {
			return fmt.Errorf("capture: previous run failed: %w", err)
		}
	}

	r := &run{
		id:        uuid.NewString(),
		handle:    s.handle,
		sinks:     append([]registration(nil), s.sinks...),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	s.run = r
	s.duration = 0
	s.enabled.Store(true)

	s.log.Info("capture: recording started",
		"run_id", r.id,
		"sinks", len(r.sinks))

	go s.acquire(r)
	return nil
}

// WaitRecording blocks for about d while the loop runs, checking for a loop
// failure every Options.ErrorPollInterval. A failure is returned as soon as
// it is seen. The waited time is added to the run duration.
//
// If ctx is cancelled the session is closed, as Close would, and the context
// error is returned joined with any cleanup error.
func (s *Session) WaitRecording(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	r := s.run
	recording := r != nil && !r.stopped
	s.mu.Unlock()
	if !recording {
		return ErrNotRecording
	}

	start := time.Now()
	defer func() {
		waited := time.Since(start)
		s.mu.Lock()
		s.duration += waited
		s.mu.Unlock()
	}()

	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.ErrorPollInterval)
	defer ticker.Stop()

	for {
		if err, ok := s.errs.TryTake(); ok {
			return err
		}
		select {
		case <-ctx.Done():
			s.log.Warn("capture: wait interrupted, closing session", "run_id", r.id, "error", ctx.Err())
			return errors.Join(ctx.Err(), s.Close())
		case <-deadline.C:
			if err, ok := s.errs.TryTake(); ok {
				return err
			}
			return nil
		case <-ticker.C:
		}
	}
}

// StopRecording disables acquisition, joins the loop within
// Options.StopTimeout, stops hardware capture and returns the run metadata.
// A loop failure not yet returned by WaitRecording is returned here instead
// of metadata. Without a running recording it returns ErrNotRecording.
func (s *Session) StopRecording() (*RunMetadata, error) {
	s.mu.Lock()
	r := s.run
	recording := r != nil && !r.stopped
	s.mu.Unlock()
	if !recording {
		return nil, ErrNotRecording
	}

	s.enabled.Store(false)
	if !r.wait(s.opts.StopTimeout) {
		s.log.Warn("capture: acquisition loop did not stop",
			"run_id", r.id,
			"timeout", s.opts.StopTimeout)
		return nil, fmt.Errorf("%w within %s", ErrThreadShutdown, s.opts.StopTimeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.stopped {
		return nil, ErrNotRecording
	}
	r.stopped = true

	var errs []error
	if err, ok := s.errs.TryTake(); ok {
		errs = append(errs, err)
	}
	if s.dev.IsCapturing(r.handle) {
		if code := s.dev.StopCapture(r.handle); !code.OK() {
			errs = append(errs, s.deviceError(ErrStopCapture, "StopCapture", code))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	geom := r.geom
	if !r.geomSet {
		g, err := s.readGeometry(r.handle)
		if err != nil {
			return nil, err
		}
		geom = g
	}

	meta, err := BuildRunMetadata(RunState{
		Height:     geom.Height,
		Width:      geom.Width,
		Frames:     r.frames.Load(),
		FrameType:  geom.Type,
		Duration:   s.duration,
		Timestamps: r.timestamps,
	})
	if err != nil {
		return nil, err
	}
	meta.RunID = r.id

	s.log.Info("capture: recording stopped",
		"run_id", r.id,
		"frames", r.frames.Load(),
		"bytes", r.bytes.Load(),
		"duration", s.duration,
		"fps", meta.Cadence.RateMean)
	return meta, nil
}

// Snapshot captures a single frame outside a recording. Hardware capture is
// started for the call if needed and stopped again afterwards.
func (s *Session) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return nil, ErrNotOpen
	}
	if s.loopAliveLocked() {
		return nil, ErrSessionBusy
	}

	h := s.handle
	if !s.dev.IsCapturing(h) {
		if code := s.dev.StartCapture(h); !code.OK() {
			return nil, s.deviceError(ErrStartCapture, "StartCapture", code)
		}
		defer func() {
			if code := s.dev.StopCapture(h); !code.OK() {
				s.log.Warn("capture: stop after snapshot failed", "code", code.String())
			}
		}()
		if err := s.awaitCapturing(h); err != nil {
			return nil, err
		}
	}

	geom, err := s.readGeometry(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, geom.Size)
	for {
		code := s.dev.GetFrame(h, buf, geom.Type, device.GetFrameNonBlocking)
		switch {
		case code.OK():
			return buf, nil
		case code != device.NoFrame:
			return nil, s.deviceError(ErrFrameRead, "GetFrame", code)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFrameReadTimeout, err)
		}
		time.Sleep(time.Millisecond)
	}
}

// SetProperty writes a camera property.
func (s *Session) SetProperty(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return ErrNotOpen
	}
	if code := s.dev.SetProperty(s.handle, name, value); !code.OK() {
		return s.deviceError(ErrProperty, "SetProperty("+name+")", code)
	}
	s.log.Debug("capture: property set", "name", name, "value", value)
	return nil
}

// Property reads a camera property.
func (s *Session) Property(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return "", ErrNotOpen
	}
	v, code := s.dev.GetProperty(s.handle, name)
	if !code.OK() {
		return "", s.deviceError(ErrProperty, "GetProperty("+name+")", code)
	}
	return v, nil
}

// Geometry returns the current frame layout of the open camera.
func (s *Session) Geometry() (Geometry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || s.closed {
		return Geometry{}, ErrNotOpen
	}
	return s.readGeometry(s.handle)
}

func (s *Session) loopAliveLocked() bool {
	return s.run != nil && s.run.alive()
}
