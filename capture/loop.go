package capture

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/e7canasta/orion-thermal-capture/device"
)

// acquire is the body of the acquisition goroutine. It never returns an
// error: failures go to the session's error slot.
func (s *Session) acquire(r *run) {
	defer close(r.done)
	defer func() {
		s.log.Info("capture: acquisition loop closed",
			"run_id", r.id,
			"frames", r.frames.Load(),
			"frame_timeouts", r.timeouts.Load())
	}()
	defer func() {
		if p := recover(); p != nil {
			s.fail(r, fmt.Errorf("capture: acquisition loop panic: %v", p))
		}
	}()

	if err := s.runLoop(r); err != nil {
		s.fail(r, err)
	}
}

func (s *Session) fail(r *run, err error) {
	s.log.Error("capture: acquisition loop failed",
		"run_id", r.id,
		"frames", r.frames.Load(),
		"error", err)
	s.metrics.failure()
	s.errs.Put(err)
}

func (s *Session) runLoop(r *run) error {
	h := r.handle

	if code := s.dev.StartCapture(h); !code.OK() {
		return s.deviceError(ErrStartCapture, "StartCapture", code)
	}
	if err := s.awaitCapturing(h); err != nil {
		return err
	}

	geom, err := s.readGeometry(h)
	if err != nil {
		return err
	}
	r.geom = geom
	r.geomSet = true

	s.log.Info("capture: acquisition started",
		"run_id", r.id,
		"frame_size", geom.Size,
		"height", geom.Height,
		"width", geom.Width,
		"frame_type", geom.Type.String())

	start := time.Now()
	buf := make([]byte, geom.Size)
	for s.enabled.Load() {
		got, err := s.pollFrame(r, buf, geom.Type)
		if err != nil {
			return err
		}
		if !got {
			break
		}

		elapsed := time.Since(start)
		r.timestamps = append(r.timestamps, elapsed)
		ctrl := EncodeControlFrame(elapsed)

		err = s.dispatch(r, ctrl[:], buf)
		r.frames.Add(1)
		r.bytes.Add(uint64(len(buf)))
		s.metrics.frame(len(buf))
		if err != nil {
			return err
		}

		buf = make([]byte, geom.Size)
	}
	return nil
}

// awaitCapturing checks IsCapturing once, then up to CaptureRetries more
// times CaptureRetryDelay apart.
func (s *Session) awaitCapturing(h device.Handle) error {
	if s.dev.IsCapturing(h) {
		return nil
	}
	for i := 0; i < s.opts.CaptureRetries; i++ {
		time.Sleep(s.opts.CaptureRetryDelay)
		if s.dev.IsCapturing(h) {
			return nil
		}
	}
	return fmt.Errorf("%w after %d retries", ErrNotCapturing, s.opts.CaptureRetries)
}

func (s *Session) readGeometry(h device.Handle) (Geometry, error) {
	g := Geometry{
		Size: s.dev.FrameSize(h),
		Type: s.dev.FrameType(h),
	}
	g.Height, g.Width = s.dev.FrameDims(h)
	g.PixelSize = g.Type.PixelSize()

	if _, err := PixelDataType(g.PixelSize); err != nil {
		return g, fmt.Errorf("%w (frame type %s)", err, g.Type)
	}
	if want := uint64(g.Height) * uint64(g.Width) * uint64(g.PixelSize); want != uint64(g.Size) {
		s.log.Warn("capture: frame size does not match geometry",
			"frame_size", g.Size,
			"height", g.Height,
			"width", g.Width,
			"pixel_size", g.PixelSize)
	}
	return g, nil
}

// pollFrame spins on non-blocking GetFrame until a frame arrives. It reports
// false without error when recording is disabled while waiting.
func (s *Session) pollFrame(r *run, buf []byte, ft device.FrameType) (bool, error) {
	var deadline time.Time
	if s.opts.FrameTimeout > 0 {
		deadline = time.Now().Add(s.opts.FrameTimeout)
	}

	for s.enabled.Load() {
		code := s.dev.GetFrame(r.handle, buf, ft, device.GetFrameNonBlocking)
		switch {
		case code.OK():
			return true, nil
		case code != device.NoFrame:
			return false, s.deviceError(ErrFrameRead, "GetFrame", code)
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			r.timeouts.Add(1)
			s.metrics.timeout()
			s.log.Warn("capture: no frame within timeout",
				"run_id", r.id,
				"timeout", s.opts.FrameTimeout,
				"error", ErrFrameReadTimeout)
			deadline = time.Now().Add(s.opts.FrameTimeout)
		}
		runtime.Gosched()
	}
	return false, nil
}

// dispatch writes the frame to every sink in registration order. A failing
// sink does not keep the frame from the others.
func (s *Session) dispatch(r *run, ctrl, frame []byte) error {
	var errs []error
	for i, reg := range r.sinks {
		if reg.control {
			if err := writeFull(reg.w, ctrl); err != nil {
				errs = append(errs, fmt.Errorf("sink %d control frame: %w", i, err))
				continue
			}
		}
		if err := writeFull(reg.w, frame); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSinkWrite, errors.Join(errs...))
	}
	return nil
}

func writeFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
