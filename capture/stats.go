package capture

import "time"

// Stats is a point-in-time view of a session.
type Stats struct {
	SessionID string
	// RunID identifies the current or most recent recording.
	RunID     string
	Open      bool
	Recording bool
	// Frames, Bytes and FrameTimeouts count the current or most recent run.
	Frames        uint64
	Bytes         uint64
	FrameTimeouts uint64
	Sinks         int
	// Elapsed is the wall time since StartRecording while recording.
	Elapsed time.Duration
	// FPS is Frames over Elapsed while recording, zero otherwise.
	FPS float64
	// PendingError reports a loop failure not yet returned to the controller.
	PendingError bool
}

// Stats returns current statistics. Safe to call from any goroutine.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		SessionID:    s.id,
		Open:         s.opened && !s.closed,
		Sinks:        len(s.sinks),
		PendingError: s.errs.Pending(),
	}
	r := s.run
	if r == nil {
		return st
	}

	st.RunID = r.id
	st.Recording = !r.stopped && r.alive()
	st.Frames = r.frames.Load()
	st.Bytes = r.bytes.Load()
	st.FrameTimeouts = r.timeouts.Load()
	if st.Recording {
		st.Elapsed = time.Since(r.startedAt)
		if secs := st.Elapsed.Seconds(); secs > 0 {
			st.FPS = float64(st.Frames) / secs
		}
	}
	return st
}
