// Package capture drives continuous frame acquisition from a thermal or
// line-scan camera.
//
// A Session owns one camera handle. While recording, a single background
// goroutine polls the camera without blocking, timestamps each frame and
// writes it to every registered sink in order. Failures inside that goroutine
// are never lost: they are held in a single-slot mailbox and returned by the
// next WaitRecording, StopRecording or Close.
//
// # Quick Start
//
//	cam, _ := sim.New(sim.Config{Width: 320, Height: 256})
//
//	s, err := capture.NewSession(cam, capture.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	var raw bytes.Buffer
//	s.AddSink(&raw, true) // 4-byte timestamp before every frame
//
//	if err := s.Open(""); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.StartRecording(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.WaitRecording(ctx, 5*time.Second); err != nil {
//	    log.Fatal(err)
//	}
//	meta, err := s.StopRecording()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	envi.WriteFile("run.hdr", meta.Fields)
//
// # Lifecycle
//
//	Closed ──Open──▶ Opened ──StartRecording──▶ Recording
//	                   ▲                            │
//	                   └───────StopRecording────────┘
//	Opened / Recording ──Close──▶ Closed
//
// Sinks can only be added or cleared while no acquisition loop is alive
// (ErrSessionBusy otherwise). StopRecording and Close join the loop with a
// bounded timeout; a loop that does not exit is reported as ErrThreadShutdown
// and the handle is still released by Close.
//
// # Control Frames
//
// A sink registered with control frames receives ControlFrameSize bytes
// before each payload: the elapsed time since the loop started, as
// unsigned 32-bit little-endian milliseconds. See EncodeControlFrame.
//
// # Frame Buffers
//
// Every delivered frame is a freshly allocated slice. Sinks may keep it
// without copying but must not modify it.
//
// # Metrics
//
// Counters capture.frames, capture.bytes, capture.loop.failures and
// capture.frame.timeouts are recorded on Options.MeterProvider, or the
// global OpenTelemetry provider when unset.
package capture
