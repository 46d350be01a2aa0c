// Package sink provides frame sinks for capture.Session.
//
// Every sink is an io.Writer registered with Session.AddSink. Writes arrive
// from the acquisition goroutine in registration order; a sink registered
// with control frames sees a capture.ControlFrameSize timestamp write before
// every payload write.
//
//   - File: raw frames to disk, the layout described by an ENVI header
//   - Queue: ordered in-memory FIFO for a consumer goroutine
//   - Preview: latest frame only, for live display
//   - MQTT: msgpack frame envelopes published to a broker
//   - Async: decouples a slow sink from the acquisition loop
//
// A sink that returns an error ends the recording, so sinks that may stall
// or fail transiently should be wrapped in Async.
package sink
