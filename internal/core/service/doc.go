// Package service exposes recorded logs and the live shared region through
// one query surface and drives them over time.
//
// This package contains:
//
//   - FrameSource: section count, iteration, head pose, per-section data,
//     liveness, last timestamp and seeking, implemented by FileSource and
//     LiveSource
//   - Player: the playback clock over a FileSource (play/pause, time scale,
//     slider seeks, loop)
//   - Poller: the fixed-cadence loop around the shared-memory reader
//   - Sink, Fanout and Recorder: delivery of FrameEvents to relays and to
//     log files
//
// A FileSource serialises access to its interpolator, so a Player goroutine
// and query callers may share it. A LiveSource must be polled from a single
// goroutine; its getters are safe from any goroutine.
package service
