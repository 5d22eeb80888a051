// Package repl provides the interactive console of snakeview replay.
//
// The console drives the playback clock while frames keep flowing to the
// relay sinks:
//
//   - repl.go: read loop and command dispatch
//   - completer.go: command names and unique-prefix resolution
//   - history.go: command history persistence
//
// Commands mirror the visualiser controls: play/pause, the speed presets
// and the time slider (jump takes a fraction of the log).
package repl
