// Package command defines the snakeview CLI with urfave/cli/v2.
//
//   - root.go: application, global flags, configuration and logger setup
//   - inspect.go: inspect and sample, offline queries on a recorded log
//   - replay.go: replay, the playback clock driving the relay sinks
//   - listen.go: listen, the shared-memory poller driving the relay sinks
//   - simulate.go: simulate, a synthetic writer for the shared region
//   - pipeline.go: sink fan-out and HTTP endpoints shared by replay and listen
//   - config.go, version.go: configuration and build information
//
// Long-running commands stop on SIGINT or SIGTERM through the shutdown
// handler and reload the log level when the configuration file changes.
package command
