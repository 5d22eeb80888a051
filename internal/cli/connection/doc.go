// Package connection provides the HTTP client used by snakeview status to
// query a running replay or listen process.
//
// The client talks to the routes served next to the frame relay:
//
//   - /health: liveness probe
//   - /status: playback or shared-region state of the process
package connection
