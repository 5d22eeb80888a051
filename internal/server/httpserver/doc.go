// Package httpserver serves the HTTP side of snakeview: the Prometheus
// endpoint, the WebSocket frame relay and a JSON status page.
//
// Routes:
//
//   - GET /health: liveness probe
//   - GET /status: JSON snapshot of the running replay or listener
//   - GET <metrics path>: Prometheus exposition
//   - GET <websocket path>: frame relay upgrade endpoint
//
// Every route runs behind RequestID and Recover. The status and WebSocket
// routes also go through AccessLog, which reports a viewer when it
// disconnects.
package httpserver
