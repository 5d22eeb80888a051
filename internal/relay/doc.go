// Package relay forwards frame events to external visualisers.
//
// Two sinks are provided:
//
//   - MQTTSink publishes each event as JSON to a broker topic
//   - WebSocketHub broadcasts each event as JSON to connected browsers
//
// Both wrap events in an Envelope carrying the stream ID of the run and a
// per-sink sequence number, and both may cap their frame rate. Reset events
// are never rate limited, so consumers always learn about a new section
// count.
package relay
