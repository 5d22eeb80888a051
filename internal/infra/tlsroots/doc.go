// Package tlsroots builds the client TLS configuration of the MQTT relay.
//
// Brokers behind ssl://, tls:// or mqtts:// URLs are dialled with the system
// roots, optionally extended by a private CA bundle. Brokers that require
// mutual TLS get a client certificate from relay.mqtt.tls.
package tlsroots
