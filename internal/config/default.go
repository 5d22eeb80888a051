package config

import "time"

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultReplaySpeed = 1.0
	DefaultReplayTick  = 20 * time.Millisecond

	DefaultLivePath      = "display2Dconnection.datm"
	DefaultPollInterval  = 20 * time.Millisecond
	DefaultSpinTimeout   = 100 * time.Millisecond
	DefaultMissThreshold = 100

	DefaultMQTTTopic     = "snakeview/frame"
	DefaultMQTTClientID  = "snakeview"
	DefaultWebSocketPath = "/ws"

	DefaultMetricsPath = "/metrics"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Replay: ReplaySection{
			Speed: DefaultReplaySpeed,
			Tick:  DefaultReplayTick,
		},
		Live: LiveSection{
			Path:          DefaultLivePath,
			PollInterval:  DefaultPollInterval,
			SpinTimeout:   DefaultSpinTimeout,
			MissThreshold: DefaultMissThreshold,
			Create:        true,
		},
		Relay: RelaySection{
			MQTT: MQTTConfig{
				Topic:    DefaultMQTTTopic,
				ClientID: DefaultMQTTClientID,
			},
			WebSocket: WebSocketConfig{
				Path: DefaultWebSocketPath,
			},
		},
		Metrics: MetricsSection{
			Path: DefaultMetricsPath,
		},
	}
}
