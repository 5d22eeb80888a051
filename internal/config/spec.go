package config

import "time"

// Config is the root configuration.
type Config struct {
	Log     LogSection     `koanf:"log"`
	Replay  ReplaySection  `koanf:"replay"`
	Live    LiveSection    `koanf:"live"`
	Record  RecordSection  `koanf:"record"`
	Relay   RelaySection   `koanf:"relay"`
	Metrics MetricsSection `koanf:"metrics"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ReplaySection configures playback of a recorded log.
type ReplaySection struct {
	// File is the log to replay when none is given on the command line.
	File string `koanf:"file"`

	// Speed is the playback time scale; 1 is real time.
	Speed float64 `koanf:"speed"`

	// Tick is the wall-clock interval between frames.
	Tick time.Duration `koanf:"tick"`

	// Loop restarts playback from the first sample at the end.
	Loop bool `koanf:"loop"`
}

// LiveSection configures the shared-memory reader.
type LiveSection struct {
	// Path is the shared file the simulation maps.
	Path string `koanf:"path"`

	// PollInterval is the cadence of ReadData calls.
	PollInterval time.Duration `koanf:"poll_interval"`

	// SpinTimeout bounds one wait for the turn token.
	SpinTimeout time.Duration `koanf:"spin_timeout"`

	// MissThreshold is the number of polls without a writer heartbeat
	// after which the connection is reported lost.
	MissThreshold int `koanf:"miss_threshold"`

	// Create creates and sizes the shared file when it is missing.
	Create bool `koanf:"create"`
}

// RecordSection configures recording of live frames.
type RecordSection struct {
	// Dir receives one log file per listen run. Empty disables recording.
	Dir string `koanf:"dir"`
}

// RelaySection configures frame fan-out to external visualisers.
type RelaySection struct {
	MQTT      MQTTConfig      `koanf:"mqtt"`
	WebSocket WebSocketConfig `koanf:"websocket"`

	// MaxRate caps relayed frames per second. Zero means unlimited.
	MaxRate float64 `koanf:"max_rate"`
}

// MQTTConfig configures the MQTT sink. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `koanf:"broker"`
	Topic    string `koanf:"topic"`
	ClientID string `koanf:"client_id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	QoS      int    `koanf:"qos"`
	Retained bool   `koanf:"retained"`

	TLS TLSConfig `koanf:"tls"`
}

// TLSConfig configures TLS for ssl:// and tls:// brokers.
type TLSConfig struct {
	CAFile             string `koanf:"ca_file"`
	CertFile           string `koanf:"cert_file"`
	KeyFile            string `koanf:"key_file"`
	ServerName         string `koanf:"server_name"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify"`
}

// WebSocketConfig configures the WebSocket hub. An empty Addr disables it.
type WebSocketConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// MetricsSection configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsSection struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}
