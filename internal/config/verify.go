package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if err := verifyReplay(&cfg.Replay); err != nil {
		return err
	}
	if err := verifyLive(&cfg.Live); err != nil {
		return err
	}
	if err := verifyRelay(&cfg.Relay); err != nil {
		return err
	}
	return verifyMetrics(&cfg.Metrics)
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if !logger.ValidFormat(cfg.Format) {
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func verifyReplay(cfg *ReplaySection) error {
	if cfg.Speed <= 0 {
		return fmt.Errorf("replay.speed must be positive, got %g", cfg.Speed)
	}
	if cfg.Tick <= 0 {
		return errors.New("replay.tick must be positive")
	}
	return nil
}

func verifyLive(cfg *LiveSection) error {
	if cfg.Path == "" {
		return errors.New("live.path is required")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("live.poll_interval must be positive")
	}
	if cfg.SpinTimeout <= 0 {
		return errors.New("live.spin_timeout must be positive")
	}
	if cfg.MissThreshold < 1 {
		return errors.New("live.miss_threshold must be at least 1")
	}
	return nil
}

func verifyRelay(cfg *RelaySection) error {
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("relay.mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		return errors.New("relay.mqtt.topic is required when a broker is set")
	}
	if (cfg.MQTT.TLS.CertFile == "") != (cfg.MQTT.TLS.KeyFile == "") {
		return errors.New("relay.mqtt.tls.cert_file and relay.mqtt.tls.key_file must be set together")
	}
	if cfg.WebSocket.Addr != "" && !strings.HasPrefix(cfg.WebSocket.Path, "/") {
		return fmt.Errorf("relay.websocket.path %q must start with /", cfg.WebSocket.Path)
	}
	if cfg.MaxRate < 0 {
		return errors.New("relay.max_rate must not be negative")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr != "" && !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Path)
	}
	return nil
}
