package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// Default MQTT timeouts.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultPublishTimeout = 2 * time.Second
)

// disconnectQuiesce is the time in milliseconds given to in-flight
// messages on Close.
const disconnectQuiesce = 250

// MQTTOptions configures an MQTTSink.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retained bool

	// TLS is used for ssl://, tls:// and wss:// brokers. May be nil.
	TLS *tls.Config

	// Stream identifies this run in every envelope.
	Stream string

	// MaxRate caps update frames per second. Zero means unlimited.
	MaxRate float64

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// Logger defaults to logger.Default().
	Logger logger.Logger
}

func (o *MQTTOptions) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
}

// mqttClient is the part of mqtt.Client the sink uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes frame events to an MQTT topic.
type MQTTSink struct {
	client mqttClient
	opts   MQTTOptions
	enc    *encoder
	gate   gate
	logger logger.Logger
}

var _ service.Sink = (*MQTTSink)(nil)

// NewMQTTSink connects to the broker.
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	if opts.Broker == "" || opts.Topic == "" {
		return nil, errors.New("relay: mqtt broker and topic are required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("relay: invalid mqtt qos %d", opts.QoS)
	}
	opts.applyDefaults()
	log := opts.Logger.With("component", "mqtt", "broker", opts.Broker, "topic", opts.Topic)

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.Info("connected to mqtt broker")
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		co.SetTLSConfig(opts.TLS)
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("relay: connect to %s: timed out after %s", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("relay: connect to %s: %w", opts.Broker, err)
	}

	return newMQTTSink(client, opts), nil
}

func newMQTTSink(client mqttClient, opts MQTTOptions) *MQTTSink {
	opts.applyDefaults()
	return &MQTTSink{
		client: client,
		opts:   opts,
		enc:    newEncoder(opts.Stream),
		gate:   newGate(opts.MaxRate),
		logger: opts.Logger.With("component", "mqtt", "topic", opts.Topic),
	}
}

// Name implements service.Sink.
func (s *MQTTSink) Name() string {
	return "mqtt"
}

// Send publishes ev and waits for the broker acknowledgement required by
// the QoS, bounded by PublishTimeout and ctx.
func (s *MQTTSink) Send(ctx context.Context, ev service.FrameEvent) error {
	if !s.gate.allow(ev) {
		return service.ErrFrameSkipped
	}
	payload, err := s.enc.encode(ev)
	if err != nil {
		return err
	}

	token := s.client.Publish(s.opts.Topic, s.opts.QoS, s.opts.Retained, payload)

	timer := time.NewTimer(s.opts.PublishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("relay: publish to %s: %w", s.opts.Topic, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("relay: publish to %s: timed out after %s", s.opts.Topic, s.opts.PublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(disconnectQuiesce)
	s.logger.Debug("disconnected from mqtt broker")
	return nil
}
