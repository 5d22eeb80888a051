package command

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Herman-H/Snake-Robot-Display/internal/config"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/tlsroots"
	"github.com/Herman-H/Snake-Robot-Display/internal/relay"
	"github.com/Herman-H/Snake-Robot-Display/internal/server/httpserver"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/metric"
)

// pipeline is the fan-out of frame events to the configured sinks plus
// the HTTP endpoints that expose them.
type pipeline struct {
	stream   string
	log      logger.Logger
	metrics  *metric.Registry
	fanout   *service.Fanout
	hub      *relay.WebSocketHub
	recorder *service.Recorder
}

// newPipeline builds the sinks enabled in cfg for frames from source.
// recordDir enables the recorder when not empty. Every entry logged by the
// pipeline carries the stream ID as run_id.
func newPipeline(cfg *config.Config, log logger.Logger, source, recordDir string) (*pipeline, error) {
	stream := domain.GenerateStreamID()
	ctx := logger.WithSource(logger.WithRunID(context.Background(), stream), source)
	p := &pipeline{
		stream:  stream,
		log:     log.WithContext(ctx),
		metrics: metric.NewRegistry(),
	}
	p.fanout = service.NewFanout(p.log, p.metrics)

	if cfg.Relay.MQTT.Broker != "" {
		sink, err := newMQTTSink(&cfg.Relay, stream, p.log)
		if err != nil {
			p.fanout.Close()
			return nil, err
		}
		p.fanout.Add(sink)
	}

	if cfg.Relay.WebSocket.Addr != "" {
		p.hub = relay.NewWebSocketHub(relay.HubOptions{
			Stream:  stream,
			MaxRate: cfg.Relay.MaxRate,
			Logger:  p.log,
		})
		p.fanout.Add(p.hub)
	}

	if recordDir != "" {
		rec, err := service.NewRecorder(recordDir, p.log)
		if err != nil {
			p.fanout.Close()
			return nil, err
		}
		p.recorder = rec
		p.fanout.Add(rec)
	}

	return p, nil
}

func newMQTTSink(cfg *config.RelaySection, stream string, log logger.Logger) (*relay.MQTTSink, error) {
	m := cfg.MQTT
	tlsOpts := tlsroots.ClientOptions{
		CAFile:             m.TLS.CAFile,
		CertFile:           m.TLS.CertFile,
		KeyFile:            m.TLS.KeyFile,
		ServerName:         m.TLS.ServerName,
		InsecureSkipVerify: m.TLS.InsecureSkipVerify,
	}

	opts := relay.MQTTOptions{
		Broker:   m.Broker,
		Topic:    m.Topic,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		QoS:      byte(m.QoS),
		Retained: m.Retained,
		Stream:   stream,
		MaxRate:  cfg.MaxRate,
		Logger:   log,
	}
	if tlsOpts.Enabled() || secureBroker(m.Broker) {
		tlsCfg, err := tlsroots.ClientConfig(tlsOpts)
		if err != nil {
			return nil, fmt.Errorf("mqtt tls: %w", err)
		}
		opts.TLS = tlsCfg
	}
	return relay.NewMQTTSink(opts)
}

func secureBroker(broker string) bool {
	for _, scheme := range []string{"ssl://", "tls://", "mqtts://", "wss://"} {
		if strings.HasPrefix(broker, scheme) {
			return true
		}
	}
	return false
}

// Clients returns the number of connected WebSocket clients.
func (p *pipeline) Clients() int {
	if p.hub == nil {
		return 0
	}
	return p.hub.Clients()
}

// Recordings returns the files written by the recorder.
func (p *pipeline) Recordings() []string {
	if p.recorder == nil {
		return nil
	}
	return p.recorder.Files()
}

// servers groups the metrics and WebSocket routes by listen address so
// that both may share one port.
func (p *pipeline) servers(cfg *config.Config, status func() any) map[string]*httpserver.Server {
	routes := make(map[string]*httpserver.RouterConfig)
	route := func(addr string) *httpserver.RouterConfig {
		if rc, ok := routes[addr]; ok {
			return rc
		}
		rc := &httpserver.RouterConfig{Status: status, Logger: p.log}
		routes[addr] = rc
		return rc
	}

	if cfg.Metrics.Addr != "" {
		rc := route(cfg.Metrics.Addr)
		rc.Metrics = p.metrics.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}
	if p.hub != nil {
		rc := route(cfg.Relay.WebSocket.Addr)
		rc.WebSocket = p.hub
		rc.WebSocketPath = cfg.Relay.WebSocket.Path
	}

	out := make(map[string]*httpserver.Server, len(routes))
	for addr, rc := range routes {
		out[addr] = httpserver.New(addr, httpserver.NewRouter(rc))
	}
	return out
}

// serve runs every server in g until its context ends.
func (p *pipeline) serve(g *group, cfg *config.Config, status func() any) {
	srvs := p.servers(cfg, status)
	addrs := make([]string, 0, len(srvs))
	for addr := range srvs {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		srv := srvs[addr]
		g.Go(func(ctx context.Context) error {
			err := srv.Run(ctx, func(a net.Addr) {
				p.log.Info("http listening", "addr", a.String())
			})
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http %s: %w", addr, err)
			}
			return nil
		})
	}
}

// Close closes every sink.
func (p *pipeline) Close() error {
	return p.fanout.Close()
}

// group runs goroutines under a shared context. The first error cancels
// the others.
type group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newGroup(parent context.Context) *group {
	ctx, cancel := context.WithCancel(parent)
	return &group{ctx: ctx, cancel: cancel}
}

// Go runs fn in a goroutine.
func (g *group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(g.ctx); err != nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = err
			}
			g.mu.Unlock()
			g.cancel()
		}
	}()
}

// Done is closed once the group is stopped or a goroutine failed.
func (g *group) Done() <-chan struct{} {
	return g.ctx.Done()
}

// Context returns the group context.
func (g *group) Context() context.Context {
	return g.ctx
}

// Stop cancels the group and waits for every goroutine.
func (g *group) Stop() error {
	g.cancel()
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
