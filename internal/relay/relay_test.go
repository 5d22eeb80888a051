package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "text", Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func testEvent(kind service.EventKind, iteration uint32) service.FrameEvent {
	snap := &domain.Snapshot{
		Iteration:   iteration,
		NumSections: 2,
		Head:        domain.HeadPose{X: 1, Y: 2, Angle: 0.5},
		Sections: []domain.SectionSample{
			{X: 0, Y: 0, FResX: 1},
			{X: 2, Y: 0, FResX: 1},
		},
	}
	return service.NewFrameEvent(kind, service.SourceLive, iteration, snap.Frame(0.25))
}

// fakeToken completes immediately, or never when pending.
type fakeToken struct {
	done    chan struct{}
	err     error
	pending bool
}

func newFakeToken(err error, pending bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err, pending: pending}
	if !pending {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	err          error
	pending      bool
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return newFakeToken(c.err, c.pending)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func TestMQTTSink_Send(t *testing.T) {
	client := &fakeClient{}
	sink := newMQTTSink(client, MQTTOptions{
		Topic:    "snakeview/frame",
		QoS:      1,
		Retained: true,
		Stream:   "run-test",
		Logger:   quietLogger(t),
	})

	if sink.Name() != "mqtt" {
		t.Errorf("Name() = %q", sink.Name())
	}
	for i := uint32(1); i <= 2; i++ {
		if err := sink.Send(context.Background(), testEvent(service.EventUpdate, i)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if len(client.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(client.messages))
	}
	msg := client.messages[1]
	if msg.topic != "snakeview/frame" || msg.qos != 1 || !msg.retained {
		t.Errorf("publish options = %+v", msg)
	}

	var env Envelope
	if err := json.Unmarshal(msg.payload, &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.Stream != "run-test" || env.Seq != 2 || env.Iteration != 2 {
		t.Errorf("envelope = stream %q seq %d iteration %d", env.Stream, env.Seq, env.Iteration)
	}
	if env.Source != service.SourceLive || len(env.Frame.Sections) != 2 || env.Frame.T != 0.25 {
		t.Errorf("envelope frame = %+v", env.Frame)
	}
	if env.Aggregates.CenterX != 1 || env.Aggregates.ForceX != 2 {
		t.Errorf("aggregates = %+v", env.Aggregates)
	}
	if !strings.Contains(string(msg.payload), `"kind":"update"`) {
		t.Errorf("kind not encoded by name: %s", msg.payload)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !client.disconnected {
		t.Error("Close() should disconnect")
	}
}

func TestMQTTSink_Errors(t *testing.T) {
	brokerErr := errors.New("not authorized")

	tests := []struct {
		name    string
		client  *fakeClient
		ctx     func() context.Context
		wantErr string
	}{
		{"broker error", &fakeClient{err: brokerErr}, context.Background, "not authorized"},
		{"timeout", &fakeClient{pending: true}, context.Background, "timed out"},
		{"canceled", &fakeClient{pending: true}, func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}, "canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMQTTSink(tt.client, MQTTOptions{
				Topic:          "t",
				PublishTimeout: 20 * time.Millisecond,
				Logger:         quietLogger(t),
			})
			err := sink.Send(tt.ctx(), testEvent(service.EventUpdate, 1))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Send() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewMQTTSink_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts MQTTOptions
	}{
		{"no broker", MQTTOptions{Topic: "t"}},
		{"no topic", MQTTOptions{Broker: "tcp://localhost:1883"}},
		{"bad qos", MQTTOptions{Broker: "tcp://localhost:1883", Topic: "t", QoS: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMQTTSink(tt.opts); err == nil {
				t.Error("NewMQTTSink() should fail")
			}
		})
	}
}

func TestGate(t *testing.T) {
	g := newGate(1)

	if !g.allow(testEvent(service.EventUpdate, 1)) {
		t.Fatal("first frame should pass")
	}
	if g.allow(testEvent(service.EventUpdate, 2)) {
		t.Error("second frame within a second should be dropped")
	}
	if !g.allow(testEvent(service.EventReset, 3)) {
		t.Error("reset frames are never dropped")
	}

	open := newGate(0)
	for i := uint32(0); i < 100; i++ {
		if !open.allow(testEvent(service.EventUpdate, i)) {
			t.Fatal("a zero rate gate never drops")
		}
	}

	client := &fakeClient{}
	sink := newMQTTSink(client, MQTTOptions{Topic: "t", MaxRate: 1, Logger: quietLogger(t)})
	sink.Send(context.Background(), testEvent(service.EventUpdate, 1))
	if err := sink.Send(context.Background(), testEvent(service.EventUpdate, 2)); !errors.Is(err, service.ErrFrameSkipped) {
		t.Errorf("Send() error = %v, want ErrFrameSkipped", err)
	}
	if len(client.messages) != 1 {
		t.Errorf("published %d messages, want 1", len(client.messages))
	}
}

func TestEncoder_NonFinite(t *testing.T) {
	ev := testEvent(service.EventUpdate, 1)
	ev.Frame.Sections[0].Torque = float32(math.NaN())

	if _, err := newEncoder("run-x").encode(ev); err == nil {
		t.Error("encode() should reject NaN")
	}
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return env
}

func waitClients(t *testing.T, hub *WebSocketHub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	hub := NewWebSocketHub(HubOptions{Stream: "run-ws", Logger: quietLogger(t)})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dialHub(t, srv)
	b := dialHub(t, srv)
	waitClients(t, hub, 2)

	if err := hub.Send(context.Background(), testEvent(service.EventReset, 5)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Stream != "run-ws" || env.Iteration != 5 || env.Kind != service.EventReset {
			t.Errorf("envelope = %+v", env)
		}
	}

	// A late client first receives the last frame.
	c := dialHub(t, srv)
	if env := readEnvelope(t, c); env.Iteration != 5 {
		t.Errorf("late client got iteration %d, want 5", env.Iteration)
	}
	waitClients(t, hub, 3)

	a.Close()
	waitClients(t, hub, 2)

	if err := hub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after Close", hub.Clients())
	}
	b.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := b.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going away", err)
	}
	if err := hub.Send(context.Background(), testEvent(service.EventUpdate, 6)); err == nil {
		t.Error("Send() after Close should fail")
	}
}

func TestWebSocketHub_SlowClient(t *testing.T) {
	hub := NewWebSocketHub(HubOptions{Logger: quietLogger(t)})

	// A registered client nobody drains.
	stuck := &wsClient{send: make(chan []byte, clientQueue), done: make(chan struct{})}
	hub.clients[stuck] = struct{}{}

	var skipped int
	for i := 0; i < clientQueue+3; i++ {
		if err := hub.Send(context.Background(), testEvent(service.EventUpdate, uint32(i))); errors.Is(err, service.ErrFrameSkipped) {
			skipped++
		}
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
}
