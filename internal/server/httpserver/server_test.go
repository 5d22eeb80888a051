package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

func testLogger(t *testing.T, buf *bytes.Buffer) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func TestNew(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s := New(":8080", handler)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.httpServer == nil {
		t.Error("httpServer is nil")
	}
	if s.handler == nil {
		t.Error("handler is nil")
	}
}

func TestServer_Run(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	})
	s := New("127.0.0.1:0", handler)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestServer_RunAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s := New(ln.Addr().String(), http.NotFoundHandler())
	if err := s.Run(context.Background(), nil); err == nil {
		t.Error("Run() should fail on a bound address")
	}
}

func TestNewRouter(t *testing.T) {
	var logs bytes.Buffer
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "snakeview_live_polls_total 3\n")
	})
	router := NewRouter(&RouterConfig{
		Metrics:     metrics,
		MetricsPath: "/prom",
		Status: func() any {
			return map[string]any{"mode": "replay", "time": 1.5}
		},
		Logger: testLogger(t, &logs),
	})

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/status", http.StatusOK, `"mode":"replay"`},
		{http.MethodGet, "/prom", http.StatusOK, "snakeview_live_polls_total"},
		{http.MethodGet, "/metrics", http.StatusNotFound, ""},
		{http.MethodGet, "/ws", http.StatusNotFound, ""},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want substring %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	if !strings.Contains(logs.String(), `"path":"/status"`) {
		t.Errorf("access log missing /status request: %s", logs.String())
	}
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(), Recover(testLogger(t, &logs)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "SR-SYS-5000" {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["code"] != "SR-SYS-5000" {
		t.Errorf("code = %q", body["code"])
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Error("panic should be logged")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "req-") {
		t.Errorf("generated request ID = %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("header = %q, context = %q", rec.Header().Get("X-Request-ID"), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-7")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "client-7" {
		t.Errorf("request ID = %q, want the client's", seen)
	}

	if RequestIDFrom(context.Background()) != "" {
		t.Error("empty context should have no request ID")
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://viewer.local"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantCode   int
		wantOrigin string
	}{
		{"allowed", http.MethodGet, "http://viewer.local", http.StatusTeapot, "http://viewer.local"},
		{"other origin", http.MethodGet, "http://evil.local", http.StatusTeapot, ""},
		{"preflight", http.MethodOptions, "http://viewer.local", http.StatusNoContent, "http://viewer.local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/status", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote", nil, "1.2.3.4:5", "1.2.3.4"},
		{"ipv6", nil, "[::1]:8080", "::1"},
		{"no port", nil, "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseWriter_Hijack(t *testing.T) {
	w := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := w.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
	if w.Unwrap() == nil {
		t.Error("Unwrap() should return the wrapped writer")
	}
	if w.status != http.StatusOK {
		t.Errorf("status = %d after a failed hijack", w.status)
	}
}

// hijackRecorder is a recorder whose connection can be taken over.
type hijackRecorder struct {
	*httptest.ResponseRecorder
	conn net.Conn
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, bufio.NewReadWriter(bufio.NewReader(h.conn), bufio.NewWriter(h.conn)), nil
}

func TestAccessLog_ViewerSession(t *testing.T) {
	var logs bytes.Buffer
	server, client := net.Pipe()
	defer client.Close()

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("Hijack() error = %v", err)
			return
		}
		conn.Close()
	}), RequestID(), AccessLog(testLogger(t, &logs)))

	h.ServeHTTP(&hijackRecorder{httptest.NewRecorder(), server}, httptest.NewRequest(http.MethodGet, "/ws", nil))

	out := logs.String()
	if !strings.Contains(out, "viewer disconnected") || !strings.Contains(out, `"status":101`) {
		t.Errorf("viewer session not logged: %s", out)
	}
	if !strings.Contains(out, `"session":`) {
		t.Errorf("session length missing: %s", out)
	}
}
