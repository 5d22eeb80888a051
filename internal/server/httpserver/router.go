package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// Default route paths.
const (
	DefaultMetricsPath   = "/metrics"
	DefaultWebSocketPath = "/ws"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics serves the Prometheus endpoint. Nil disables it.
	Metrics     http.Handler
	MetricsPath string

	// WebSocket serves the frame relay. Nil disables it.
	WebSocket     http.Handler
	WebSocketPath string

	// Status returns the value rendered at /status. Nil disables it.
	Status func() any

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// Logger for request logging.
	Logger logger.Logger
}

// NewRouter creates the HTTP router with all configured routes.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "http")

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}), RequestID(), Recover(log)))

	if cfg.Status != nil {
		status := cfg.Status
		mux.Handle("GET /status", Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, status())
		}), RequestID(), Recover(log), CORS(cfg.CORSAllowedOrigins), AccessLog(log)))
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = DefaultMetricsPath
		}
		mux.Handle("GET "+path, Chain(cfg.Metrics, RequestID(), Recover(log)))
	}

	if cfg.WebSocket != nil {
		path := cfg.WebSocketPath
		if path == "" {
			path = DefaultWebSocketPath
		}
		mux.Handle("GET "+path, Chain(cfg.WebSocket, RequestID(), Recover(log), AccessLog(log)))
	}

	return mux
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
