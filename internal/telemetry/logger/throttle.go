package logger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle returns a logger that emits each message at most once per
// interval. Suppressed entries are counted and the count is attached as
// "suppressed" to the next entry with the same message. Debug entries are
// passed through unchanged.
func Throttle(l Logger, interval time.Duration) Logger {
	return &throttled{
		Logger: l,
		state:  &throttleState{interval: interval, msgs: make(map[string]*throttleEntry)},
	}
}

type throttleEntry struct {
	limiter    *rate.Limiter
	suppressed int
}

type throttleState struct {
	mu       sync.Mutex
	interval time.Duration
	msgs     map[string]*throttleEntry
}

// allow reports whether msg may be logged and how many entries were
// dropped since it last was.
func (s *throttleState) allow(msg string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.msgs[msg]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(rate.Every(s.interval), 1)}
		s.msgs[msg] = e
	}
	if !e.limiter.Allow() {
		e.suppressed++
		return false, 0
	}
	n := e.suppressed
	e.suppressed = 0
	return true, n
}

type throttled struct {
	Logger
	state *throttleState
}

func (t *throttled) emit(log func(string, ...any), msg string, args []any) {
	ok, n := t.state.allow(msg)
	if !ok {
		return
	}
	if n > 0 {
		args = append(args, "suppressed", n)
	}
	log(msg, args...)
}

func (t *throttled) Info(msg string, args ...any)  { t.emit(t.Logger.Info, msg, args) }
func (t *throttled) Warn(msg string, args ...any)  { t.emit(t.Logger.Warn, msg, args) }
func (t *throttled) Error(msg string, args ...any) { t.emit(t.Logger.Error, msg, args) }

func (t *throttled) With(args ...any) Logger {
	return &throttled{Logger: t.Logger.With(args...), state: t.state}
}

func (t *throttled) WithContext(ctx context.Context) Logger {
	return &throttled{Logger: t.Logger.WithContext(ctx), state: t.state}
}
