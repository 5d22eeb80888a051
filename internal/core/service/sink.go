package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/metric"
)

// EventKind tells consumers whether to rebuild or update their view.
type EventKind int

const (
	// EventReset starts a new stream: the first frame, a changed section
	// count, a restarted simulation or a replay loop.
	EventReset EventKind = iota
	// EventUpdate moves the existing sections.
	EventUpdate
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EventKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "reset":
		*k = EventReset
	case "update":
		*k = EventUpdate
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// Source names carried by FrameEvent.
const (
	SourceReplay = "replay"
	SourceLive   = "live"
)

// FrameEvent is one frame delivered to sinks.
type FrameEvent struct {
	Kind       EventKind          `json:"kind" yaml:"kind"`
	Source     string             `json:"source" yaml:"source"`
	Iteration  uint32             `json:"iteration" yaml:"iteration"`
	Frame      domain.FrameRecord `json:"frame" yaml:"frame"`
	Aggregates domain.Aggregates  `json:"aggregates" yaml:"aggregates"`
}

// NewFrameEvent builds an event and computes the frame's aggregates.
func NewFrameEvent(kind EventKind, source string, iteration uint32, frame domain.FrameRecord) FrameEvent {
	return FrameEvent{
		Kind:       kind,
		Source:     source,
		Iteration:  iteration,
		Frame:      frame,
		Aggregates: domain.Aggregate(frame.Sections),
	}
}

// ErrFrameSkipped is returned by a sink that deliberately dropped a frame,
// for example to honour a rate limit. Fanout counts it without logging.
var ErrFrameSkipped = errors.New("frame skipped")

// Sink consumes frame events.
type Sink interface {
	// Name labels the sink in logs and metrics.
	Name() string

	// Send delivers one event. It must not retain ev.Frame.Sections past
	// the call.
	Send(ctx context.Context, ev FrameEvent) error

	// Close releases the sink.
	Close() error
}

// sinkWarnInterval bounds how often the failure of one sink is logged.
const sinkWarnInterval = time.Second

// Fanout delivers each event to every sink. A failing sink is counted and
// logged; it does not stop delivery to the others.
type Fanout struct {
	mu      sync.Mutex
	sinks   []Sink
	warn    map[string]logger.Logger
	metrics *metric.Registry
	logger  logger.Logger
}

// NewFanout creates a fan-out over sinks. metrics may be nil.
func NewFanout(log logger.Logger, metrics *metric.Registry, sinks ...Sink) *Fanout {
	if log == nil {
		log = logger.Default()
	}
	f := &Fanout{
		warn:    make(map[string]logger.Logger),
		metrics: metrics,
		logger:  log.With("component", "fanout"),
	}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Name implements Sink.
func (f *Fanout) Name() string {
	return "fanout"
}

// Add appends a sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
	if _, ok := f.warn[s.Name()]; !ok {
		f.warn[s.Name()] = logger.Throttle(f.logger.With("sink", s.Name()), sinkWarnInterval)
	}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sinks)
}

// Send delivers ev to every sink and returns the joined errors.
func (f *Fanout) Send(ctx context.Context, ev FrameEvent) error {
	f.mu.Lock()
	sinks := make([]Sink, len(f.sinks))
	copy(sinks, f.sinks)
	warn := make([]logger.Logger, len(sinks))
	for i, s := range sinks {
		warn[i] = f.warn[s.Name()]
	}
	f.mu.Unlock()

	var errs []error
	for i, s := range sinks {
		if err := s.Send(ctx, ev); err != nil {
			if f.metrics != nil {
				f.metrics.FramesDropped.WithLabelValues(s.Name()).Inc()
			}
			if errors.Is(err, ErrFrameSkipped) {
				continue
			}
			warn[i].Warn("sink failed", "iteration", ev.Iteration, "error", err)
			errs = append(errs, err)
			continue
		}
		if f.metrics != nil {
			f.metrics.FramesRelayed.WithLabelValues(s.Name()).Inc()
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink in reverse order of registration.
func (f *Fanout) Close() error {
	f.mu.Lock()
	sinks := f.sinks
	f.sinks = nil
	f.mu.Unlock()

	var errs []error
	for i := len(sinks) - 1; i >= 0; i-- {
		if err := sinks[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
