package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/metric"
)

// DefaultPollInterval is the refresh cadence of the visualiser.
const DefaultPollInterval = 20 * time.Millisecond

// staleWarnInterval spaces out warnings while the writer is silent.
const staleWarnInterval = 5 * time.Second

// PollerOptions configures a Poller.
type PollerOptions struct {
	// Interval is the poll cadence. Defaults to DefaultPollInterval.
	Interval time.Duration
	// Logger defaults to logger.Default().
	Logger logger.Logger
	// Metrics may be nil.
	Metrics *metric.Registry
}

// Poller reads the shared region at a fixed cadence and turns new
// snapshots into frame events.
type Poller struct {
	src     *LiveSource
	out     Sink
	opts    PollerOptions
	logger  logger.Logger
	metrics *metric.Registry
	stale   rate.Sometimes

	seen          bool
	lastIteration uint32
	lastSections  uint32
}

// NewPoller creates a poller over src delivering to out. out may be nil.
func NewPoller(src *LiveSource, out Sink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Poller{
		src:     src,
		out:     out,
		opts:    opts,
		logger:  opts.Logger.With("component", "poller"),
		metrics: opts.Metrics,
		stale:   rate.Sometimes{Interval: staleWarnInterval},
	}
}

// Run polls until ctx ends. Timeouts and rejected snapshots are counted
// and retried on the next tick; any other error stops the loop.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.logger.Info("polling shared region", "interval", p.opts.Interval)
	for {
		if _, err := p.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick performs one poll. It returns the delivered event, or nil when no
// new snapshot arrived.
func (p *Poller) Tick(ctx context.Context) (*FrameEvent, error) {
	if p.metrics != nil {
		p.metrics.PollsTotal.Inc()
	}

	ok, err := p.src.Poll(ctx)

	lost := p.src.IsConnectionLikelyLost()
	if p.metrics != nil {
		metric.SetBool(p.metrics.ConnectionLost, lost)
	}
	if lost {
		p.stale.Do(func() {
			p.logger.Warn("simulation connection probably lost", "last_iteration", p.lastIteration)
		})
	}

	switch {
	case err == nil:
	case domain.IsRecoverable(err):
		if p.metrics != nil {
			p.metrics.ProtocolTimeouts.Inc()
		}
		p.logger.Debug("turn wait timed out", "error", err)
		return nil, nil
	case errors.Is(err, domain.ErrProtocolViolation):
		if p.metrics != nil {
			p.metrics.ProtocolViolations.Inc()
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("poll shared region: %w", err)
	}
	if !ok {
		return nil, nil
	}

	snap := p.src.Snapshot()
	if snap == nil {
		return nil, nil
	}
	if p.metrics != nil {
		p.metrics.SnapshotsTotal.Inc()
		p.metrics.Iteration.Set(float64(snap.Iteration))
		p.metrics.Sections.Set(float64(snap.NumSections))
	}

	kind := p.classify(snap)
	if kind == EventReset {
		p.logger.Info("simulation stream (re)started",
			"iteration", snap.Iteration,
			"sections", snap.NumSections)
	}

	ev := NewFrameEvent(kind, SourceLive, snap.Iteration, snap.Frame(p.src.LastTimestamp()))
	if p.out != nil {
		if err := p.out.Send(ctx, ev); err != nil {
			p.logger.Debug("frame not delivered", "iteration", snap.Iteration, "error", err)
		}
	}
	return &ev, nil
}

// classify reports EventReset for the first snapshot, a changed section
// count or an iteration counter that went backwards.
func (p *Poller) classify(snap *domain.Snapshot) EventKind {
	kind := EventUpdate
	if !p.seen || snap.NumSections != p.lastSections || snap.Iteration < p.lastIteration {
		kind = EventReset
	}
	p.seen = true
	p.lastIteration = snap.Iteration
	p.lastSections = snap.NumSections
	return kind
}
