package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/metric"
)

// Speeds lists the playback time scales offered by the visualiser.
var Speeds = []float64{2, 1.5, 1, 0.75, 0.66, 0.5, 0.33, 0.25, 0.1}

// PlayerOptions configures a Player.
type PlayerOptions struct {
	// Speed is the initial time scale. Defaults to 1.
	Speed float64
	// Loop restarts playback at time 0 after the last sample.
	Loop bool
	// Hold keeps Run going after the last sample so that the clock can
	// still be moved by seeking.
	Hold bool
	// Logger defaults to logger.Default().
	Logger logger.Logger
	// Metrics may be nil.
	Metrics *metric.Registry
}

// Player is the playback clock over a recorded log. Time advances by
// speed*elapsed while playing and is clamped to the last timestamp.
type Player struct {
	mu      sync.Mutex
	src     *FileSource
	speed   float64
	loop    bool
	hold    bool
	playing bool
	time    float32
	reset   bool

	logger  logger.Logger
	metrics *metric.Registry
	now     func() time.Time
}

// NewPlayer creates a paused player at time 0.
func NewPlayer(src *FileSource, opts PlayerOptions) *Player {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Player{
		src:     src,
		speed:   opts.Speed,
		loop:    opts.Loop,
		hold:    opts.Hold,
		reset:   true,
		logger:  opts.Logger.With("component", "player"),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Source returns the underlying file source.
func (p *Player) Source() *FileSource {
	return p.src
}

// Play starts the clock.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

// Pause stops the clock.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Toggle flips between playing and paused and returns the new state.
func (p *Player) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = !p.playing
	return p.playing
}

// Playing reports whether the clock runs.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SetSpeed sets the time scale.
func (p *Player) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("player: speed must be positive and finite, got %g", speed)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
	return nil
}

// Speed returns the time scale.
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Time returns the playback time in simulation seconds.
func (p *Player) Time() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time
}

// Advance moves the clock by elapsed wall time if playing and returns the
// frame at the new time. At the end the clock stops, or restarts at 0 when
// looping.
func (p *Player) Advance(elapsed time.Duration) (FrameEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing && elapsed > 0 {
		last := p.src.LastTimestamp()
		p.time += float32(p.speed * elapsed.Seconds())
		if p.time >= last {
			if p.loop && last > 0 {
				p.time = 0
				p.reset = true
				if p.metrics != nil {
					p.metrics.ReplayRestarts.Inc()
				}
				p.logger.Debug("replay restarted")
			} else {
				p.time = last
				p.playing = false
				p.logger.Debug("replay reached the end", "t", last)
			}
		}
	}
	return p.frameLocked()
}

// SeekFraction moves the clock to fraction f of the last timestamp, the
// way a slider does. f is clamped to [0, 1].
func (p *Player) SeekFraction(f float64) (FrameEvent, error) {
	if math.IsNaN(f) {
		return FrameEvent{}, errors.New("player: fraction is NaN")
	}
	f = min(max(f, 0), 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.time = float32(f) * p.src.LastTimestamp()
	return p.frameLocked()
}

// SeekTime moves the clock to t, clamped to [0, last timestamp].
func (p *Player) SeekTime(t float32) (FrameEvent, error) {
	if math.IsNaN(float64(t)) {
		return FrameEvent{}, errors.New("player: time is NaN")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.time = min(max(t, 0), p.src.LastTimestamp())
	return p.frameLocked()
}

// Done reports whether a non-looping player has stopped at the end.
func (p *Player) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loop && !p.playing && p.time >= p.src.LastTimestamp()
}

func (p *Player) frameLocked() (FrameEvent, error) {
	start := p.now()
	frame, err := p.src.FrameAt(p.time)
	if err != nil {
		return FrameEvent{}, err
	}
	if p.metrics != nil {
		p.metrics.SeekDuration.Observe(p.now().Sub(start).Seconds())
		p.metrics.ReplayTime.Set(float64(p.time))
	}

	kind := EventUpdate
	if p.reset {
		kind = EventReset
		p.reset = false
	}
	return NewFrameEvent(kind, SourceReplay, p.src.Iteration(), frame), nil
}

// Run plays the log, advancing the clock every tick and sending each frame
// to out. It returns nil when ctx ends or a non-looping replay finishes.
func (p *Player) Run(ctx context.Context, tick time.Duration, out Sink) error {
	if tick <= 0 {
		return fmt.Errorf("player: tick must be positive, got %s", tick)
	}

	p.Play()
	ev, err := p.Advance(0)
	if err != nil {
		return err
	}
	if err := out.Send(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Debug("initial frame not delivered", "error", err)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := p.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := p.now()
		ev, err := p.Advance(now.Sub(last))
		last = now
		if err != nil {
			return err
		}
		if err := out.Send(ctx, ev); err != nil {
			p.logger.Debug("frame not delivered", "t", ev.Frame.T, "error", err)
		}
		if !p.hold && p.Done() {
			p.logger.Info("replay finished", "t", ev.Frame.T)
			return nil
		}
	}
}
