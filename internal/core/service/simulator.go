package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// Gait generates a serpenoid travelling wave along a chain of sections.
// Section i trails section i-1 by Length at heading
// Amplitude*sin(Omega*t - Wave*i) while the head moves along x at Speed.
type Gait struct {
	Sections  int
	Length    float64
	Amplitude float64
	Omega     float64
	Wave      float64
	Speed     float64
	// Drag scales the resultant force opposing each section's velocity.
	Drag float64
	// Stiffness scales the joint torque from the relative joint angle.
	Stiffness float64
}

// DefaultGait returns a gait with n sections.
func DefaultGait(n int) Gait {
	return Gait{
		Sections:  n,
		Length:    0.1,
		Amplitude: math.Pi / 6,
		Omega:     2 * math.Pi * 0.5,
		Wave:      2 * math.Pi / float64(max(n, 1)),
		Speed:     0.05,
		Drag:      0.8,
		Stiffness: 0.2,
	}
}

// heading returns the angle of section i at time t.
func (g Gait) heading(t float64, i int) float64 {
	return g.Amplitude * math.Sin(g.Omega*t-g.Wave*float64(i))
}

// Frame returns the pose of the whole chain at time t. Velocities are the
// analytic time derivatives of the positions.
func (g Gait) Frame(t float64) domain.FrameRecord {
	head := domain.HeadPose{
		X:     float32(g.Speed * t),
		Angle: float32(g.heading(t, 0)),
	}

	sections := make([]domain.SectionSample, g.Sections)
	x, y := g.Speed*t, 0.0
	dx, dy := g.Speed, 0.0
	prevPhi := g.heading(t, 0)
	for i := range sections {
		phi := g.heading(t, i)
		dphi := g.Amplitude * g.Omega * math.Cos(g.Omega*t-g.Wave*float64(i))

		x -= g.Length * math.Cos(phi)
		y -= g.Length * math.Sin(phi)
		dx += g.Length * math.Sin(phi) * dphi
		dy -= g.Length * math.Cos(phi) * dphi

		sections[i] = domain.SectionSample{
			X:      float32(x),
			Y:      float32(y),
			Phi:    float32(phi),
			DX:     float32(dx),
			DY:     float32(dy),
			DPhi:   float32(dphi),
			FResX:  float32(-g.Drag * dx),
			FResY:  float32(-g.Drag * dy),
			Torque: float32(g.Stiffness * (phi - prevPhi)),
		}
		prevPhi = phi
	}

	return domain.FrameRecord{T: float32(t), Head: head, Sections: sections}
}

// Publisher is the writer end of the shared region.
type Publisher interface {
	Publish(ctx context.Context, head domain.HeadPose, sections []domain.SectionSample) (uint32, error)
}

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	// Interval is the publish cadence. Defaults to DefaultPollInterval.
	Interval time.Duration
	// Duration stops the run after this much simulation time. Zero runs
	// until the context ends.
	Duration time.Duration
	// Logger defaults to logger.Default().
	Logger logger.Logger
}

// Simulator publishes a Gait to the shared region at a fixed cadence,
// standing in for the numerical simulation.
type Simulator struct {
	gait    Gait
	pub     Publisher
	opts    SimulatorOptions
	logger  logger.Logger
	waiting rate.Sometimes

	published uint64
	missed    uint64
}

// NewSimulator creates a simulator writing to pub.
func NewSimulator(gait Gait, pub Publisher, opts SimulatorOptions) (*Simulator, error) {
	if gait.Sections < 1 || gait.Sections > domain.MaxSections {
		return nil, fmt.Errorf("simulator: sections must be in [1, %d], got %d", domain.MaxSections, gait.Sections)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Simulator{
		gait:    gait,
		pub:     pub,
		opts:    opts,
		logger:  opts.Logger.With("component", "simulator"),
		waiting: rate.Sometimes{Interval: staleWarnInterval},
	}, nil
}

// Step publishes the frame at simulation time t. A reader that has not
// released the region yet is not an error; the frame is skipped.
func (s *Simulator) Step(ctx context.Context, t float64) (bool, error) {
	f := s.gait.Frame(t)
	it, err := s.pub.Publish(ctx, f.Head, f.Sections)
	switch {
	case err == nil:
		s.published++
		s.logger.Debug("published", "iteration", it, "t", f.T)
		return true, nil
	case domain.IsRecoverable(err):
		s.missed++
		s.waiting.Do(func() {
			s.logger.Info("waiting for reader", "skipped", s.missed)
		})
		return false, nil
	default:
		return false, err
	}
}

// Run publishes until ctx ends or the configured duration elapses.
// Simulation time advances by Interval per tick whether or not the reader
// kept up.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info("simulation started",
		"sections", s.gait.Sections,
		"interval", s.opts.Interval)

	for step := 0; ; step++ {
		t := float64(step) * s.opts.Interval.Seconds()
		if s.opts.Duration > 0 && t > s.opts.Duration.Seconds() {
			break
		}
		if _, err := s.Step(ctx, t); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			return fmt.Errorf("publish: %w", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", "published", s.published, "skipped", s.missed)
			return nil
		case <-ticker.C:
		}
	}

	s.logger.Info("simulation stopped", "published", s.published, "skipped", s.missed)
	return nil
}

// Published returns the number of frames handed to the reader.
func (s *Simulator) Published() uint64 {
	return s.published
}
