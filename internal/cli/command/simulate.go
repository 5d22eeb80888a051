package command

import (
	"context"
	"math"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/shutdown"
	"github.com/Herman-H/Snake-Robot-Display/internal/shm"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// SimulateCommand returns the simulate command.
func SimulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Publish a synthetic serpentine gait to shared memory",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "sections",
				Aliases: []string{"n"},
				Usage:   "Number of sections",
				Value:   12,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Publish interval, also the simulation time step",
				Value: service.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this much simulation time (0 runs until interrupted)",
			},
			&cli.Float64Flag{
				Name:  "amplitude",
				Usage: "Peak section heading in radians",
				Value: service.DefaultGait(1).Amplitude,
			},
			&cli.Float64Flag{
				Name:  "frequency",
				Usage: "Undulation frequency in Hz",
				Value: 0.5,
			},
		},
		Action: simulateAction,
	}
}

func simulateAction(c *cli.Context) error {
	overrides := make(map[string]any)
	if path := c.Args().First(); path != "" {
		overrides["live.path"] = path
	}

	env, err := setup(c, overrides)
	if err != nil {
		return err
	}
	cfg := env.cfg

	gait := service.DefaultGait(c.Int("sections"))
	gait.Amplitude = c.Float64("amplitude")
	gait.Omega = 2 * math.Pi * c.Float64("frequency")

	pub, err := shm.OpenPublisher(cfg.Live.Path, cfg.Live.SpinTimeout)
	if err != nil {
		return err
	}

	runCtx := logger.WithSource(logger.WithRunID(context.Background(), domain.GenerateStreamID()), "simulate")
	log := env.log.With("path", cfg.Live.Path).WithContext(runCtx)

	sim, err := service.NewSimulator(gait, pub, service.SimulatorOptions{
		Interval: c.Duration("interval"),
		Duration: c.Duration("duration"),
		Logger:   log,
	})
	if err != nil {
		pub.Close()
		return err
	}

	g := newGroup(c.Context)
	g.Go(func(ctx context.Context) error {
		if err := sim.Run(ctx); err != nil {
			return err
		}
		g.cancel()
		return nil
	})

	var runErr error
	sh := shutdown.NewHandler(shutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		return pub.Close()
	})
	sh.OnShutdown(func(context.Context) error {
		runErr = g.Stop()
		return nil
	})
	env.watchConfig(sh)

	if err := sh.WaitContext(g.Context()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
