package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/output"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/shutdown"
	"github.com/Herman-H/Snake-Robot-Display/internal/shm"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/metric"
)

// ListenCommand returns the listen command.
func ListenCommand() *cli.Command {
	return &cli.Command{
		Name:      "listen",
		Usage:     "Read a running simulation from shared memory and relay its frames",
		ArgsUsage: "[PATH]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "record",
				Usage: "Write received frames to log files in this directory",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Interval between reads of the shared region",
			},
			&cli.DurationFlag{
				Name:  "spin-timeout",
				Usage: "Longest wait for the writer to hand over the turn",
			},
			&cli.BoolFlag{
				Name:  "create",
				Usage: "Create the shared file when it is missing",
				Value: true,
			},
		}, relayFlags()...),
		Action: listenAction,
	}
}

// liveStatus is served at /status while listening.
type liveStatus struct {
	Source     string          `json:"source"`
	Stream     string          `json:"stream"`
	Path       string          `json:"path"`
	Region     shm.Diagnostics `json:"region"`
	Clients    int             `json:"clients"`
	Recordings []string        `json:"recordings,omitempty"`
}

func listenAction(c *cli.Context) error {
	overrides := relayOverrides(c, make(map[string]any))
	if path := c.Args().First(); path != "" {
		overrides["live.path"] = path
	}
	if c.IsSet("record") {
		overrides["record.dir"] = c.String("record")
	}
	if c.IsSet("poll-interval") {
		overrides["live.poll_interval"] = c.Duration("poll-interval")
	}
	if c.IsSet("spin-timeout") {
		overrides["live.spin_timeout"] = c.Duration("spin-timeout")
	}
	if c.IsSet("create") {
		overrides["live.create"] = c.Bool("create")
	}

	env, err := setup(c, overrides)
	if err != nil {
		return err
	}
	cfg := env.cfg

	ch, err := shm.Open(cfg.Live.Path, shm.Options{
		Create:        cfg.Live.Create,
		SpinTimeout:   cfg.Live.SpinTimeout,
		MissThreshold: cfg.Live.MissThreshold,
		Logger:        env.log,
	})
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, env.log, service.SourceLive, cfg.Record.Dir)
	if err != nil {
		ch.Close()
		return err
	}
	p.metrics.MustRegister(metric.NewCollector(ch))

	src := service.NewLiveSource(ch)
	poller := service.NewPoller(src, p.fanout, service.PollerOptions{
		Interval: cfg.Live.PollInterval,
		Logger:   p.log,
		Metrics:  p.metrics,
	})

	status := func() any {
		return liveStatus{
			Source:     service.SourceLive,
			Stream:     p.stream,
			Path:       cfg.Live.Path,
			Region:     ch.Diagnostics(),
			Clients:    p.Clients(),
			Recordings: p.Recordings(),
		}
	}

	g := newGroup(c.Context)
	p.serve(g, cfg, status)
	g.Go(poller.Run)
	if c.Bool("progress") {
		spinner := output.NewSpinner(errWriter(c), "waiting for simulation at "+cfg.Live.Path)
		g.Go(func(ctx context.Context) error {
			return awaitFirstFrame(ctx, ch.Buffer(), spinner)
		})
	}

	var runErr error
	sh := shutdown.NewHandler(shutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		return ch.Close()
	})
	sh.OnShutdown(func(context.Context) error {
		return p.Close()
	})
	sh.OnShutdown(func(context.Context) error {
		runErr = g.Stop()
		return nil
	})
	env.watchConfig(sh)

	p.log.Info("listening",
		"path", cfg.Live.Path,
		"interval", cfg.Live.PollInterval,
		"record", cfg.Record.Dir)

	if err := sh.WaitContext(g.Context()); err != nil {
		p.log.Error("shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	p.log.Info("listen stopped", "reason", sh.Reason())
	for _, f := range p.Recordings() {
		p.log.Info("recording written", "file", f)
	}
	return runErr
}

// awaitFirstFrame spins until the buffer holds a snapshot.
func awaitFirstFrame(ctx context.Context, buf *shm.SnapshotBuffer, spinner *output.Spinner) error {
	spinner.Start()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if buf.HasData() {
			spinner.Success("receiving simulation frames")
			return nil
		}
		select {
		case <-ctx.Done():
			spinner.Stop()
			return nil
		case <-ticker.C:
		}
	}
}
