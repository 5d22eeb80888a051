package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/output"
	"github.com/Herman-H/Snake-Robot-Display/internal/cli/repl"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/shutdown"
)

// shutdownTimeout bounds the shutdown hooks of long-running commands.
const shutdownTimeout = 10 * time.Second

// relayFlags are shared by replay and listen.
func relayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "ws-addr",
			Usage: "Serve frames over WebSocket on this address (e.g. :8080)",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address",
		},
		&cli.StringFlag{
			Name:  "mqtt-broker",
			Usage: "Publish frames to this MQTT broker (e.g. tcp://localhost:1883)",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a status line on stderr",
		},
	}
}

// relayOverrides maps the relay flags that were set to configuration keys.
func relayOverrides(c *cli.Context, m map[string]any) map[string]any {
	if c.IsSet("ws-addr") {
		m["relay.websocket.addr"] = c.String("ws-addr")
	}
	if c.IsSet("metrics-addr") {
		m["metrics.addr"] = c.String("metrics-addr")
	}
	if c.IsSet("mqtt-broker") {
		m["relay.mqtt.broker"] = c.String("mqtt-broker")
	}
	return m
}

// ReplayCommand returns the replay command.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Play a recorded log and relay its frames",
		ArgsUsage: "[FILE]",
		Flags: append([]cli.Flag{
			&cli.Float64Flag{
				Name:  "speed",
				Usage: fmt.Sprintf("Playback time scale, e.g. one of %v", service.Speeds),
			},
			&cli.BoolFlag{
				Name:  "loop",
				Usage: "Restart from the first sample at the end",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Usage: "Wall-clock interval between frames",
			},
			&cli.Float64Flag{
				Name:  "start",
				Usage: "Start at this simulation time",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Control playback from a console on stdin",
			},
		}, relayFlags()...),
		Action: replayAction,
	}
}

// replayStatus is served at /status while replaying.
type replayStatus struct {
	Source   string  `json:"source"`
	Stream   string  `json:"stream"`
	File     string  `json:"file"`
	Sections int     `json:"sections"`
	Samples  int     `json:"samples"`
	Playing  bool    `json:"playing"`
	Speed    float64 `json:"speed"`
	Time     float32 `json:"time"`
	LastTime float32 `json:"last_time"`
	Clients  int     `json:"clients"`
}

func replayAction(c *cli.Context) error {
	overrides := relayOverrides(c, make(map[string]any))
	if path := c.Args().First(); path != "" {
		overrides["replay.file"] = path
	}
	if c.IsSet("speed") {
		overrides["replay.speed"] = c.Float64("speed")
	}
	if c.IsSet("loop") {
		overrides["replay.loop"] = c.Bool("loop")
	}
	if c.IsSet("tick") {
		overrides["replay.tick"] = c.Duration("tick")
	}

	env, err := setup(c, overrides)
	if err != nil {
		return err
	}
	cfg := env.cfg
	if cfg.Replay.File == "" {
		return fmt.Errorf("log file path required")
	}

	src, err := service.OpenFile(cfg.Replay.File)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, env.log, service.SourceReplay, "")
	if err != nil {
		return err
	}

	interactive := c.Bool("interactive")
	player := service.NewPlayer(src, service.PlayerOptions{
		Speed:   cfg.Replay.Speed,
		Loop:    cfg.Replay.Loop,
		Hold:    interactive,
		Logger:  p.log,
		Metrics: p.metrics,
	})
	if c.IsSet("start") {
		if _, err := player.SeekTime(float32(c.Float64("start"))); err != nil {
			p.Close()
			return err
		}
	}

	status := func() any {
		return replayStatus{
			Source:   service.SourceReplay,
			Stream:   p.stream,
			File:     src.Path(),
			Sections: src.NumberOfSections(),
			Samples:  src.Len(),
			Playing:  player.Playing(),
			Speed:    player.Speed(),
			Time:     player.Time(),
			LastTime: src.LastTimestamp(),
			Clients:  p.Clients(),
		}
	}

	var sink service.Sink = p.fanout
	var bar *output.ProgressBar
	if c.Bool("progress") {
		bar = output.NewProgressBar(errWriter(c), "replay")
		bar.SetTotal(float64(src.LastTimestamp()))
		sink = &progressSink{Sink: p.fanout, bar: bar}
	}

	g := newGroup(c.Context)
	p.serve(g, cfg, status)
	g.Go(func(ctx context.Context) error {
		if err := player.Run(ctx, cfg.Replay.Tick, sink); err != nil {
			return err
		}
		g.cancel()
		return nil
	})
	if interactive {
		console := repl.New(player, repl.Options{
			Input:       inReader(c),
			Output:      outWriter(c),
			End:         src.LastTimestamp(),
			Speeds:      service.Speeds,
			HistoryFile: repl.DefaultHistoryFile(),
		})
		g.Go(func(ctx context.Context) error {
			if err := console.Run(ctx); err != nil {
				return err
			}
			g.cancel()
			return nil
		})
	}

	var runErr error
	sh := shutdown.NewHandler(shutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		return p.Close()
	})
	sh.OnShutdown(func(context.Context) error {
		runErr = g.Stop()
		if bar != nil {
			bar.Finish()
		}
		return nil
	})
	env.watchConfig(sh)

	p.log.Info("replay started",
		"file", src.Path(),
		"samples", src.Len(),
		"sections", src.NumberOfSections(),
		"speed", player.Speed(),
		"loop", cfg.Replay.Loop)

	if err := sh.WaitContext(g.Context()); err != nil {
		p.log.Error("shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	p.log.Info("replay stopped", "t", player.Time(), "reason", sh.Reason())
	return runErr
}

// progressSink advances a progress bar with every delivered frame.
type progressSink struct {
	service.Sink
	bar *output.ProgressBar
}

// Send implements service.Sink.
func (s *progressSink) Send(ctx context.Context, ev service.FrameEvent) error {
	s.bar.Update(float64(ev.Frame.T))
	return s.Sink.Send(ctx, ev)
}
