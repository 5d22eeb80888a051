// Package repl provides the interactive replay console.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
)

// Controller is the playback clock driven by the console.
type Controller interface {
	Play()
	Pause()
	Toggle() bool
	Playing() bool
	SetSpeed(speed float64) error
	Speed() float64
	Time() float32
	SeekTime(t float32) (service.FrameEvent, error)
	SeekFraction(f float64) (service.FrameEvent, error)
}

// Options configures a REPL.
type Options struct {
	Input  io.Reader
	Output io.Writer

	// End is the last timestamp of the log, shown by status.
	End float32

	// Speeds are the presets stepped through by faster and slower,
	// fastest first.
	Speeds []float64

	// HistoryFile persists the command history. Empty keeps it in memory.
	HistoryFile string
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	ctl       Controller
	input     io.Reader
	output    io.Writer
	end       float32
	speeds    []float64
	completer *Completer
	history   *History
}

// New creates a console for ctl.
func New(ctl Controller, opts Options) *REPL {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if len(opts.Speeds) == 0 {
		opts.Speeds = service.Speeds
	}
	return &REPL{
		ctl:       ctl,
		input:     opts.Input,
		output:    opts.Output,
		end:       opts.End,
		speeds:    opts.Speeds,
		completer: NewCompleter(),
		history:   NewHistory(opts.HistoryFile),
	}
}

// Run reads commands until quit, end of input or ctx ends. The history is
// saved on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "history not loaded: %v\n", err)
	}
	defer r.history.Save()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(r.input)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.output, "snakeview> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.output)
			return nil
		case err := <-errCh:
			fmt.Fprintln(r.output)
			if err == io.EOF {
				return nil
			}
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		quit, err := r.execute(line)
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// execute runs one command line and reports whether the console should
// exit.
func (r *REPL) execute(line string) (bool, error) {
	fields := strings.Fields(line)
	name, err := r.completer.Resolve(fields[0])
	if err != nil {
		return false, err
	}
	args := fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		r.help()
	case "play":
		r.ctl.Play()
		r.status()
	case "pause":
		r.ctl.Pause()
		r.status()
	case "toggle":
		r.ctl.Toggle()
		r.status()
	case "speed":
		if len(args) == 0 {
			fmt.Fprintf(r.output, "speed %g\n", r.ctl.Speed())
			return false, nil
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("speed: %q is not a number", args[0])
		}
		if err := r.ctl.SetSpeed(v); err != nil {
			return false, err
		}
		r.status()
	case "faster", "slower":
		if err := r.ctl.SetSpeed(r.step(name == "faster")); err != nil {
			return false, err
		}
		r.status()
	case "seek", "jump":
		if len(args) != 1 {
			return false, fmt.Errorf("%s needs one argument", name)
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, fmt.Errorf("%s: %q is not a number", name, args[0])
		}
		if name == "seek" {
			_, err = r.ctl.SeekTime(float32(v))
		} else {
			_, err = r.ctl.SeekFraction(v)
		}
		if err != nil {
			return false, err
		}
		r.status()
	case "status":
		r.status()
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
		}
	}
	return false, nil
}

// step returns the next preset speed above or below the current one.
// Presets are ordered fastest first.
func (r *REPL) step(faster bool) float64 {
	cur := r.ctl.Speed()
	if faster {
		for i := len(r.speeds) - 1; i >= 0; i-- {
			if r.speeds[i] > cur {
				return r.speeds[i]
			}
		}
		return r.speeds[0]
	}
	for _, s := range r.speeds {
		if s < cur {
			return s
		}
	}
	return r.speeds[len(r.speeds)-1]
}

func (r *REPL) status() {
	state := "paused"
	if r.ctl.Playing() {
		state = "playing"
	}
	fmt.Fprintf(r.output, "%s t=%.3f/%.3f speed=%g\n", state, r.ctl.Time(), r.end, r.ctl.Speed())
}

func (r *REPL) help() {
	fmt.Fprint(r.output, `Commands (unique prefixes are accepted):
  play, pause, toggle   start or stop the clock
  speed [X]             show or set the time scale
  faster, slower        step through the preset speeds
  seek T                move to simulation time T
  jump F                move to fraction F of the log (0..1)
  status                show time, speed and state
  history               list previous commands
  quit                  stop the replay
`)
}
