package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/output"
	"github.com/Herman-H/Snake-Robot-Display/internal/config"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/buildinfo"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/confloader"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/shutdown"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

const metaFormat = "format"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "snakeview",
		Usage:   "Replay, stream and relay snake-robot simulation data",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InspectCommand(),
			SampleCommand(),
			ReplayCommand(),
			ListenCommand(),
			SimulateCommand(),
			StatusCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			format, err := output.ParseFormat(c.String("output"))
			if err != nil {
				return err
			}
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metaFormat] = format
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (YAML)",
			EnvVars: []string{"SNAKEVIEW_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Shorthand for --log-level debug",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string

	// Output format
	Output string // table, json, yaml
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		LogLevel:   c.String("log-level"),
		LogFormat:  c.String("log-format"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// overrides returns the configuration keys set by the global flags.
func (f *GlobalFlags) overrides() map[string]any {
	m := make(map[string]any)
	if f.LogLevel != "" {
		m["log.level"] = f.LogLevel
	}
	if f.Verbose {
		m["log.level"] = "debug"
	}
	if f.LogFormat != "" {
		m["log.format"] = f.LogFormat
	}
	return m
}

// appEnv is the loaded configuration and logger of one command run.
type appEnv struct {
	cfg       *config.Config
	loader    *confloader.Loader
	overrides map[string]any
	log       logger.Logger
}

// setup loads the configuration (defaults, file, environment, then flags)
// and installs the process logger. overrides holds command flag values by
// configuration key.
func setup(c *cli.Context, overrides map[string]any) (*appEnv, error) {
	flags := ParseGlobalFlags(c)

	merged := flags.overrides()
	for k, v := range overrides {
		merged[k] = v
	}

	cfg, loader, err := loadConfig(flags.ConfigFile, merged)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errWriter(c),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	return &appEnv{cfg: cfg, loader: loader, overrides: merged, log: log}, nil
}

// loadConfig loads and validates the configuration.
func loadConfig(path string, overrides map[string]any) (*config.Config, *confloader.Loader, error) {
	cfg := config.Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// watchConfig re-reads the configuration file when it changes and applies
// the new log level. Other settings take effect on the next start.
func (e *appEnv) watchConfig(sh *shutdown.Handler) {
	path := e.loader.FilePath()
	if path == "" {
		return
	}

	w, err := confloader.Watch(path, func(string) {
		cfg, _, err := loadConfig(path, e.overrides)
		if err != nil {
			e.log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			e.log.Info("log level changed", "level", logger.GetLevel())
		}
	}, confloader.WithWatcherLogger(e.log))
	if err != nil {
		e.log.Warn("config reload disabled", "path", path, "error", err)
		return
	}

	sh.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
}

// formatter returns the formatter selected by --output.
func formatter(c *cli.Context) output.Formatter {
	format, ok := c.App.Metadata[metaFormat].(output.Format)
	if !ok {
		format, _ = output.ParseFormat(c.String("output"))
	}
	return output.NewFormatter(format, c.Bool("wide"))
}

// printResult writes v to stdout with the selected formatter.
func printResult(c *cli.Context, v any) error {
	return formatter(c).Format(outWriter(c), v)
}

func inReader(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

func outWriter(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
