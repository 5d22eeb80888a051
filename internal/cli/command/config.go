package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/config"
	"github.com/Herman-H/Snake-Robot-Display/internal/infra/confloader"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration, where each value came from, with secrets masked",
				Action: configShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[FILE]",
				Action:    configValidate,
			},
			{
				Name:   "keys",
				Usage:  "List configuration keys and their environment variables",
				Action: configKeys,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	cfg, loader, err := loadConfig(flags.ConfigFile, flags.overrides())
	if err != nil {
		return err
	}
	settings := config.Flatten(config.Sanitize(cfg))
	for i := range settings {
		settings[i].Source = loader.Origin(settings[i].Key)
	}
	return printResult(c, settings)
}

func configValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = ParseGlobalFlags(c).ConfigFile
	}
	if path == "" {
		return fmt.Errorf("configuration file path required")
	}

	if _, _, err := loadConfig(path, nil); err != nil {
		return err
	}
	fmt.Fprintf(outWriter(c), "✓ Configuration file is valid: %s\n", path)
	return nil
}

// keyRow maps a configuration key to its environment variable.
type keyRow struct {
	Key string `json:"key" yaml:"key"`
	Env string `json:"env" yaml:"env"`
}

func configKeys(c *cli.Context) error {
	keys := confloader.StructKeys(config.Config{})
	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			Key: k,
			Env: confloader.EnvName(k),
		}
	}
	return printResult(c, rows)
}
