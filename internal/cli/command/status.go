package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/connection"
	"github.com/Herman-H/Snake-Robot-Display/internal/cli/output"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Query a running replay or listen process",
		ArgsUsage: "[ADDR]",
		Description: "ADDR defaults to relay.websocket.addr, then metrics.addr, of the\n" +
			"loaded configuration.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: connection.DefaultTimeout,
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "Retry /health for up to this long before querying",
			},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	addr := c.Args().First()
	if addr == "" {
		flags := ParseGlobalFlags(c)
		cfg, _, err := loadConfig(flags.ConfigFile, flags.overrides())
		if err != nil {
			return err
		}
		addr = cfg.Relay.WebSocket.Addr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
	}
	if addr == "" {
		return fmt.Errorf("server address required")
	}

	client := connection.NewHTTPClient(addr, c.Duration("timeout"))
	if wait := c.Duration("wait"); wait > 0 {
		if err := waitHealthy(c, client, wait); err != nil {
			return err
		}
	}

	status, err := client.Status(c.Context)
	if err != nil {
		return fmt.Errorf("query %s: %w", client.BaseURL(), err)
	}
	return printResult(c, status)
}

// waitHealthy polls /health until it answers or wait elapses.
func waitHealthy(c *cli.Context, client *connection.HTTPClient, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(c.Context, wait)
	defer cancel()

	spinner := output.NewSpinner(errWriter(c), "waiting for "+client.BaseURL())
	spinner.Start()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := client.Health(ctx)
		if err == nil {
			spinner.Success("connected to " + client.BaseURL())
			return nil
		}
		select {
		case <-ctx.Done():
			spinner.Fail("no answer from " + client.BaseURL())
			return fmt.Errorf("wait for %s: %w", client.BaseURL(), err)
		case <-ticker.C:
		}
	}
}
