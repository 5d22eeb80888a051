package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
)

// writeLog records a log with the given number of sections, one frame per
// timestamp. Head X is the timestamp and section j has X = 10*t + j.
func writeLog(t *testing.T, sections int, times ...float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.simlog")

	w, err := simlog.Create(path, sections)
	if err != nil {
		t.Fatalf("simlog.Create() error = %v", err)
	}
	for _, tm := range times {
		rec := domain.FrameRecord{T: tm, Head: domain.HeadPose{X: tm, Angle: tm / 2}}
		for j := 0; j < sections; j++ {
			rec.Sections = append(rec.Sections, domain.SectionSample{X: 10*tm + float32(j), Torque: tm})
		}
		if err := w.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

// writeConfig writes a YAML configuration file.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snakeview.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// runApp runs the CLI with args and returns what it wrote to stdout and
// stderr.
func runApp(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	return runAppInput(t, ctx, "", args...)
}

// runAppInput is runApp with stdin reading from input.
func runAppInput(t *testing.T, ctx context.Context, input string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	app := App()
	app.Reader = strings.NewReader(input)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(ctx, append([]string{"snakeview"}, args...))
	return stdout.String(), stderr.String(), err
}

// testContext returns the CLI context produced by running an app with the
// global flags on args. Running the app resolves short aliases such as -o.
func testContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	var ctx *cli.Context
	app := &cli.App{
		Name:           "test",
		Flags:          globalFlags(),
		Metadata:       map[string]any{},
		Writer:         io.Discard,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			ctx = c
			return nil
		},
	}
	if err := app.Run(append([]string{"test"}, args...)); err != nil {
		t.Fatalf("Run(%v) error = %v", args, err)
	}
	if ctx == nil {
		t.Fatalf("Run(%v) did not reach the action", args)
	}
	return ctx
}
