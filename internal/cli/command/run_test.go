package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
)

func TestReplayCommand(t *testing.T) {
	path := writeLog(t, 2, 0, 0.05, 0.1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, stderr, err := runApp(t, ctx,
		"--log-format", "text",
		"replay", "--tick", "5ms",
		"--metrics-addr", "127.0.0.1:0", "--ws-addr", "127.0.0.1:0",
		path)
	if err != nil {
		t.Fatalf("replay error = %v\n%s", err, stderr)
	}
	if ctx.Err() != nil {
		t.Fatal("replay did not stop at the end of the log")
	}
	for _, want := range []string{"replay started", "replay finished", "http listening"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("log missing %q:\n%s", want, stderr)
		}
	}
}

func TestReplayCommand_Errors(t *testing.T) {
	t.Setenv("SNAKEVIEW_REPLAY_FILE", "")
	ctx := context.Background()

	if _, _, err := runApp(t, ctx, "replay"); err == nil {
		t.Error("replay without a file should fail")
	}

	missing := filepath.Join(t.TempDir(), "missing.simlog")
	if _, _, err := runApp(t, ctx, "replay", missing); !errors.Is(err, domain.ErrFileNotFound) {
		t.Errorf("replay of a missing file error = %v, want ErrFileNotFound", err)
	}

	path := writeLog(t, 1, 0, 1)
	if _, _, err := runApp(t, ctx, "replay", "--speed", "-1", path); err == nil {
		t.Error("replay with a negative speed should fail")
	}
}

func TestReplayCommand_Cancel(t *testing.T) {
	path := writeLog(t, 1, 0, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, stderr, err := runApp(t, ctx, "replay", "--loop", path); err != nil {
		t.Fatalf("replay error = %v\n%s", err, stderr)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("replay took %v to stop after cancel", elapsed)
	}
}

func TestReplayCommand_Interactive(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeLog(t, 2, 0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stdout, stderr, err := runAppInput(t, ctx, "pause\nseek 0.5\nspeed 0.25\nquit\n", "replay", "-i", path)
	if err != nil {
		t.Fatalf("replay -i error = %v\n%s", err, stderr)
	}
	if ctx.Err() != nil {
		t.Fatal("quit did not stop the replay")
	}
	if !strings.Contains(stdout, "paused t=0.500/1.000 speed=0.25") {
		t.Errorf("console output:\n%s", stdout)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestListenAndSimulate(t *testing.T) {
	dir := t.TempDir()
	region := filepath.Join(dir, "display2Dconnection.datm")
	recordDir := filepath.Join(dir, "recordings")

	listenCtx, stopListen := context.WithCancel(context.Background())
	defer stopListen()
	listenDone := make(chan error, 1)
	var listenErr string
	go func() {
		_, stderr, err := runApp(t, listenCtx,
			"--log-format", "text",
			"listen", "--record", recordDir, "--poll-interval", "5ms",
			region)
		listenErr = stderr
		listenDone <- err
	}()

	if !waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(region)
		return err == nil
	}) {
		stopListen()
		<-listenDone
		t.Fatalf("listen did not create %s:\n%s", region, listenErr)
	}

	simCtx, stopSim := context.WithCancel(context.Background())
	defer stopSim()
	simDone := make(chan error, 1)
	go func() {
		_, _, err := runApp(t, simCtx, "simulate", "-n", "4", "--interval", "5ms", region)
		simDone <- err
	}()

	recorded := waitFor(t, 5*time.Second, func() bool {
		entries, err := os.ReadDir(recordDir)
		return err == nil && len(entries) > 0
	})
	time.Sleep(100 * time.Millisecond)

	stopListen()
	if err := <-listenDone; err != nil {
		t.Errorf("listen error = %v\n%s", err, listenErr)
	}
	stopSim()
	if err := <-simDone; err != nil {
		t.Errorf("simulate error = %v", err)
	}
	if !recorded {
		t.Fatalf("no recording written:\n%s", listenErr)
	}

	entries, err := os.ReadDir(recordDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	file := filepath.Join(recordDir, entries[0].Name())
	if filepath.Ext(file) != service.RecordingExt {
		t.Errorf("recording %s has the wrong extension", file)
	}

	series, err := simlog.Open(file)
	if err != nil {
		t.Fatalf("recording unreadable: %v", err)
	}
	if series.Sections != 4 {
		t.Errorf("recording has %d sections, want 4", series.Sections)
	}
	if series.Len() == 0 {
		t.Error("recording has no frames")
	}
	if series.FirstTimestamp() != 0 {
		t.Errorf("recording starts at %g, want 0", series.FirstTimestamp())
	}
}

func TestSimulateCommand_Duration(t *testing.T) {
	region := filepath.Join(t.TempDir(), "region.datm")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Without a reader every frame is skipped; the run still ends on time.
	_, stderr, err := runApp(t, ctx, "simulate", "--interval", "5ms", "--duration", "50ms", region)
	if err != nil {
		t.Fatalf("simulate error = %v\n%s", err, stderr)
	}
	if ctx.Err() != nil {
		t.Fatal("simulate did not stop after --duration")
	}
}

func TestSimulateCommand_BadSections(t *testing.T) {
	region := filepath.Join(t.TempDir(), "region.datm")
	if _, _, err := runApp(t, context.Background(), "simulate", "-n", "0", region); err == nil {
		t.Error("simulate with zero sections should fail")
	}
}
