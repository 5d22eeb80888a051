package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// cancelled returns a context that is already done.
func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestHandler_HookOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var order []string
	for _, name := range []string{"player", "relay", "channel"} {
		h.OnShutdown(func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := h.WaitContext(cancelled()); err != nil {
		t.Fatalf("WaitContext() error = %v", err)
	}
	if got := strings.Join(order, ","); got != "channel,relay,player" {
		t.Errorf("hook order = %s, want channel,relay,player", got)
	}
	if got := h.Reason(); got != "finished" {
		t.Errorf("Reason() = %q, want finished", got)
	}
}

func TestHandler_JoinsHookErrors(t *testing.T) {
	h := NewHandler(time.Second)

	errSink := errors.New("close mqtt sink")
	errChannel := errors.New("unmap channel")
	var ranLast bool
	h.OnShutdown(func(context.Context) error {
		ranLast = true
		return nil
	})
	h.OnShutdown(func(context.Context) error { return errSink })
	h.OnShutdown(func(context.Context) error { return errChannel })

	err := h.WaitContext(cancelled())
	if !errors.Is(err, errSink) || !errors.Is(err, errChannel) {
		t.Errorf("WaitContext() = %v, want both hook errors", err)
	}
	if !ranLast {
		t.Error("a failing hook stopped the remaining hooks")
	}
}

func TestHandler_HookContext(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)

	h.OnShutdown(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.WaitContext(cancelled())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitContext() = %v, want deadline exceeded", err)
	}
}

func TestHandler_DeadlineReason(t *testing.T) {
	h := NewHandler(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := h.WaitContext(ctx); err != nil {
		t.Fatalf("WaitContext() error = %v", err)
	}
	if got := h.Reason(); got != "deadline" {
		t.Errorf("Reason() = %q, want deadline", got)
	}
}

func TestHandler_Done(t *testing.T) {
	h := NewHandler(time.Second)
	if h.Reason() != "" {
		t.Errorf("Reason() = %q before shutdown", h.Reason())
	}

	select {
	case <-h.Done():
		t.Fatal("Done closed before shutdown")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.WaitContext(ctx) }()
	cancel()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after cancel")
	}
	if err := <-errCh; err != nil {
		t.Errorf("WaitContext() error = %v", err)
	}

	// A second shutdown must not close done again.
	if err := h.WaitContext(cancelled()); err != nil {
		t.Errorf("second WaitContext() error = %v", err)
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second)

	var closed bool
	h.OnShutdown(func(context.Context) error {
		closed = true
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait time to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after SIGTERM")
	}
	if !closed {
		t.Error("hook not run")
	}
	if got := h.Reason(); got != "signal terminated" {
		t.Errorf("Reason() = %q, want signal terminated", got)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		calls int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if err := h.WaitContext(cancelled()); err != nil {
		t.Fatalf("WaitContext() error = %v", err)
	}
	if calls != 10 {
		t.Errorf("hooks run = %d, want 10", calls)
	}
}
