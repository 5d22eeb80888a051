package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// RecordingExt is the file extension of recordings.
const RecordingExt = ".simlog"

// DefaultRecordFlush bounds how long an appended frame stays in memory.
const DefaultRecordFlush = time.Second

// Recorder writes frame events to log files in dir. Every EventReset starts
// a new file, since a log holds a fixed section count. Frame timestamps are
// rebased to the first frame of each file.
type Recorder struct {
	mu     sync.Mutex
	dir    string
	logger logger.Logger
	every  time.Duration

	w         *simlog.Writer
	origin    float32
	flushedAt time.Time
	files     []string
	closed    bool
}

// NewRecorder creates dir if needed.
func NewRecorder(dir string, log logger.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Recorder{
		dir:    dir,
		logger: log.With("component", "recorder", "dir", dir),
		every:  DefaultRecordFlush,
	}, nil
}

// Name implements Sink.
func (r *Recorder) Name() string {
	return "recorder"
}

// Send appends ev.Frame to the current recording.
func (r *Recorder) Send(_ context.Context, ev FrameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder: closed")
	}
	if r.w == nil || ev.Kind == EventReset || len(ev.Frame.Sections) != r.w.Sections() {
		if err := r.rotateLocked(len(ev.Frame.Sections), ev.Frame.T); err != nil {
			return err
		}
	}

	rec := domain.FrameRecord{
		T:        ev.Frame.T - r.origin,
		Head:     ev.Frame.Head,
		Sections: ev.Frame.Sections,
	}
	if err := r.w.Append(rec); err != nil {
		return err
	}
	if now := time.Now(); now.Sub(r.flushedAt) >= r.every {
		r.flushedAt = now
		return r.w.Flush()
	}
	return nil
}

func (r *Recorder) rotateLocked(sections int, origin float32) error {
	if err := r.finishLocked(); err != nil {
		r.logger.Warn("closing recording failed", "error", err)
	}

	path := filepath.Join(r.dir, domain.GenerateRecordingID()+RecordingExt)
	w, err := simlog.Create(path, sections)
	if err != nil {
		return err
	}
	r.w = w
	r.origin = origin
	r.flushedAt = time.Now()
	r.files = append(r.files, path)
	r.logger.Info("recording started", "path", path, "sections", sections)
	return nil
}

func (r *Recorder) finishLocked() error {
	if r.w == nil {
		return nil
	}
	w := r.w
	r.w = nil
	if err := w.Close(); err != nil {
		return err
	}
	r.logger.Info("recording finished", "path", w.Path(), "samples", w.Count())
	return nil
}

// Files returns the recordings written so far, oldest first.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}

// Close finishes the current recording.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.finishLocked()
}
