package simlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// File permissions for recorded logs.
const (
	DefaultFilePerm = 0644
	DefaultDirPerm  = 0750
)

var (
	errWriterClosed = errors.New("simlog: writer is closed")
	errNotOrdered   = errors.New("simlog: timestamps must be non-decreasing")
)

// Encode writes the whole series to w.
func Encode(w io.Writer, s *Series) error {
	var hdr [HeaderSize]byte
	putHeader(hdr[:], uint32(s.Sections), uint32(len(s.Frames)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("simlog: write header: %w", err)
	}

	buf := make([]byte, 0, FrameSize(s.Sections))
	for i := range s.Frames {
		if len(s.Frames[i].Sections) != s.Sections {
			return fmt.Errorf("simlog: frame %d has %d sections, want %d",
				i, len(s.Frames[i].Sections), s.Sections)
		}
		buf = appendFrame(buf[:0], &s.Frames[i])
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("simlog: write frame %d: %w", i, err)
		}
	}
	return nil
}

// minBufferSize is the smallest write buffer of a Writer. The buffer always
// holds at least one whole frame.
const minBufferSize = 4096

// Writer appends frames to a log file. Frames are buffered and reach the
// file only as whole frames, after which the header's sample count is
// patched to match. A recording cut off before Close therefore opens as a
// valid log holding every flushed frame.
type Writer struct {
	mu sync.Mutex

	file     *os.File
	bw       *bufio.Writer
	path     string
	sections int
	count    uint32
	flushed  uint32
	lastT    float32
	buf      []byte
	closed   bool
}

// Create creates (or truncates) path and writes the header for n sections.
func Create(path string, sections int) (*Writer, error) {
	if sections < 0 || uint64(sections) > math.MaxUint32 {
		return nil, fmt.Errorf("simlog: invalid section count %d", sections)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return nil, fmt.Errorf("simlog: create %s: %w", path, err)
	}

	var hdr [HeaderSize]byte
	putHeader(hdr[:], uint32(sections), 0)
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("simlog: write header: %w", err)
	}

	w := &Writer{
		file:     f,
		bw:       bufio.NewWriterSize(f, max(minBufferSize, FrameSize(sections))),
		path:     path,
		sections: sections,
		lastT:    float32(math.Inf(-1)),
	}
	return w, nil
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// Sections returns the section count fixed at creation.
func (w *Writer) Sections() int {
	return w.sections
}

// Count returns the number of frames appended so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.count)
}

// Flushed returns the number of frames already on disk.
func (w *Writer) Flushed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.flushed)
}

// Append encodes one frame. When the frame does not fit in the buffer the
// buffered frames are flushed first.
func (w *Writer) Append(rec domain.FrameRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errWriterClosed
	}
	if len(rec.Sections) != w.sections {
		return fmt.Errorf("simlog: frame has %d sections, want %d", len(rec.Sections), w.sections)
	}
	if math.IsNaN(float64(rec.T)) || rec.T < w.lastT {
		return fmt.Errorf("%w: %g after %g", errNotOrdered, rec.T, w.lastT)
	}
	if w.count == math.MaxUint32 {
		return fmt.Errorf("simlog: sample count limit reached")
	}

	w.buf = appendFrame(w.buf[:0], &rec)
	if w.bw.Available() < len(w.buf) {
		if err := w.flushLocked(); err != nil {
			return err
		}
	}
	if _, err := w.bw.Write(w.buf); err != nil {
		return fmt.Errorf("simlog: write frame: %w", err)
	}
	w.count++
	w.lastT = rec.T
	return nil
}

// Flush writes the buffered frames and patches the sample count.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if w.flushed == w.count {
		return nil
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("simlog: flush: %w", err)
	}
	var cnt [4]byte
	le.PutUint32(cnt[:], w.count)
	if _, err := w.file.WriteAt(cnt[:], 4); err != nil {
		return fmt.Errorf("simlog: patch sample count: %w", err)
	}
	w.flushed = w.count
	return nil
}

// Close flushes buffered frames, patches the sample count and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	firstErr := w.flushLocked()
	if firstErr == nil {
		if err := w.file.Sync(); err != nil {
			firstErr = fmt.Errorf("simlog: sync: %w", err)
		}
	}
	if err := w.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
