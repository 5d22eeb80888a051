package simlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// maxPrealloc caps the number of sections allocated up front when the
// declared size cannot be checked against a file length.
const maxPrealloc = 1 << 16

// Series is an immutable, time-ordered sequence of frames that all carry
// exactly Sections samples.
type Series struct {
	Sections int
	Frames   []domain.FrameRecord
}

// Len returns the number of frames.
func (s *Series) Len() int {
	return len(s.Frames)
}

// FirstTimestamp returns the timestamp of the first frame, or 0 when empty.
func (s *Series) FirstTimestamp() float32 {
	if len(s.Frames) == 0 {
		return 0
	}
	return s.Frames[0].T
}

// LastTimestamp returns the timestamp of the last frame, or 0 when empty.
func (s *Series) LastTimestamp() float32 {
	if len(s.Frames) == 0 {
		return 0
	}
	return s.Frames[len(s.Frames)-1].T
}

// Open reads and validates the log at path.
func Open(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrFileNotFound.WithDetails(path).WithCause(err)
		}
		return nil, domain.ErrFileUnreadable.WithDetails(path).WithCause(err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, domain.ErrFileUnreadable.WithDetails(path).WithCause(err)
	}
	if stat.IsDir() {
		return nil, domain.ErrFileUnreadable.WithDetailsf("%s is a directory", path)
	}

	return decode(bufio.NewReader(f), stat.Size())
}

// Decode reads a log from r. Without a known length the declared sample
// count is trusted until the stream ends early.
func Decode(r io.Reader) (*Series, error) {
	return decode(r, -1)
}

func decode(r io.Reader, size int64) (*Series, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, readError("header", err)
	}
	n, m := parseHeader(hdr[:])

	if size >= 0 {
		want := EncodedSize(n, m)
		switch {
		case uint64(size) < want:
			return nil, domain.ErrMalformedFile.WithDetailsf(
				"truncated: header declares %d samples of %d sections (%d bytes), file has %d bytes",
				m, n, want, size)
		case uint64(size) > want:
			return nil, domain.ErrMalformedFile.WithDetailsf(
				"%d trailing bytes after %d samples", uint64(size)-want, m)
		}
	}

	frameCap, sectionCap := uint64(m), uint64(n)*uint64(m)
	if size < 0 {
		frameCap = min(frameCap, maxPrealloc)
		sectionCap = min(sectionCap, maxPrealloc)
	}
	series := &Series{
		Sections: int(n),
		Frames:   make([]domain.FrameRecord, 0, frameCap),
	}
	backing := make([]domain.SectionSample, 0, sectionCap)

	buf := make([]byte, FrameSize(int(n)))
	prev := float32(math.Inf(-1))
	for i := uint32(0); i < m; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, readError(fmt.Sprintf("sample %d of %d", i, m), err)
		}

		start := len(backing)
		for j := uint32(0); j < n; j++ {
			backing = append(backing, domain.SectionSample{})
		}
		rec := domain.FrameRecord{Sections: backing[start:len(backing):len(backing)]}
		decodeFrame(buf, &rec)

		if math.IsNaN(float64(rec.T)) {
			return nil, domain.ErrMalformedFile.WithDetailsf("sample %d has a NaN timestamp", i)
		}
		if rec.T < prev {
			return nil, domain.ErrMalformedFile.WithDetailsf(
				"sample %d timestamp %g precedes previous %g", i, rec.T, prev)
		}
		prev = rec.T
		series.Frames = append(series.Frames, rec)
	}

	return series, nil
}

func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.ErrMalformedFile.WithDetailsf("short read in %s", what).WithCause(err)
	}
	return domain.ErrFileUnreadable.WithDetails(what).WithCause(err)
}
