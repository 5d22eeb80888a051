package service

import (
	"context"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/interp"
	"github.com/Herman-H/Snake-Robot-Display/internal/shm"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
)

// FrameSource is the query surface a visualiser reads each frame from.
type FrameSource interface {
	// NumberOfSections returns the section count of the current frame.
	NumberOfSections() int

	// Iteration returns the cursor of a recorded log or the writer's
	// publish counter of a live region.
	Iteration() uint32

	// HeadPose returns the head pose of the current frame.
	HeadPose() (domain.HeadPose, error)

	// Section returns section i of the current frame.
	Section(i int) (domain.SectionSample, error)

	// IsConnectionLikelyLost reports a stalled producer. It is advisory.
	IsConnectionLikelyLost() bool

	// LastTimestamp returns the latest timestamp the source can serve.
	LastTimestamp() float32

	// SeekToTime moves the current frame to time t.
	SeekToTime(t float32) error

	// Frame returns the whole current frame.
	Frame() (domain.FrameRecord, error)
}

var (
	_ FrameSource = (*FileSource)(nil)
	_ FrameSource = (*LiveSource)(nil)
)

// ============================================================================
// Recorded log
// ============================================================================

// FileSource serves interpolated frames from a recorded log.
type FileSource struct {
	mu     sync.Mutex
	path   string
	series *simlog.Series
	ip     *interp.Interpolator
}

// OpenFile loads the log at path.
func OpenFile(path string) (*FileSource, error) {
	series, err := simlog.Open(path)
	if err != nil {
		return nil, err
	}
	src := NewFileSource(series)
	src.path = path
	return src, nil
}

// NewFileSource wraps an already decoded series.
func NewFileSource(series *simlog.Series) *FileSource {
	return &FileSource{
		series: series,
		ip:     interp.New(series.Sections, series.Frames),
	}
}

// Path returns the file the source was loaded from, if any.
func (s *FileSource) Path() string {
	return s.path
}

// Len returns the number of recorded samples.
func (s *FileSource) Len() int {
	return s.series.Len()
}

// FirstTimestamp returns the timestamp of the first sample.
func (s *FileSource) FirstTimestamp() float32 {
	return s.series.FirstTimestamp()
}

// NumberOfSections returns the section count of the log.
func (s *FileSource) NumberOfSections() int {
	return s.series.Sections
}

// Iteration returns the interpolation cursor.
func (s *FileSource) Iteration() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.ip.Cursor())
}

// HeadPose returns the interpolated head pose.
func (s *FileSource) HeadPose() (domain.HeadPose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip.HeadPose()
}

// Section returns interpolated section i.
func (s *FileSource) Section(i int) (domain.SectionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip.Section(i)
}

// IsConnectionLikelyLost is always false for a recorded log.
func (s *FileSource) IsConnectionLikelyLost() bool {
	return false
}

// LastTimestamp returns the timestamp of the last sample.
func (s *FileSource) LastTimestamp() float32 {
	return s.series.LastTimestamp()
}

// SeekToTime moves the interpolation cursor to t.
func (s *FileSource) SeekToTime(t float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip.Seek(t)
}

// Frame returns the interpolated frame at the last seek time.
func (s *FileSource) Frame() (domain.FrameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip.Frame()
}

// FrameAt seeks to t and returns the interpolated frame as one step.
func (s *FileSource) FrameAt(t float32) (domain.FrameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ip.Seek(t); err != nil {
		return domain.FrameRecord{}, err
	}
	return s.ip.Frame()
}

// Params returns the bracket of the last seek.
func (s *FileSource) Params() (interp.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip.Params()
}

// ============================================================================
// Live region
// ============================================================================

// Channel is the reader end of the shared region used by LiveSource.
type Channel interface {
	ReadData(ctx context.Context) (bool, error)
	Buffer() *shm.SnapshotBuffer
	IsConnectionLikelyLost() bool
}

// LiveSource serves the last snapshot copied from a shared region. Frame
// timestamps are seconds since the source was created, taken when a
// snapshot arrives.
type LiveSource struct {
	ch    Channel
	buf   *shm.SnapshotBuffer
	start time.Time
	now   func() time.Time

	mu    sync.RWMutex
	lastT float32
}

// NewLiveSource wraps ch.
func NewLiveSource(ch Channel) *LiveSource {
	return newLiveSource(ch, time.Now)
}

func newLiveSource(ch Channel, now func() time.Time) *LiveSource {
	return &LiveSource{
		ch:    ch,
		buf:   ch.Buffer(),
		start: now(),
		now:   now,
	}
}

// Poll reads the region once. It reports whether a new snapshot arrived.
func (s *LiveSource) Poll(ctx context.Context) (bool, error) {
	ok, err := s.ch.ReadData(ctx)
	if ok {
		t := float32(s.now().Sub(s.start).Seconds())
		s.mu.Lock()
		s.lastT = t
		s.mu.Unlock()
	}
	return ok, err
}

// Snapshot returns the held snapshot, or nil before the first one.
func (s *LiveSource) Snapshot() *domain.Snapshot {
	return s.buf.Load()
}

// NumberOfSections returns the section count of the held snapshot.
func (s *LiveSource) NumberOfSections() int {
	return s.buf.NumberOfSections()
}

// Iteration returns the writer's publish counter of the held snapshot.
func (s *LiveSource) Iteration() uint32 {
	return s.buf.Iteration()
}

// HeadPose returns the head pose of the held snapshot.
func (s *LiveSource) HeadPose() (domain.HeadPose, error) {
	return s.buf.HeadPose()
}

// Section returns section i of the held snapshot.
func (s *LiveSource) Section(i int) (domain.SectionSample, error) {
	return s.buf.Section(i)
}

// IsConnectionLikelyLost reports whether the writer heartbeat stalled.
func (s *LiveSource) IsConnectionLikelyLost() bool {
	return s.ch.IsConnectionLikelyLost()
}

// LastTimestamp returns the arrival time of the held snapshot.
func (s *LiveSource) LastTimestamp() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastT
}

// SeekToTime fails: a live region only holds the latest snapshot.
func (s *LiveSource) SeekToTime(t float32) error {
	return domain.ErrNotSeekable.WithDetailsf("live source cannot seek to %g", t)
}

// Frame returns the held snapshot stamped with its arrival time.
func (s *LiveSource) Frame() (domain.FrameRecord, error) {
	snap := s.buf.Load()
	if snap == nil {
		return domain.FrameRecord{}, domain.ErrNoData
	}
	return snap.Frame(s.LastTimestamp()), nil
}
