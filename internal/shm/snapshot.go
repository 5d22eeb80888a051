package shm

import (
	"sync/atomic"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// SnapshotBuffer holds the most recently copied snapshot. Store replaces
// it wholesale, so readers on other goroutines always see a complete
// snapshot.
type SnapshotBuffer struct {
	cur atomic.Pointer[domain.Snapshot]
}

// NewSnapshotBuffer returns an empty buffer.
func NewSnapshotBuffer() *SnapshotBuffer {
	return &SnapshotBuffer{}
}

// Store replaces the held snapshot. s must not be modified afterwards.
func (b *SnapshotBuffer) Store(s *domain.Snapshot) {
	b.cur.Store(s)
}

// Load returns the held snapshot, or nil before the first Store. The
// result is shared and must be treated as read-only.
func (b *SnapshotBuffer) Load() *domain.Snapshot {
	return b.cur.Load()
}

// HasData reports whether a snapshot has been stored.
func (b *SnapshotBuffer) HasData() bool {
	return b.cur.Load() != nil
}

// NumberOfSections returns the section count of the held snapshot.
func (b *SnapshotBuffer) NumberOfSections() int {
	if s := b.cur.Load(); s != nil {
		return int(s.NumSections)
	}
	return 0
}

// Iteration returns the iteration of the held snapshot.
func (b *SnapshotBuffer) Iteration() uint32 {
	if s := b.cur.Load(); s != nil {
		return s.Iteration
	}
	return 0
}

// HeadPose returns the head pose of the held snapshot.
func (b *SnapshotBuffer) HeadPose() (domain.HeadPose, error) {
	s := b.cur.Load()
	if s == nil {
		return domain.HeadPose{}, domain.ErrNoData
	}
	return s.Head, nil
}

// Section returns section i of the held snapshot.
func (b *SnapshotBuffer) Section(i int) (domain.SectionSample, error) {
	s := b.cur.Load()
	if s == nil {
		return domain.SectionSample{}, domain.ErrNoData
	}
	if i < 0 || i >= len(s.Sections) {
		return domain.SectionSample{}, domain.ErrSectionOutOfRange.WithDetailsf(
			"index %d, sections %d", i, len(s.Sections))
	}
	return s.Sections[i], nil
}
