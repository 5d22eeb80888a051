package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// RegionSize is the size in bytes of the shared region.
const RegionSize = int(unsafe.Sizeof(Region{}))

// Region is the layout of the shared file. It is only ever used through a
// pointer into mapped memory.
type Region struct {
	turn           uint32                                   // 0x00: 0 = writer's turn, nonzero = reader may claim
	readHeartBeat  uint32                                   // 0x04: bumped by the reader on every poll
	writeHeartBeat uint32                                   // 0x08: bumped by the writer on every publish
	msgWritten     uint32                                   // 0x0C: writer finished this cycle
	msgRead        uint32                                   // 0x10: reader finished, region free for writer
	iteration      uint32                                   // 0x14: publish counter
	numSections    uint32                                   // 0x18
	headX          float32                                  // 0x1C
	headY          float32                                  // 0x20
	headAngle      float32                                  // 0x24
	sections       [domain.MaxSections]domain.SectionSample // 0x28: tail beyond numSections unused
}

// Turn returns the turn token.
func (r *Region) Turn() uint32 { return atomic.LoadUint32(&r.turn) }

// ReadHeartBeat returns the reader heartbeat.
func (r *Region) ReadHeartBeat() uint32 { return atomic.LoadUint32(&r.readHeartBeat) }

// WriteHeartBeat returns the writer heartbeat.
func (r *Region) WriteHeartBeat() uint32 { return atomic.LoadUint32(&r.writeHeartBeat) }

// MsgWritten reports whether the writer finished publishing.
func (r *Region) MsgWritten() bool { return atomic.LoadUint32(&r.msgWritten) != 0 }

// MsgRead reports whether the reader released the region.
func (r *Region) MsgRead() bool { return atomic.LoadUint32(&r.msgRead) != 0 }

// Iteration returns the live publish counter.
func (r *Region) Iteration() uint32 { return atomic.LoadUint32(&r.iteration) }

// NumSections returns the live section count.
func (r *Region) NumSections() uint32 { return atomic.LoadUint32(&r.numSections) }

// attachReader puts the region in the reader's initial state.
func (r *Region) attachReader() {
	atomic.StoreUint32(&r.turn, 0)
	atomic.StoreUint32(&r.msgRead, 1)
	atomic.AddUint32(&r.readHeartBeat, 1)
}

func (r *Region) beatReader() {
	atomic.AddUint32(&r.readHeartBeat, 1)
}

// readerClaim is the reader's exclusive view of the payload.
type readerClaim struct {
	r *Region
}

// claimRead takes the payload if the writer handed the turn over.
func (r *Region) claimRead() (readerClaim, bool) {
	if !r.MsgWritten() || r.Turn() == 0 {
		return readerClaim{}, false
	}
	atomic.StoreUint32(&r.msgRead, 0)
	return readerClaim{r: r}, true
}

func (c readerClaim) iteration() uint32 {
	return atomic.LoadUint32(&c.r.iteration)
}

// snapshot copies the payload. A section count beyond capacity is a
// protocol violation and nothing is copied.
func (c readerClaim) snapshot() (*domain.Snapshot, error) {
	n := atomic.LoadUint32(&c.r.numSections)
	if n > domain.MaxSections {
		return nil, domain.ErrProtocolViolation.WithDetailsf(
			"numSections %d exceeds capacity %d", n, domain.MaxSections)
	}
	s := &domain.Snapshot{
		Iteration:   atomic.LoadUint32(&c.r.iteration),
		NumSections: n,
		Head:        domain.HeadPose{X: c.r.headX, Y: c.r.headY, Angle: c.r.headAngle},
		Sections:    make([]domain.SectionSample, n),
	}
	copy(s.Sections, c.r.sections[:n])
	return s, nil
}

// release frees the region. With handBack the turn returns to the writer.
func (c readerClaim) release(handBack bool) {
	atomic.StoreUint32(&c.r.msgRead, 1)
	if handBack {
		atomic.StoreUint32(&c.r.turn, 0)
	}
}

// writerClaim is the writer's exclusive view of the payload.
type writerClaim struct {
	r *Region
}

// claimWrite takes the payload if the reader released it.
func (r *Region) claimWrite() (writerClaim, bool) {
	if r.Turn() != 0 || !r.MsgRead() {
		return writerClaim{}, false
	}
	atomic.StoreUint32(&r.msgWritten, 0)
	return writerClaim{r: r}, true
}

// publish writes the payload and hands the turn to the reader. It returns
// the new iteration.
func (c writerClaim) publish(head domain.HeadPose, sections []domain.SectionSample) uint32 {
	r := c.r
	r.headX, r.headY, r.headAngle = head.X, head.Y, head.Angle
	copy(r.sections[:], sections)
	atomic.StoreUint32(&r.numSections, uint32(len(sections)))

	it := atomic.AddUint32(&r.iteration, 1)
	atomic.StoreUint32(&r.msgWritten, 1)
	atomic.AddUint32(&r.writeHeartBeat, 1)
	atomic.StoreUint32(&r.turn, 1)
	return it
}
