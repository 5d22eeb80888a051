package shm

import (
	"context"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// Publisher is the writer end of the protocol, the side a simulation
// implements. It is used by the simulate command and by tests.
type Publisher struct {
	mu          sync.Mutex
	seg         *Segment
	spinTimeout time.Duration
	closed      bool
}

// OpenPublisher maps the shared file at path as the writer. The file is
// created when missing.
func OpenPublisher(path string, spinTimeout time.Duration) (*Publisher, error) {
	seg, err := OpenSegment(path, true)
	if err != nil {
		return nil, err
	}
	return newPublisher(seg, spinTimeout), nil
}

func newPublisher(seg *Segment, spinTimeout time.Duration) *Publisher {
	if spinTimeout <= 0 {
		spinTimeout = DefaultSpinTimeout
	}
	return &Publisher{seg: seg, spinTimeout: spinTimeout}
}

// Publish waits for the reader to release the region, writes one snapshot
// and hands the turn over. It returns the published iteration.
func (p *Publisher) Publish(ctx context.Context, head domain.HeadPose, sections []domain.SectionSample) (uint32, error) {
	if len(sections) > domain.MaxSections {
		return 0, domain.ErrProtocolViolation.WithDetailsf(
			"%d sections exceed capacity %d", len(sections), domain.MaxSections)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, domain.ErrChannelClosed
	}

	r := p.seg.Region()
	deadline := time.Now().Add(p.spinTimeout)
	for spins := 0; ; spins++ {
		if claim, ok := r.claimWrite(); ok {
			return claim.publish(head, sections), nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if time.Now().After(deadline) {
			return 0, domain.ErrProtocolTimeout.WithDetailsf(
				"turn=%d msgRead=%t after %s", r.Turn(), r.MsgRead(), p.spinTimeout)
		}
		backoff(spins)
	}
}

// ReaderHeartBeat returns the reader heartbeat, for liveness checks on the
// writer side.
func (p *Publisher) ReaderHeartBeat() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return p.seg.Region().ReadHeartBeat()
}

// Close unmaps the region.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.seg.Close()
}
