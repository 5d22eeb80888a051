package shm

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// Defaults for Options.
const (
	DefaultSpinTimeout   = 100 * time.Millisecond
	DefaultMissThreshold = 100
)

// busySpins is the number of yields before the wait starts sleeping.
const busySpins = 64

// State is the reader side of the protocol.
type State int

const (
	// StateIdle: waiting for the next writer heartbeat.
	StateIdle State = iota
	// StateWaiting: heartbeat seen, the turn was not handed over before the
	// last wait timed out. The next poll resumes the wait.
	StateWaiting
	// StateClosed: the channel is closed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Channel.
type Options struct {
	// Create creates and sizes the shared file when it is missing.
	Create bool
	// SpinTimeout bounds the wait for the writer to hand over the turn.
	SpinTimeout time.Duration
	// MissThreshold is the number of polls without a writer heartbeat
	// after which the connection is considered lost.
	MissThreshold int
	// Logger defaults to logger.Default().
	Logger logger.Logger
}

func (o *Options) applyDefaults() {
	if o.SpinTimeout <= 0 {
		o.SpinTimeout = DefaultSpinTimeout
	}
	if o.MissThreshold <= 0 {
		o.MissThreshold = DefaultMissThreshold
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
}

// Diagnostics is a raw view of the control block and the reader's state.
type Diagnostics struct {
	State          string `json:"state" yaml:"state"`
	Turn           uint32 `json:"turn" yaml:"turn"`
	ReadHeartBeat  uint32 `json:"read_heartbeat" yaml:"read_heartbeat"`
	WriteHeartBeat uint32 `json:"write_heartbeat" yaml:"write_heartbeat"`
	MsgWritten     bool   `json:"msg_written" yaml:"msg_written"`
	MsgRead        bool   `json:"msg_read" yaml:"msg_read"`
	Iteration      uint32 `json:"iteration" yaml:"iteration"`
	NumSections    uint32 `json:"num_sections" yaml:"num_sections"`
	LastIteration  uint32 `json:"last_iteration" yaml:"last_iteration"`
	Misses         int    `json:"misses" yaml:"misses"`
	LikelyLost     bool   `json:"likely_lost" yaml:"likely_lost"`
}

// Channel is the reader end of the shared-memory protocol. ReadData must be
// called from a single goroutine; Buffer, Diagnostics and
// IsConnectionLikelyLost may be called from any goroutine.
type Channel struct {
	// io serialises ReadData and Close so the region stays mapped while the
	// reader spins. mu guards the fields below seg and is never held
	// across the spin.
	io     sync.Mutex
	mu     sync.RWMutex
	seg    *Segment
	opts   Options
	buf    *SnapshotBuffer
	logger logger.Logger

	state         State
	lastWriteHB   uint32
	lastIteration uint32
	misses        int
	lost          bool
}

// Open maps the shared file at path and attaches as the reader.
func Open(path string, opts Options) (*Channel, error) {
	seg, err := OpenSegment(path, opts.Create)
	if err != nil {
		return nil, err
	}
	return newChannel(seg, opts), nil
}

func newChannel(seg *Segment, opts Options) *Channel {
	opts.applyDefaults()
	r := seg.Region()
	r.attachReader()

	c := &Channel{
		seg:           seg,
		opts:          opts,
		buf:           NewSnapshotBuffer(),
		logger:        opts.Logger.With("component", "shm", "path", seg.Path()),
		state:         StateIdle,
		lastWriteHB:   r.WriteHeartBeat(),
		lastIteration: r.Iteration(),
		lost:          true,
	}
	c.logger.Debug("attached to shared region",
		"write_heartbeat", c.lastWriteHB,
		"iteration", c.lastIteration)
	return c
}

// Buffer returns the buffer holding the last copied snapshot.
func (c *Channel) Buffer() *SnapshotBuffer {
	return c.buf
}

// State returns the protocol state.
func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ReadData polls the region once. It returns true when a new snapshot was
// copied into the buffer.
//
// Without a new writer heartbeat it returns immediately. Otherwise it waits
// at most SpinTimeout for the turn; a timeout is returned as
// domain.ErrProtocolTimeout and the wait resumes on the next call.
func (c *Channel) ReadData(ctx context.Context) (bool, error) {
	c.io.Lock()
	defer c.io.Unlock()

	if !c.beat() {
		return false, nil
	}

	claim, err := c.waitTurn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return false, domain.ErrChannelClosed
	}
	if err != nil {
		c.state = StateWaiting
		return false, err
	}
	c.state = StateIdle

	it := claim.iteration()
	if it == c.lastIteration {
		claim.release(false)
		return false, nil
	}

	snap, err := claim.snapshot()
	c.lastIteration = it
	claim.release(true)
	if err != nil {
		c.logger.Error("rejected snapshot", "iteration", it, "error", err)
		return false, err
	}

	c.buf.Store(snap)
	return true, nil
}

// beat bumps the reader heartbeat and tracks the writer's. It reports
// whether the reader should wait for the turn: the writer beat since the
// last poll, or an earlier wait timed out. A closed channel reports true so
// that ReadData returns ErrChannelClosed.
func (c *Channel) beat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return true
	}
	r := c.seg.Region()
	r.beatReader()

	hb := r.WriteHeartBeat()
	if hb != c.lastWriteHB {
		if c.lost {
			c.logger.Info("writer heartbeat detected", "write_heartbeat", hb)
		}
		c.misses = 0
		c.lost = false
		c.lastWriteHB = hb
		return true
	}

	if c.misses <= c.opts.MissThreshold {
		c.misses++
	}
	if c.misses > c.opts.MissThreshold && !c.lost {
		c.lost = true
		c.logger.Warn("writer heartbeat stopped", "polls", c.misses, "write_heartbeat", hb)
	}
	return c.state == StateWaiting
}

// waitTurn spins until the writer hands over the turn, the context ends,
// or SpinTimeout elapses.
func (c *Channel) waitTurn(ctx context.Context) (readerClaim, error) {
	c.mu.RLock()
	closed := c.state == StateClosed
	c.mu.RUnlock()
	if closed {
		return readerClaim{}, domain.ErrChannelClosed
	}

	r := c.seg.Region()
	deadline := time.Now().Add(c.opts.SpinTimeout)

	for spins := 0; ; spins++ {
		if claim, ok := r.claimRead(); ok {
			return claim, nil
		}
		if err := ctx.Err(); err != nil {
			return readerClaim{}, err
		}
		if time.Now().After(deadline) {
			return readerClaim{}, domain.ErrProtocolTimeout.WithDetailsf(
				"turn=%d msgWritten=%t after %s", r.Turn(), r.MsgWritten(), c.opts.SpinTimeout)
		}
		backoff(spins)
	}
}

func backoff(spins int) {
	if spins < busySpins {
		runtime.Gosched()
		return
	}
	time.Sleep(50 * time.Microsecond)
}

// IsConnectionLikelyLost reports whether the writer heartbeat has been
// unchanged for more than MissThreshold consecutive polls. It is true until
// the first heartbeat is observed.
func (c *Channel) IsConnectionLikelyLost() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lost
}

// Diagnostics returns the live control block.
func (c *Channel) Diagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := Diagnostics{
		State:         c.state.String(),
		LastIteration: c.lastIteration,
		Misses:        c.misses,
		LikelyLost:    c.lost,
	}
	if c.state == StateClosed {
		return d
	}
	r := c.seg.Region()
	d.Turn = r.Turn()
	d.ReadHeartBeat = r.ReadHeartBeat()
	d.WriteHeartBeat = r.WriteHeartBeat()
	d.MsgWritten = r.MsgWritten()
	d.MsgRead = r.MsgRead()
	d.Iteration = r.Iteration()
	d.NumSections = r.NumSections()
	return d
}

// Close unmaps the region. The last snapshot stays readable.
func (c *Channel) Close() error {
	c.io.Lock()
	defer c.io.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	return c.seg.Close()
}
