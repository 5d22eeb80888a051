package relay

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/service"
)

// Envelope is the JSON message sent to consumers.
type Envelope struct {
	Stream string    `json:"stream"`
	Seq    uint64    `json:"seq"`
	SentAt time.Time `json:"sent_at"`
	service.FrameEvent
}

// encoder stamps events with the stream ID and a sequence number.
type encoder struct {
	stream string
	seq    atomic.Uint64
	now    func() time.Time
}

func newEncoder(stream string) *encoder {
	return &encoder{stream: stream, now: time.Now}
}

// encode marshals ev. A frame holding NaN or Inf cannot be encoded as JSON
// and is reported as an error.
func (e *encoder) encode(ev service.FrameEvent) ([]byte, error) {
	env := Envelope{
		Stream:     e.stream,
		Seq:        e.seq.Add(1),
		SentAt:     e.now().UTC(),
		FrameEvent: ev,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("relay: encode iteration %d: %w", ev.Iteration, err)
	}
	return data, nil
}

// gate drops update events above a frame rate.
type gate struct {
	limiter *rate.Limiter
}

// newGate returns a gate for maxRate frames per second. Zero disables it.
func newGate(maxRate float64) gate {
	if maxRate <= 0 {
		return gate{}
	}
	return gate{limiter: rate.NewLimiter(rate.Limit(maxRate), 1)}
}

func (g gate) allow(ev service.FrameEvent) bool {
	if g.limiter == nil || ev.Kind == service.EventReset {
		return true
	}
	return g.limiter.Allow()
}
