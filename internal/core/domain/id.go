package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID prefixes.
const (
	RecordingIDPrefix = "rec-"
	StreamIDPrefix    = "run-"
	RequestIDPrefix   = "req-"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// GenerateRecordingID returns an ID for a recording file.
// Format: rec-{ulid_lowercase}.
func GenerateRecordingID() string {
	return newID(RecordingIDPrefix)
}

// GenerateStreamID returns an ID identifying one replay or listen run to
// relay consumers. Format: run-{ulid_lowercase}.
func GenerateStreamID() string {
	return newID(StreamIDPrefix)
}

// GenerateRequestID returns an ID for an HTTP request.
// Format: req-{ulid_lowercase}.
func GenerateRequestID() string {
	return newID(RequestIDPrefix)
}

// newID builds a prefixed, lexically time-ordered ID.
func newID(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(timeNow()), ulid.Monotonic(rand.Reader, 0))
	return prefix + strings.ToLower(id.String())
}
