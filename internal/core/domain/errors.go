package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a coded snakeview error. Codes have the form SR-<AREA>-<NNNN>;
// two errors match under errors.Is when their codes are equal, whatever
// their details.
type Error struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		b.WriteString(": " + e.Details)
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithDetailsf is WithDetails with a format string.
func (e *Error) WithDetailsf(format string, args ...any) *Error {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// Area returns the AREA part of the code, such as "FILE" or "SHM".
func (e *Error) Area() string {
	parts := strings.Split(e.Code, "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRecoverable reports whether the caller may simply retry the operation on
// its next tick. Only protocol timeouts qualify.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProtocolTimeout)
}

// Process exit statuses by error area.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitFile    = 3
	ExitShm     = 4
	ExitQuery   = 5
)

// ExitCode maps err to the process exit status: the area of a coded error
// selects it, anything else is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if !errors.As(err, &e) {
		return ExitFailure
	}
	switch e.Area() {
	case "FILE":
		return ExitFile
	case "SHM":
		return ExitShm
	case "SEEK", "SRC":
		return ExitQuery
	default:
		return ExitFailure
	}
}

// Recorded log file errors.
var (
	ErrFileNotFound   = newError("SR-FILE-4040", "log file not found")
	ErrFileUnreadable = newError("SR-FILE-4030", "log file unreadable")

	// ErrMalformedFile covers a truncated or inconsistent log.
	ErrMalformedFile = newError("SR-FILE-4220", "malformed log file")
)

// Shared memory errors.
var (
	ErrMappingFailure = newError("SR-SHM-5030", "shared memory mapping failed")

	// ErrProtocolTimeout means the writer did not hand over the turn in
	// time. Retry on the next poll.
	ErrProtocolTimeout = newError("SR-SHM-5040", "protocol wait timed out")

	// ErrProtocolViolation means the region holds a value the protocol
	// forbids, such as a section count beyond capacity.
	ErrProtocolViolation = newError("SR-SHM-4220", "protocol violation")

	ErrChannelClosed = newError("SR-SHM-4100", "channel closed")
)

// Query errors.
var (
	// ErrUninitializedCursor means a getter ran before the first seek.
	ErrUninitializedCursor = newError("SR-SEEK-4120", "cursor not initialized, seek first")
	ErrEmptySeries         = newError("SR-SEEK-4040", "time series is empty")
	ErrSectionOutOfRange   = newError("SR-SEEK-4000", "section index out of range")

	ErrNotSeekable = newError("SR-SRC-4050", "source is not seekable")

	// ErrNoData means a live source has not received a snapshot yet.
	ErrNoData = newError("SR-SRC-4041", "no snapshot received yet")
)

// ErrInternal is an unexpected failure, such as a recovered panic.
var ErrInternal = newError("SR-SYS-5000", "internal error")
