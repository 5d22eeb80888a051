//go:build !(linux || darwin || freebsd)

package shm

import (
	"runtime"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// FilePerm is the mode of a shared file created on open.
const FilePerm = 0666

// OpenSegment is not supported on this platform.
func OpenSegment(path string, create bool) (*Segment, error) {
	return nil, domain.ErrMappingFailure.WithDetailsf("shared memory is not supported on %s", runtime.GOOS)
}

// Close is a no-op on this platform.
func (s *Segment) Close() error {
	return nil
}
