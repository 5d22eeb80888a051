//go:build linux || darwin || freebsd

package shm

import (
	"errors"
	"io/fs"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// FilePerm is the mode of a shared file created on open. Both processes may
// run as different users.
const FilePerm = 0666

// OpenSegment maps the shared file at path. When create is set a missing
// or short file is created and sized to the region.
func OpenSegment(path string, create bool) (*Segment, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}

	file, err := os.OpenFile(path, flags, FilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrMappingFailure.WithDetailsf("%s does not exist", path).WithCause(err)
		}
		return nil, domain.ErrMappingFailure.WithDetails(path).WithCause(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, domain.ErrMappingFailure.WithDetails(path).WithCause(err)
	}
	if info.IsDir() {
		file.Close()
		return nil, domain.ErrMappingFailure.WithDetailsf("%s is a directory", path)
	}

	if size := info.Size(); size < int64(RegionSize) {
		if !create {
			file.Close()
			return nil, domain.ErrMappingFailure.WithDetailsf(
				"%s is %d bytes, region needs %d", path, size, RegionSize)
		}
		if err := file.Truncate(int64(RegionSize)); err != nil {
			file.Close()
			return nil, domain.ErrMappingFailure.WithDetailsf("resize %s", path).WithCause(err)
		}
	}

	mem, err := unix.Mmap(int(file.Fd()), 0, RegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, domain.ErrMappingFailure.WithDetailsf("mmap %s", path).WithCause(err)
	}

	return &Segment{
		file:   file,
		mem:    mem,
		path:   path,
		region: (*Region)(unsafe.Pointer(&mem[0])),
	}, nil
}

// Close flushes and unmaps the region and closes the file.
func (s *Segment) Close() error {
	if s.mem == nil {
		return nil
	}

	var firstErr error
	if err := unix.Msync(s.mem, unix.MS_SYNC); err != nil {
		firstErr = err
	}
	if err := unix.Munmap(s.mem); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.mem = nil
	s.region = nil
	return firstErr
}
