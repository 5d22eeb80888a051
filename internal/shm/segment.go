package shm

import (
	"os"
)

// Segment is one mapping of the shared file.
type Segment struct {
	file   *os.File
	mem    []byte
	path   string
	region *Region
}

// Path returns the path of the mapped file.
func (s *Segment) Path() string {
	return s.path
}

// Region returns the mapped region.
func (s *Segment) Region() *Region {
	return s.region
}
