package simlog

import (
	"encoding/binary"
	"math"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// Layout constants.
const (
	// HeaderSize is sectionCount (4) + sampleCount (4).
	HeaderSize = 8

	// FrameHeaderSize is t, headX, headY, headAngle as f32.
	FrameHeaderSize = 4 * 4

	// SectionSize is the nine f32 fields of one section.
	SectionSize = domain.SectionFieldCount * 4
)

// FrameSize returns the encoded size of one sample with n sections.
func FrameSize(n int) int {
	return FrameHeaderSize + n*SectionSize
}

// EncodedSize returns the size of a whole log with n sections and m samples.
func EncodedSize(n, m uint32) uint64 {
	return HeaderSize + uint64(m)*(FrameHeaderSize+uint64(n)*SectionSize)
}

var le = binary.LittleEndian

func putHeader(buf []byte, sections, samples uint32) {
	le.PutUint32(buf[0:4], sections)
	le.PutUint32(buf[4:8], samples)
}

func parseHeader(buf []byte) (sections, samples uint32) {
	return le.Uint32(buf[0:4]), le.Uint32(buf[4:8])
}

func putF32(buf []byte, v float32) {
	le.PutUint32(buf, math.Float32bits(v))
}

func getF32(buf []byte) float32 {
	return math.Float32frombits(le.Uint32(buf))
}

// appendFrame appends the encoded record to buf.
func appendFrame(buf []byte, rec *domain.FrameRecord) []byte {
	off := len(buf)
	buf = append(buf, make([]byte, FrameSize(len(rec.Sections)))...)
	b := buf[off:]

	putF32(b[0:], rec.T)
	putF32(b[4:], rec.Head.X)
	putF32(b[8:], rec.Head.Y)
	putF32(b[12:], rec.Head.Angle)

	p := FrameHeaderSize
	for i := range rec.Sections {
		for _, v := range rec.Sections[i].Fields() {
			putF32(b[p:], v)
			p += 4
		}
	}
	return buf
}

// decodeFrame decodes one frame from b into rec; rec.Sections must already
// have length n.
func decodeFrame(b []byte, rec *domain.FrameRecord) {
	rec.T = getF32(b[0:])
	rec.Head = domain.HeadPose{
		X:     getF32(b[4:]),
		Y:     getF32(b[8:]),
		Angle: getF32(b[12:]),
	}

	p := FrameHeaderSize
	for i := range rec.Sections {
		var f [domain.SectionFieldCount]float32
		for j := range f {
			f[j] = getF32(b[p:])
			p += 4
		}
		rec.Sections[i] = domain.SectionFromFields(f)
	}
}
