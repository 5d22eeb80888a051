package interp

import (
	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

// Rho is the snap tolerance in seconds. A query within Rho of the cursor
// frame, or of either frame bracketing the query, returns that frame
// exactly (I1 == I2, Scale 0). Brackets closer together than Rho also
// blend with Scale 0, which yields the first of them.
const Rho float32 = 0.001

// Params identifies the bracketing frames and the blend between them.
type Params struct {
	I1    int
	I2    int
	Scale float32
}

// Interpolator answers per-frame queries at a cursor-relative time.
type Interpolator struct {
	frames   []domain.FrameRecord
	sections int

	it     int
	time   float32
	seeked bool
	params Params
}

// New returns an interpolator over frames, each holding exactly sections
// samples. frames must be ordered by non-decreasing timestamp and must not
// be modified afterwards.
func New(sections int, frames []domain.FrameRecord) *Interpolator {
	return &Interpolator{
		frames:   frames,
		sections: sections,
	}
}

// Sections returns the number of sections per frame.
func (p *Interpolator) Sections() int {
	return p.sections
}

// Len returns the number of frames.
func (p *Interpolator) Len() int {
	return len(p.frames)
}

// FirstTimestamp returns the timestamp of the first frame, or 0 when empty.
func (p *Interpolator) FirstTimestamp() float32 {
	if len(p.frames) == 0 {
		return 0
	}
	return p.frames[0].T
}

// LastTimestamp returns the timestamp of the last frame, or 0 when empty.
func (p *Interpolator) LastTimestamp() float32 {
	if len(p.frames) == 0 {
		return 0
	}
	return p.frames[len(p.frames)-1].T
}

// Seek moves the cursor to bracket t and makes t the current query time.
// For non-decreasing t the cursor never moves backward.
func (p *Interpolator) Seek(t float32) error {
	if len(p.frames) == 0 {
		return domain.ErrEmptySeries
	}
	last := len(p.frames) - 1

	for p.it < last && t > p.frames[p.it].T {
		p.it++
	}
	for p.it > 0 && t < p.frames[p.it-1].T {
		p.it--
	}

	p.time = t
	p.seeked = true
	p.params = p.compute()
	return nil
}

// Next steps the cursor to the following frame and sets the query time to
// its timestamp. It returns false when the cursor is already on the last
// frame. Before the first seek, Next moves to the first frame.
func (p *Interpolator) Next() bool {
	if len(p.frames) == 0 {
		return false
	}
	switch {
	case !p.seeked:
		p.it = 0
	case p.it < len(p.frames)-1:
		p.it++
	default:
		return false
	}
	p.time = p.frames[p.it].T
	p.seeked = true
	p.params = p.compute()
	return true
}

// Reset puts the cursor on the first frame.
func (p *Interpolator) Reset() {
	p.it = 0
	if len(p.frames) == 0 {
		p.seeked = false
		return
	}
	p.time = p.frames[0].T
	p.seeked = true
	p.params = p.compute()
}

// Time returns the current query time.
func (p *Interpolator) Time() float32 {
	return p.time
}

// Cursor returns the cursor index.
func (p *Interpolator) Cursor() int {
	return p.it
}

// Params returns the bracket of the current query time.
func (p *Interpolator) Params() (Params, error) {
	if !p.seeked {
		return Params{}, domain.ErrUninitializedCursor
	}
	return p.params, nil
}

// Section returns section i interpolated at the current query time.
func (p *Interpolator) Section(i int) (domain.SectionSample, error) {
	if !p.seeked {
		return domain.SectionSample{}, domain.ErrUninitializedCursor
	}
	if i < 0 || i >= p.sections {
		return domain.SectionSample{}, domain.ErrSectionOutOfRange.WithDetailsf("index %d, sections %d", i, p.sections)
	}
	a := p.frames[p.params.I1].Sections[i]
	b := p.frames[p.params.I2].Sections[i]
	return a.Lerp(b, p.params.Scale), nil
}

// HeadPose returns the head pose interpolated at the current query time.
func (p *Interpolator) HeadPose() (domain.HeadPose, error) {
	if !p.seeked {
		return domain.HeadPose{}, domain.ErrUninitializedCursor
	}
	a := p.frames[p.params.I1].Head
	b := p.frames[p.params.I2].Head
	return a.Lerp(b, p.params.Scale), nil
}

// Frame returns the whole frame interpolated at the current query time.
func (p *Interpolator) Frame() (domain.FrameRecord, error) {
	head, err := p.HeadPose()
	if err != nil {
		return domain.FrameRecord{}, err
	}
	rec := domain.FrameRecord{
		T:        p.time,
		Head:     head,
		Sections: make([]domain.SectionSample, p.sections),
	}
	for i := range rec.Sections {
		if rec.Sections[i], err = p.Section(i); err != nil {
			return domain.FrameRecord{}, err
		}
	}
	return rec, nil
}

func (p *Interpolator) compute() Params {
	last := len(p.frames) - 1
	t := p.time

	var i1, i2 int
	switch {
	case near(t, p.frames[p.it].T):
		return Params{I1: p.it, I2: p.it}
	case p.frames[p.it].T < t:
		i1, i2 = p.it, min(p.it+1, last)
	default:
		i1, i2 = max(p.it-1, 0), p.it
	}

	// The cursor may sit one past a frame the query is close to.
	if near(t, p.frames[i1].T) {
		return Params{I1: i1, I2: i1}
	}
	if near(t, p.frames[i2].T) {
		return Params{I1: i2, I2: i2}
	}

	t1, t2 := p.frames[i1].T, p.frames[i2].T
	if t2-t1 < Rho {
		return Params{I1: i1, I2: i2}
	}
	return Params{I1: i1, I2: i2, Scale: (t - t1) / (t2 - t1)}
}

func near(t, sample float32) bool {
	d := t - sample
	return d < Rho && d > -Rho
}
