package domain

import "math"

// MaxSections is the fixed section capacity of the shared-memory region.
const MaxSections = 100

// SectionFieldCount is the number of float32 fields in a SectionSample.
const SectionFieldCount = 9

// SectionSample holds the state of one segment joint. Field order and width
// match the binary formats exactly; do not reorder.
type SectionSample struct {
	X      float32 `json:"x" yaml:"x"`
	Y      float32 `json:"y" yaml:"y"`
	Phi    float32 `json:"phi" yaml:"phi"`
	DX     float32 `json:"dx" yaml:"dx"`
	DY     float32 `json:"dy" yaml:"dy"`
	DPhi   float32 `json:"d_phi" yaml:"d_phi"`
	FResX  float32 `json:"f_res_x" yaml:"f_res_x"`
	FResY  float32 `json:"f_res_y" yaml:"f_res_y"`
	Torque float32 `json:"torque" yaml:"torque"`
}

// Fields returns the sample as an array in wire order.
func (s SectionSample) Fields() [SectionFieldCount]float32 {
	return [SectionFieldCount]float32{s.X, s.Y, s.Phi, s.DX, s.DY, s.DPhi, s.FResX, s.FResY, s.Torque}
}

// SectionFromFields builds a sample from an array in wire order.
func SectionFromFields(f [SectionFieldCount]float32) SectionSample {
	return SectionSample{
		X: f[0], Y: f[1], Phi: f[2],
		DX: f[3], DY: f[4], DPhi: f[5],
		FResX: f[6], FResY: f[7], Torque: f[8],
	}
}

// Lerp interpolates every field independently: a + scale*(b-a).
func (s SectionSample) Lerp(b SectionSample, scale float32) SectionSample {
	af, bf := s.Fields(), b.Fields()
	var out [SectionFieldCount]float32
	for i := range af {
		out[i] = lerp(af[i], bf[i], scale)
	}
	return SectionFromFields(out)
}

// HeadPose is the position and heading angle of the robot head.
type HeadPose struct {
	X     float32 `json:"x" yaml:"x"`
	Y     float32 `json:"y" yaml:"y"`
	Angle float32 `json:"angle" yaml:"angle"`
}

// Lerp interpolates each component independently.
func (p HeadPose) Lerp(b HeadPose, scale float32) HeadPose {
	return HeadPose{
		X:     lerp(p.X, b.X, scale),
		Y:     lerp(p.Y, b.Y, scale),
		Angle: lerp(p.Angle, b.Angle, scale),
	}
}

// FrameRecord is one recorded sample of the whole robot.
type FrameRecord struct {
	T        float32         `json:"t" yaml:"t"`
	Head     HeadPose        `json:"head" yaml:"head"`
	Sections []SectionSample `json:"sections" yaml:"sections"`
}

// Snapshot is a private copy of the shared region's payload.
type Snapshot struct {
	Iteration   uint32          `json:"iteration" yaml:"iteration"`
	NumSections uint32          `json:"num_sections" yaml:"num_sections"`
	Head        HeadPose        `json:"head" yaml:"head"`
	Sections    []SectionSample `json:"sections" yaml:"sections"`
}

// Frame converts the snapshot into a FrameRecord at time t.
func (s *Snapshot) Frame(t float32) FrameRecord {
	sections := make([]SectionSample, len(s.Sections))
	copy(sections, s.Sections)
	return FrameRecord{T: t, Head: s.Head, Sections: sections}
}

// lerp returns a + scale*(b-a). The endpoints are returned as is so that
// scale 0 and 1 reproduce the recorded values bit for bit.
func lerp(a, b, scale float32) float32 {
	switch scale {
	case 0:
		return a
	case 1:
		return b
	}
	return a + scale*(b-a)
}

// Aggregates summarises a set of sections in raw simulation units.
type Aggregates struct {
	CenterX   float32 `json:"center_x" yaml:"center_x"`
	CenterY   float32 `json:"center_y" yaml:"center_y"`
	VelocityX float32 `json:"velocity_x" yaml:"velocity_x"`
	VelocityY float32 `json:"velocity_y" yaml:"velocity_y"`
	ForceX    float32 `json:"force_x" yaml:"force_x"`
	ForceY    float32 `json:"force_y" yaml:"force_y"`
	Tangent   float32 `json:"tangent" yaml:"tangent"`
	NetTorque float32 `json:"net_torque" yaml:"net_torque"`
}

// Aggregate computes the centre of mass (mean position), mean velocity,
// total resultant force, heading tangent of the mean velocity and the summed
// joint torque. An empty slice yields the zero value.
func Aggregate(sections []SectionSample) Aggregates {
	var a Aggregates
	if len(sections) == 0 {
		return a
	}
	f := 1 / float32(len(sections))
	for _, s := range sections {
		a.CenterX += f * s.X
		a.CenterY += f * s.Y
		a.VelocityX += f * s.DX
		a.VelocityY += f * s.DY
		a.ForceX += s.FResX
		a.ForceY += s.FResY
		a.NetTorque += s.Torque
	}
	a.Tangent = float32(math.Atan2(float64(a.VelocityY), float64(a.VelocityX)))
	return a
}
