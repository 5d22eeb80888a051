package domain

import (
	"math"
	"testing"
)

func sample(base float32) SectionSample {
	return SectionSample{
		X: base, Y: base + 1, Phi: base + 2,
		DX: base + 3, DY: base + 4, DPhi: base + 5,
		FResX: base + 6, FResY: base + 7, Torque: base + 8,
	}
}

func TestSectionSample_FieldsRoundTrip(t *testing.T) {
	s := sample(10)
	f := s.Fields()
	want := [SectionFieldCount]float32{10, 11, 12, 13, 14, 15, 16, 17, 18}
	if f != want {
		t.Fatalf("Fields() = %v, want %v", f, want)
	}
	if got := SectionFromFields(f); got != s {
		t.Fatalf("SectionFromFields(Fields()) = %+v, want %+v", got, s)
	}
}

func TestSectionSample_Lerp(t *testing.T) {
	a, b := sample(0), sample(4)

	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Lerp(0) = %+v, want %+v", got, a)
	}
	if got := a.Lerp(b, 1); got != b {
		t.Errorf("Lerp(1) = %+v, want %+v", got, b)
	}
	if got, want := a.Lerp(b, 0.5), sample(2); got != want {
		t.Errorf("Lerp(0.5) = %+v, want %+v", got, want)
	}
	// Values beyond the bracket extrapolate.
	if got, want := a.Lerp(b, 2), sample(8); got != want {
		t.Errorf("Lerp(2) = %+v, want %+v", got, want)
	}
}

func TestLerp_EndpointsExactForAwkwardValues(t *testing.T) {
	a := float32(0.1)
	b := float32(1e8)
	if got := lerp(a, b, 1); got != b {
		t.Errorf("lerp(a, b, 1) = %v, want %v", got, b)
	}
	if got := lerp(a, b, 0); got != a {
		t.Errorf("lerp(a, b, 0) = %v, want %v", got, a)
	}
}

func TestHeadPose_Lerp(t *testing.T) {
	a := HeadPose{X: 0, Y: 2, Angle: -1}
	b := HeadPose{X: 2, Y: 4, Angle: 1}
	want := HeadPose{X: 1, Y: 3, Angle: 0}
	if got := a.Lerp(b, 0.5); got != want {
		t.Errorf("Lerp(0.5) = %+v, want %+v", got, want)
	}
}

func TestSnapshot_FrameCopiesSections(t *testing.T) {
	snap := &Snapshot{
		Iteration:   7,
		NumSections: 1,
		Head:        HeadPose{X: 1},
		Sections:    []SectionSample{sample(1)},
	}
	f := snap.Frame(0.25)
	f.Sections[0].X = 99
	if snap.Sections[0].X != 1 {
		t.Error("Frame() must not alias the snapshot's sections")
	}
	if f.T != 0.25 || f.Head != snap.Head {
		t.Errorf("Frame() = %+v", f)
	}
}

func TestAggregate(t *testing.T) {
	sections := []SectionSample{
		{X: 0, Y: 0, DX: 1, DY: 0, FResX: 1, FResY: 2, Torque: 0.5},
		{X: 2, Y: 4, DX: 1, DY: 2, FResX: 3, FResY: -2, Torque: -1.5},
	}
	a := Aggregate(sections)

	if a.CenterX != 1 || a.CenterY != 2 {
		t.Errorf("center = (%v, %v), want (1, 2)", a.CenterX, a.CenterY)
	}
	if a.VelocityX != 1 || a.VelocityY != 1 {
		t.Errorf("velocity = (%v, %v), want (1, 1)", a.VelocityX, a.VelocityY)
	}
	if a.ForceX != 4 || a.ForceY != 0 {
		t.Errorf("force = (%v, %v), want (4, 0)", a.ForceX, a.ForceY)
	}
	if a.NetTorque != -1 {
		t.Errorf("NetTorque = %v, want -1", a.NetTorque)
	}
	if math.Abs(float64(a.Tangent)-math.Pi/4) > 1e-6 {
		t.Errorf("Tangent = %v, want pi/4", a.Tangent)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); got != (Aggregates{}) {
		t.Errorf("Aggregate(nil) = %+v, want zero value", got)
	}
}
