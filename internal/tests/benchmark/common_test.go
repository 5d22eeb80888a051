package benchmark

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
	"github.com/Herman-H/Snake-Robot-Display/internal/storage/simlog"
	"github.com/Herman-H/Snake-Robot-Display/internal/telemetry/logger"
)

// SectionCounts defines the robot sizes used for benchmarking.
var SectionCounts = []int{1, 8, 32, domain.MaxSections}

// SampleCounts defines the log lengths used for benchmarking.
var SampleCounts = []int{1000, 10000, 100000}

// dt is the sample spacing of generated logs in simulation seconds.
const dt = 0.01

// makeSections returns n sections displaced by t.
func makeSections(n int, t float32) []domain.SectionSample {
	out := make([]domain.SectionSample, n)
	for i := range out {
		f := float32(i)
		out[i] = domain.SectionSample{
			X: t + f, Y: -f, Phi: 0.1 * f,
			DX: 1, DY: 0.5, DPhi: -0.01,
			FResX: -0.1 * f, FResY: 0.2,
			Torque: t * f,
		}
	}
	return out
}

// makeSeries builds an in-memory log of samples frames.
func makeSeries(sections, samples int) *simlog.Series {
	s := &simlog.Series{Sections: sections, Frames: make([]domain.FrameRecord, samples)}
	for i := range s.Frames {
		t := float32(i) * dt
		s.Frames[i] = domain.FrameRecord{
			T:        t,
			Head:     domain.HeadPose{X: t, Y: t / 2, Angle: t / 10},
			Sections: makeSections(sections, t),
		}
	}
	return s
}

// writeSeries writes s to a file in a temporary directory.
func writeSeries(b *testing.B, s *simlog.Series) string {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.simlog")
	w, err := simlog.Create(path, s.Sections)
	if err != nil {
		b.Fatalf("Create failed: %v", err)
	}
	for _, f := range s.Frames {
		if err := w.Append(f); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		b.Fatalf("Close failed: %v", err)
	}
	return path
}

// quietLogger discards everything below error.
func quietLogger(b *testing.B) logger.Logger {
	b.Helper()
	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if err != nil {
		b.Fatal(err)
	}
	return l
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithSectionCounts runs a benchmark function with various robot sizes.
func runWithSectionCounts(b *testing.B, benchFn func(b *testing.B, sections int)) {
	for _, n := range SectionCounts {
		b.Run(fmt.Sprintf("sections_%d", n), func(b *testing.B) {
			benchFn(b, n)
		})
	}
}
