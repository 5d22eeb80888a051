package logger

import (
	"log/slog"
	"math"
	"strconv"
)

// sanitizeAttr replaces NaN and infinite floats with their string form.
// slog stores float32 values as float64, so one case covers both.
// encoding/json refuses them, so slog's JSON handler would otherwise emit
// an error marker in place of the value.
func sanitizeAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindFloat64:
		if f := a.Value.Float64(); !isFinite(f) {
			return slog.String(a.Key, FormatFloat(f))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}
	return a
}

// FormatFloat formats f with the shortest representation, spelling out
// non-finite values as "NaN", "+Inf" and "-Inf".
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
