// Package interp resamples a recorded time series at arbitrary query times.
//
// An Interpolator keeps a cursor into the frame sequence and walks it
// locally on every Seek, which is cheap for the small steps of a playback
// scrubber and degrades to a linear scan on large jumps. Fields are
// interpolated independently between the two bracketing frames:
//
//	v = v1 + scale*(v2 - v1)
//
// Query times within Rho of a recorded timestamp snap to that frame.
//
// An Interpolator is not safe for concurrent use.
package interp
