// Package simlog reads and writes recorded simulation logs.
//
// A log is a purely positional little-endian file with no magic number,
// version tag or checksum, so field order and width must be preserved
// exactly for interoperability with the simulation that produces it.
//
// Format:
//
//	u32 sectionCount (N)
//	u32 sampleCount  (M)
//	repeat M times:
//	  f32 t, headX, headY, headAngle
//	  repeat N times:
//	    f32 x, y, phi, dx, dy, d_phi, f_res_x, f_res_y, torque
//
// Open validates the declared sizes against the file length and rejects
// truncated files, trailing bytes and decreasing timestamps with
// domain.ErrMalformedFile. A missing file is domain.ErrFileNotFound.
//
// Writer produces the same format incrementally (used to record live
// sessions); the sample count is patched into the header on Close.
package simlog
