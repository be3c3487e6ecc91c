// Package enhance implements the enhancement stage of the conversion
// pipeline and the once-per-run choice of which implementation to use.
//
// A Backend is a pure function over a raster: it never mutates its input
// and keeps no state between calls, so one value is shared by every worker.
// Reference is the portable Go implementation. Accelerated wraps OpenCV and
// is only compiled with the gocv build tag; without it the probe reports the
// capability as unavailable and Select falls back to Reference.
package enhance
