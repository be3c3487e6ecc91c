//go:build !gocv

package enhance

import "errors"

var errAcceleratedUnavailable = errors.New("accelerated backend not compiled in (build with -tags gocv)")

// NewAccelerated reports that the accelerated backend is not compiled in.
func NewAccelerated(Params) (Backend, error) {
	return nil, errAcceleratedUnavailable
}

func probeAccelerated() (bool, string) {
	return false, errAcceleratedUnavailable.Error()
}
