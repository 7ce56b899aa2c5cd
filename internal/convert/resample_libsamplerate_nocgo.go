//go:build !windows && !cgo

package convert

import "errors"

// libsamplerateAvailable always reports unavailable when this binary was
// built with cgo disabled, matching the runtime "not found" behavior of
// the cgo build when libsamplerate can't be dlopen'd.
func libsamplerateAvailable() bool { return false }

// ResampleLibsamplerate returns an error when this binary was built with
// cgo disabled, since the dynamic loading tier requires cgo.
func ResampleLibsamplerate(input []float32, channels int, srcRate, dstRate uint32, quality ResampleQuality) ([]float32, error) {
	return nil, errors.New("convert: libsamplerate not available")
}
