//go:build linux && !cgo

package linux

import "errors"

// ErrPipeWireUnavailable is returned when this binary was built with cgo
// disabled, so the native stream strategy can never be attempted.
var ErrPipeWireUnavailable = errors.New("linux: built without cgo, native PipeWire stream strategy unavailable")

type pwStream struct{}

func pipewireAvailable() bool { return false }

func newPWStream(nodeID uint32, rate, channels uint32, onFrame func([]byte)) (*pwStream, error) {
	return nil, ErrPipeWireUnavailable
}

func (s *pwStream) Start() {}

func (s *pwStream) Close() error { return nil }
