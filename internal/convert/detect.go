package convert

import "math"

// DetectedFormat is the advisory classification DetectFormat returns.
type DetectedFormat int

const (
	DetectUnknown DetectedFormat = iota
	DetectInt16
	DetectFloat32
)

// DetectFormat inspects the leading bytes of a buffer to guess whether it
// holds int16 or float32 PCM. The float32 reading is tried first, so bytes
// that pass both tests classify as float32. This is advisory-only, used for diagnostics
// when a backend's requested and actual formats disagree; it is never
// consulted on the data path.
func DetectFormat(data []byte) DetectedFormat {
	if len(data) >= 4 {
		n := len(data) / 4
		maxAbs := float32(0)
		valid := true
		for i := 0; i < n && i < 256; i++ {
			v := bytesToFloat32LE(data[i*4:])
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				valid = false
				break
			}
			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
		if valid && maxAbs <= 10 {
			return DetectFloat32
		}
	}

	if len(data) >= 2 {
		n := len(data) / 2
		maxAbs := 0
		for i := 0; i < n && i < 256; i++ {
			v := int(int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8))
			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
		if maxAbs >= 100 {
			return DetectInt16
		}
	}

	return DetectUnknown
}
