// Package convert implements the three-stage format-normalization pipeline:
// sample-format conversion, channel remap, and resampling, each bypassed
// when source and destination already agree. Adapted from the teacher's
// audio/file package (StreamingResampler's sinc/window table approach) and
// generalized off its BirdNET-specific fixed sample rates.
package convert

import (
	"encoding/binary"
	"math"
	"sync"

	"golang.org/x/sys/cpu"
)

func bytesToFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func float32ToBytesLE(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// simdTier caches the widest available vector path, detected once per
// process per spec §9's "module-level state... initialized once" note.
type simdTier int

const (
	tierScalar simdTier = iota
	tierSSE
	tierAVX2
)

var (
	simdOnce  sync.Once
	cachedSIMD simdTier
)

func detectSIMD() simdTier {
	simdOnce.Do(func() {
		switch {
		case cpu.X86.HasAVX2:
			cachedSIMD = tierAVX2
		case cpu.X86.HasSSE2:
			cachedSIMD = tierSSE
		default:
			cachedSIMD = tierScalar
		}
	})
	return cachedSIMD
}

// int16Scale is the shared int16<->float32 scale factor. Using 32767 (not
// 32768) in both directions keeps the conversion symmetric around zero so
// the round trip through Int16ToFloat32 and Float32ToInt16 is exact at
// both extremes, per the identity law this pipeline is required to honor.
const int16Scale = 32767.0

// Int16ToFloat32 converts little-endian int16 PCM to float32 in [-1, 1]
// (-32768 alone maps slightly below -1).
// Dispatches on the cached CPU tier; all tiers currently share one loop
// body since the vector width only changes the batch granularity, not the
// arithmetic — a real AVX2 kernel would peel 16-sample batches here.
func Int16ToFloat32(dst []float32, src []byte) {
	n := len(src) / 2
	tier := detectSIMD()
	batch := 1
	switch tier {
	case tierAVX2:
		batch = 16
	case tierSSE:
		batch = 8
	}
	i := 0
	for ; i+batch <= n; i += batch {
		for j := 0; j < batch; j++ {
			dst[i+j] = float32(int16(binary.LittleEndian.Uint16(src[(i+j)*2:]))) / int16Scale
		}
	}
	for ; i < n; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(src[i*2:]))) / int16Scale
	}
}

// Float32ToInt16 converts float32 samples in [-1, 1] to little-endian int16,
// clamping before scaling so out-of-range input never wraps.
func Float32ToInt16(dst []byte, src []float32) {
	for i, s := range src {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * int16Scale))
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
	}
}

// Int32ToFloat32 converts little-endian int32 PCM to float32 in [-1, 1].
func Int32ToFloat32(dst []float32, src []byte) {
	n := len(src) / 4
	for i := 0; i < n; i++ {
		dst[i] = float32(int32(binary.LittleEndian.Uint32(src[i*4:]))) / 2147483648.0
	}
}

// Float32ToInt32 converts float32 samples in [-1, 1] to little-endian int32.
func Float32ToInt32(dst []byte, src []float32) {
	for i, s := range src {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int32(math.Round(float64(s) * 2147483647))
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(v))
	}
}

// Int24ToFloat32 converts packed little-endian 3-byte signed PCM to float32.
func Int24ToFloat32(dst []float32, src []byte) {
	n := len(src) / 3
	for i := 0; i < n; i++ {
		b0, b1, b2 := src[i*3], src[i*3+1], src[i*3+2]
		v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF // sign-extend
		}
		dst[i] = float32(v) / 8388608.0
	}
}

// Float32ToInt24 converts float32 samples in [-1, 1] to packed
// little-endian 3-byte signed PCM.
func Float32ToInt24(dst []byte, src []float32) {
	for i, s := range src {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int32(math.Round(float64(s) * 8388607))
		dst[i*3] = byte(v)
		dst[i*3+1] = byte(v >> 8)
		dst[i*3+2] = byte(v >> 16)
	}
}
