package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt16ToFloat32RoundTrip(t *testing.T) {
	samples := []int16{-32768, -32767, -1000, -1, 0, 1, 1000, 32767}
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[i*2] = byte(uint16(s))
		raw[i*2+1] = byte(uint16(s) >> 8)
	}

	floats := make([]float32, len(samples))
	Int16ToFloat32(floats, raw)

	back := make([]byte, len(samples)*2)
	Float32ToInt16(back, floats)

	for i, want := range samples {
		got := int16(uint16(back[i*2]) | uint16(back[i*2+1])<<8)
		if want == -32768 {
			// the one value with no symmetric float32 counterpart around a
			// 32767-denominator scale; clamped to -32767 on the way back.
			assert.Equal(t, int16(-32767), got)
			continue
		}
		assert.Equal(t, want, got)
	}
}

func TestFloat32ToInt16ErrorBound(t *testing.T) {
	values := []float32{-1, -0.5, 0, 0.25, 0.999, 1}
	raw := make([]byte, len(values)*2)
	Float32ToInt16(raw, values)

	back := make([]float32, len(values))
	Int16ToFloat32(back, raw)

	for i, want := range values {
		assert.LessOrEqual(t, math.Abs(float64(back[i]-want)), 1.0/32767.0+1e-6)
	}
}

func TestRemapFloat32MonoStereo(t *testing.T) {
	stereo := []float32{1, -1, 0.5, 0.5}
	mono := RemapFloat32(stereo, 2, 1)
	require.Len(t, mono, 2)
	assert.InDelta(t, 0, mono[0], 1e-6)
	assert.InDelta(t, 0.5, mono[1], 1e-6)

	back := RemapFloat32(mono, 1, 2)
	require.Len(t, back, 4)
	assert.Equal(t, mono[0], back[0])
	assert.Equal(t, mono[0], back[1])
}

func TestSupportedRemap(t *testing.T) {
	assert.True(t, SupportedRemap(1, 1))
	assert.True(t, SupportedRemap(2, 1))
	assert.True(t, SupportedRemap(1, 2))
	assert.False(t, SupportedRemap(2, 6))
}

func TestResamplePolyphaseFrameCountWithinTolerance(t *testing.T) {
	const frames = 4800
	input := make([]float32, frames) // mono
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / 48000))
	}

	out := ResamplePolyphase(input, 1, 48000, 44100, QualityBest)
	want := int(math.Round(float64(frames) * 44100.0 / 48000.0))
	assert.InDelta(t, want, len(out), 1)
}

func TestResampleIdentityRatioIsNoop(t *testing.T) {
	input := []float32{1, -1, 0.5, -0.5}
	out := ResamplePolyphase(input, 2, 48000, 48000, QualityBest)
	assert.Equal(t, input, out)

	out2 := ResampleLinear(input, 2, 48000, 48000)
	assert.Equal(t, input, out2)
}

func TestResampleLinearFrameCount(t *testing.T) {
	input := make([]float32, 1000)
	out := ResampleLinear(input, 1, 16000, 48000)
	want := int(math.Round(1000 * 3.0))
	assert.InDelta(t, want, len(out), 1)
}

func TestPipelineBypassOnIdentity(t *testing.T) {
	p := Pipeline{Quality: QualityFast}
	f := Format{SampleRate: 48000, Channels: 2, Sample: FormatFloat32}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out, frames, err := p.Convert(data, 1, f, f)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), frames)
	assert.Same(t, &data[0], &out[0])
}

func TestPipelineRejectsUnsupportedChannelMap(t *testing.T) {
	p := Pipeline{}
	from := Format{SampleRate: 48000, Channels: 2, Sample: FormatFloat32}
	to := Format{SampleRate: 48000, Channels: 6, Sample: FormatFloat32}
	_, _, err := p.Convert(make([]byte, 8), 1, from, to)
	require.Error(t, err)
	var unsupported *ErrUnsupported
	assert.ErrorAs(t, err, &unsupported)
}

func TestDetectFormat(t *testing.T) {
	floatData := make([]byte, 8)
	float32ToBytesLE(floatData[0:], 0.5)
	float32ToBytesLE(floatData[4:], -0.25)
	assert.Equal(t, DetectFloat32, DetectFormat(floatData))

	// The four bytes must not also read as a small float32: 0xD0004000 is
	// about -8.6e9, well past DetectFormat's float limit of 10.
	intData := make([]byte, 4)
	intData[0], intData[1] = 0x00, 0x40 // 16384
	intData[2], intData[3] = 0x00, 0xD0 // -12288
	assert.Equal(t, DetectInt16, DetectFormat(intData))
}
