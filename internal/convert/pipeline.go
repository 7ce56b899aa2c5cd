package convert

import "fmt"

// SampleFormat mirrors procaudio.SampleFormat. Kept as this package's own
// type (rather than importing procaudio) so the dependency order in
// SPEC_FULL §2 holds: convert sits below the façade, not above it.
type SampleFormat uint8

const (
	FormatInt16 SampleFormat = iota
	FormatInt24
	FormatInt32
	FormatFloat32
)

func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatInt16:
		return 2
	case FormatInt24:
		return 3
	case FormatInt32, FormatFloat32:
		return 4
	default:
		return 0
	}
}

// Format is the convert package's view of a PCM stream shape.
type Format struct {
	SampleRate uint32
	Channels   int
	Sample     SampleFormat
}

func (f Format) FrameSize() int { return f.Channels * f.Sample.BytesPerSample() }

func (f Format) Equal(o Format) bool {
	return f.SampleRate == o.SampleRate && f.Channels == o.Channels && f.Sample == o.Sample
}

// ErrUnsupported is returned for conversions with no implemented path
// (n-to-m channel maps beyond mono/stereo), mapped by callers onto
// procaudio's FormatUnsupported kind.
type ErrUnsupported struct{ Reason string }

func (e *ErrUnsupported) Error() string { return "convert: unsupported: " + e.Reason }

// ResampleQuality mirrors procaudio.ResampleQuality for the same reason
// SampleFormat does above.
type ResampleQuality uint8

const (
	QualityBest ResampleQuality = iota
	QualityMedium
	QualityFast
)

// Pipeline runs the three-stage sample-format/channel/resample
// transformation, bypassing any stage whose input already matches its
// output, and returning the input unchanged if the whole pipeline is the
// identity.
type Pipeline struct {
	Quality ResampleQuality
	Tier    ResamplerTier // which resampling backend to prefer; Auto picks by priority
}

// ResamplerTier pins the resample pipeline to one backend. TierAuto uses
// libsamplerate when it loads, else linear for QualityFast and polyphase
// otherwise; it never picks TierFFT.
type ResamplerTier uint8

const (
	TierAuto ResamplerTier = iota
	TierLibsamplerate
	TierPolyphase
	TierFFT
	TierLinear
)

// Convert transforms src (frameCount whole frames in `from` format) into
// `to` format, returning the output bytes and the frame count actually
// produced.
func (p Pipeline) Convert(src []byte, frameCount uint32, from, to Format) ([]byte, uint32, error) {
	if from.Equal(to) {
		return src, frameCount, nil
	}
	if !SupportedRemap(from.Channels, to.Channels) {
		return nil, 0, &ErrUnsupported{Reason: fmt.Sprintf("%d->%d channels", from.Channels, to.Channels)}
	}

	// Stage 1: sample-format convert to float32 (the pipeline's working type).
	floats := toFloat32(src, int(frameCount), from.Channels, from.Sample)

	// Stage 2: channel remap.
	if from.Channels != to.Channels {
		floats = RemapFloat32(floats, from.Channels, to.Channels)
	}

	// Stage 3: resample.
	outFrames := frameCount
	if from.SampleRate != to.SampleRate {
		floats = p.resample(floats, to.Channels, from.SampleRate, to.SampleRate)
		outFrames = uint32(len(floats) / to.Channels)
	}

	// Stage 1b: convert from working float32 to the destination format.
	out := fromFloat32(floats, to.Sample)
	return out, outFrames, nil
}

func (p Pipeline) resample(floats []float32, channels int, srcRate, dstRate uint32) []float32 {
	tier := p.Tier
	if tier == TierAuto {
		if libsamplerateAvailable() {
			tier = TierLibsamplerate
		} else if p.Quality == QualityFast {
			tier = TierLinear
		} else {
			tier = TierPolyphase
		}
	}

	switch tier {
	case TierLibsamplerate:
		if out, err := ResampleLibsamplerate(floats, channels, srcRate, dstRate, p.Quality); err == nil {
			return out
		}
		tier = TierPolyphase
		fallthrough
	case TierPolyphase:
		return ResamplePolyphase(floats, channels, srcRate, dstRate, p.Quality)
	case TierFFT:
		return ResampleFFT(floats, channels, srcRate, dstRate)
	default:
		return ResampleLinear(floats, channels, srcRate, dstRate)
	}
}

func toFloat32(data []byte, frames, channels int, f SampleFormat) []float32 {
	n := frames * channels
	out := make([]float32, n)
	switch f {
	case FormatInt16:
		Int16ToFloat32(out, data)
	case FormatInt24:
		Int24ToFloat32(out, data)
	case FormatInt32:
		Int32ToFloat32(out, data)
	case FormatFloat32:
		for i := 0; i < n; i++ {
			out[i] = bytesToFloat32LE(data[i*4:])
		}
	}
	return out
}

func fromFloat32(floats []float32, f SampleFormat) []byte {
	out := make([]byte, len(floats)*f.BytesPerSample())
	switch f {
	case FormatInt16:
		Float32ToInt16(out, floats)
	case FormatInt24:
		Float32ToInt24(out, floats)
	case FormatInt32:
		Float32ToInt32(out, floats)
	case FormatFloat32:
		for i, v := range floats {
			float32ToBytesLE(out[i*4:], v)
		}
	}
	return out
}
