package convert

// RemapFloat32 converts an interleaved float32 buffer from srcChannels to
// dstChannels per frame. Only mono<->stereo and identity are supported;
// anything else is the caller's responsibility to reject with
// FormatUnsupported before calling this.
func RemapFloat32(src []float32, srcChannels, dstChannels int) []float32 {
	if srcChannels == dstChannels {
		return src
	}
	frames := len(src) / srcChannels

	if srcChannels == 2 && dstChannels == 1 {
		out := make([]float32, frames)
		for i := 0; i < frames; i++ {
			out[i] = (src[i*2] + src[i*2+1]) / 2
		}
		return out
	}

	if srcChannels == 1 && dstChannels == 2 {
		out := make([]float32, frames*2)
		for i := 0; i < frames; i++ {
			out[i*2] = src[i]
			out[i*2+1] = src[i]
		}
		return out
	}

	panic("convert: unsupported channel remap; caller must reject before calling RemapFloat32")
}

// SupportedRemap reports whether a channel remap from src to dst channels
// is implemented (mono<->stereo and identity only, per spec §4.7).
func SupportedRemap(src, dst int) bool {
	if src == dst {
		return true
	}
	return (src == 1 && dst == 2) || (src == 2 && dst == 1)
}
