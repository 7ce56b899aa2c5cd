package convert

// ResampleLinear is the low-latency fallback tier: simple linear
// interpolation between the two nearest input frames, no filtering. SIMD
// vectorizes trivially (fused multiply-add per channel) but the scalar loop
// here is what actually runs absent a hand-written kernel.
func ResampleLinear(input []float32, channels int, srcRate, dstRate uint32) []float32 {
	if srcRate == dstRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	frames := len(input) / channels
	if frames == 0 {
		return nil
	}
	ratio := float64(dstRate) / float64(srcRate)
	outFrames := int(float64(frames)*ratio + 0.5)
	step := float64(srcRate) / float64(dstRate)

	out := make([]float32, outFrames*channels)
	for j := 0; j < outFrames; j++ {
		srcPos := float64(j) * step
		i0 := int(srcPos)
		if i0 >= frames-1 {
			i0 = frames - 2
			if i0 < 0 {
				i0 = 0
			}
		}
		i1 := i0 + 1
		if i1 >= frames {
			i1 = frames - 1
		}
		frac := float32(srcPos - float64(i0))

		for c := 0; c < channels; c++ {
			a := input[i0*channels+c]
			b := input[i1*channels+c]
			out[j*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
