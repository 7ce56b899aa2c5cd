package convert

import "math"

type complex64v = complex128

// fft performs an in-place iterative radix-2 Cooley-Tukey FFT (or inverse,
// when inverse is true) on a power-of-two-length slice.
func fft(a []complex64v, inverse bool) {
	n := len(a)
	if n <= 1 {
		return
	}

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := 2 * math.Pi / float64(length)
		if inverse {
			ang = -ang
		}
		wlen := complex(math.Cos(ang), math.Sin(ang))
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := a[i+k]
				v := a[i+k+half] * w
				a[i+k] = u + v
				a[i+k+half] = u - v
				w *= wlen
			}
		}
	}

	if inverse {
		for i := range a {
			a[i] /= complex(float64(n), 0)
		}
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ResampleFFT resamples one interleaved float32 buffer by transforming each
// channel into the frequency domain, stretching or truncating the spectrum
// to the new length (zero-padding to add bandwidth, truncating to remove
// it), and inverse-transforming. This is the global, non-special-cased
// resampling tier. Pipeline runs it only when its Tier is TierFFT;
// TierAuto never selects it.
func ResampleFFT(input []float32, channels int, srcRate, dstRate uint32) []float32 {
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
	outFrames := int(math.Round(float64(frames) * ratio))

	n := nextPow2(frames)
	m := nextPow2(outFrames)
	if m < 1 {
		m = 1
	}

	out := make([]float32, outFrames*channels)

	buf := make([]complex64v, n)
	spec := make([]complex64v, m)

	for c := 0; c < channels; c++ {
		for i := 0; i < n; i++ {
			if i < frames {
				buf[i] = complex(float64(input[i*channels+c]), 0)
			} else {
				buf[i] = 0
			}
		}
		fft(buf, false)

		for i := range spec {
			spec[i] = 0
		}

		half := n / 2
		outHalf := m / 2
		copyHalf := half
		if outHalf < copyHalf {
			copyHalf = outHalf
		}
		// Positive frequencies (including DC) and their mirrored negative
		// counterparts, truncated or zero-padded to the new spectrum size.
		for i := 0; i <= copyHalf; i++ {
			spec[i] = buf[i]
			if i != 0 && i != copyHalf {
				spec[m-i] = buf[n-i]
			}
		}

		fft(spec, true)

		scale := float64(m) / float64(n)
		for i := 0; i < outFrames; i++ {
			out[i*channels+c] = float32(real(spec[i]) * scale)
		}
	}

	return out
}
