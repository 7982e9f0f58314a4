package audio

import "math"

const (
	// half kernel width in zero crossings of the lowpass sinc
	sincZeroCrossings = 16
	// fraction of the lower Nyquist frequency kept in the passband
	sincRolloff = 0.945
)

// Resample converts mono samples from inRate to outRate with Hann-windowed
// sinc interpolation. The lowpass cutoff follows the lower of the two rates so
// downsampling does not alias. The output holds ceil(len*outRate/inRate)
// samples; equal rates return a copy.
func Resample(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || len(samples) == 0 {
		return samples
	}
	if inRate == outRate {
		return append([]float32(nil), samples...)
	}

	ratio := float64(outRate) / float64(inRate)
	outLen := int((int64(len(samples))*int64(outRate) + int64(inRate) - 1) / int64(inRate))
	cutoff := sincRolloff * math.Min(1, ratio)
	halfWidth := float64(sincZeroCrossings) / cutoff
	last := len(samples) - 1

	out := make([]float32, outLen)
	for i := range out {
		t := float64(i) / ratio
		lo := int(math.Ceil(t - halfWidth))
		if lo < 0 {
			lo = 0
		}
		hi := int(math.Floor(t + halfWidth))
		if hi > last {
			hi = last
		}

		var acc, norm float64
		for j := lo; j <= hi; j++ {
			d := t - float64(j)
			w := cutoff * sinc(cutoff*d) * hann(d/halfWidth)
			acc += w * float64(samples[j])
			norm += w
		}
		// Normalizing by the tap sum keeps unity DC gain, including near the
		// edges where the kernel is truncated.
		if norm != 0 {
			out[i] = float32(acc / norm)
		}
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hann(x float64) float64 {
	if math.Abs(x) >= 1 {
		return 0
	}
	return 0.5 + 0.5*math.Cos(math.Pi*x)
}
