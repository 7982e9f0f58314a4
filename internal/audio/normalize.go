package audio

const (
	// TargetSampleRate is the only rate the recognition pipeline accepts.
	TargetSampleRate = 8000
	// FullScale maps float 1.0 to the int16 positive limit. -1.0 therefore
	// becomes -32767, never -32768.
	FullScale = 32767
)

// DecodeError reports audio that could not be decoded or resampled.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Normalize turns an encoded upload into mono 8 kHz samples scaled to the
// int16 range and stored as int32.
func Normalize(raw []byte) ([]int32, error) {
	return NormalizeWithHint(raw, Hint{})
}

// NormalizeWithHint is Normalize for uploads that may be headerless PCM.
func NormalizeWithHint(raw []byte, h Hint) ([]int32, error) {
	p, err := Decode(raw, h)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	mono := Mono(ToFloat32(p), p.Channels)
	if p.SampleRate != TargetSampleRate {
		mono = Resample(mono, p.SampleRate, TargetSampleRate)
	}
	return Quantize(mono), nil
}

// ToFloat32 converts interleaved samples to float. Float input passes through
// untouched; integers are divided by the largest positive value of their type.
func ToFloat32(p *PCM) []float32 {
	if p.Floats != nil {
		return p.Floats
	}
	bitDepth := p.BitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	max := float32(int64(1)<<(bitDepth-1) - 1)
	offset := 0
	if p.Unsigned {
		offset = 1 << (bitDepth - 1)
	}
	out := make([]float32, len(p.Ints))
	for i, v := range p.Ints {
		out[i] = float32(v-offset) / max
	}
	return out
}

// Mono averages interleaved channels frame by frame. A trailing partial frame
// is dropped. Mono input is returned unchanged.
func Mono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[f*channels+c])
		}
		out[f] = float32(sum / float64(channels))
	}
	return out
}

// Quantize scales by FullScale and truncates toward zero. Out-of-range input
// is not clipped.
func Quantize(samples []float32) []int32 {
	out := make([]int32, len(samples))
	for i, v := range samples {
		out[i] = int32(v * FullScale)
	}
	return out
}
