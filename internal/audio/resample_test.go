package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return out
}

func rms(s []float32) float64 {
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 8000, 8000)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, float32(0.1), in[0])
}

func TestResampleLength(t *testing.T) {
	cases := []struct {
		n, in, want int
	}{
		{16000, 16000, 8000},
		{44100, 44100, 8000},
		{3, 16000, 2},
		{1000, 4000, 2000},
	}
	for _, c := range cases {
		got := Resample(make([]float32, c.n), c.in, TargetSampleRate)
		assert.Len(t, got, c.want, "n=%d rate=%d", c.n, c.in)
	}
}

func TestResampleKeepsDC(t *testing.T) {
	in := make([]float32, 4410)
	for i := range in {
		in[i] = 0.25
	}
	out := Resample(in, 44100, TargetSampleRate)
	for i, v := range out {
		assert.InDelta(t, 0.25, v, 1e-4, "sample %d", i)
	}
}

func TestResamplePassband(t *testing.T) {
	out := Resample(sine(440, 16000, 16000), 16000, TargetSampleRate)
	require.Len(t, out, 8000)
	assert.InDelta(t, 1/math.Sqrt2, rms(out[500:7500]), 0.02)
}

func TestResampleRejectsAboveNyquist(t *testing.T) {
	out := Resample(sine(7000, 16000, 16000), 16000, TargetSampleRate)
	require.Len(t, out, 8000)
	assert.Less(t, rms(out[500:7500]), 0.05)
}

func TestResampleUpsample(t *testing.T) {
	out := Resample(sine(440, 8000, 8000), 8000, 16000)
	require.Len(t, out, 16000)
	assert.InDelta(t, 1/math.Sqrt2, rms(out[1000:15000]), 0.02)
}
