package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/go-audio/aiff"
)

// PCM is an interleaved sample buffer in the upload's native encoding.
// Exactly one of Ints or Floats is set.
type PCM struct {
	Ints       []int
	Floats     []float32
	BitDepth   int
	Unsigned   bool
	Channels   int
	SampleRate int
}

// Frames returns the number of complete multi-channel frames.
func (p *PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	if p.Floats != nil {
		return len(p.Floats) / p.Channels
	}
	return len(p.Ints) / p.Channels
}

// Hint describes uploads that carry no container header. Container formats
// (WAV, AIFF, FLAC) ignore it.
type Hint struct {
	MIMEType   string
	SampleRate int
	Channels   int
}

const defaultRawSampleRate = 16000

// rawPCM reports whether the hint names headerless little-endian PCM16, and
// fills rate/channels from MIME parameters (audio/L16;rate=16000;channels=1)
// when the hint leaves them unset.
func (h Hint) rawPCM() (rate, channels int, ok bool) {
	if h.MIMEType == "" {
		return 0, 0, false
	}
	mt, params, err := mime.ParseMediaType(h.MIMEType)
	if err != nil {
		return 0, 0, false
	}
	switch strings.ToLower(mt) {
	case "audio/pcm", "audio/l16", "audio/pcm16":
	default:
		return 0, 0, false
	}
	rate, channels = h.SampleRate, h.Channels
	if rate <= 0 {
		rate, _ = strconv.Atoi(params["rate"])
	}
	if channels <= 0 {
		channels, _ = strconv.Atoi(params["channels"])
	}
	if rate <= 0 {
		rate = defaultRawSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	return rate, channels, true
}

var errNoFrames = errors.New("no audio frames")

// Decode sniffs the container and returns its samples.
func Decode(b []byte, h Hint) (*PCM, error) {
	if len(b) == 0 {
		return nil, errors.New("empty audio data")
	}

	var (
		p   *PCM
		err error
	)
	if rate, ch, ok := h.rawPCM(); ok {
		p, err = DecodePCM16LE(b, rate, ch)
	} else {
		switch {
		case isWAV(b):
			p, err = decodeWAV(b)
		case isAIFF(b):
			p, err = decodeAIFF(b)
		case isFLAC(b):
			p, err = decodeFLAC(b)
		default:
			return nil, errors.New("unsupported audio format")
		}
	}
	if err != nil {
		return nil, err
	}

	if p.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", p.Channels)
	}
	if p.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	if p.Frames() == 0 {
		return nil, errNoFrames
	}
	return p, nil
}

func isAIFF(b []byte) bool {
	if len(b) < 12 || string(b[0:4]) != "FORM" {
		return false
	}
	form := string(b[8:12])
	return form == "AIFF" || form == "AIFC"
}

func decodeAIFF(b []byte) (*PCM, error) {
	dec := aiff.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid aiff file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read aiff: %w", err)
	}
	if buf == nil {
		return nil, errors.New("empty aiff buffer")
	}
	p := &PCM{
		Ints:       buf.Data,
		BitDepth:   int(dec.BitDepth),
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
	}
	if buf.Format != nil {
		if p.Channels == 0 {
			p.Channels = buf.Format.NumChannels
		}
		if p.SampleRate == 0 {
			p.SampleRate = buf.Format.SampleRate
		}
	}
	if p.BitDepth == 0 {
		p.BitDepth = buf.SourceBitDepth
	}
	return p, nil
}

// DecodePCM16LE reads headerless little-endian signed 16-bit samples.
func DecodePCM16LE(b []byte, sampleRate, channels int) (*PCM, error) {
	if sampleRate <= 0 {
		sampleRate = defaultRawSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	if len(b)%2 != 0 {
		return nil, errors.New("pcm16 length must be even")
	}
	out := make([]int, len(b)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
	}
	return &PCM{
		Ints:       out,
		BitDepth:   16,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}
