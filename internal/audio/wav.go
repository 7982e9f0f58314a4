package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags we understand.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

func isWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// decodeWAV reads a complete WAV blob. Integer PCM is returned as-is,
// 32-bit IEEE float data is reinterpreted from the raw sample bits.
func decodeWAV(b []byte) (*PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		if err == io.EOF {
			err = nil
		} else {
			return nil, fmt.Errorf("read wav: %w", err)
		}
	}
	if buf == nil {
		return nil, errors.New("empty wav buffer")
	}

	p := &PCM{
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

	switch dec.WavAudioFormat {
	case wavFormatFloat:
		if p.BitDepth != 32 {
			return nil, fmt.Errorf("unsupported float wav bit depth %d", p.BitDepth)
		}
		p.Floats = make([]float32, len(buf.Data))
		for i, v := range buf.Data {
			p.Floats[i] = math.Float32frombits(uint32(int32(v)))
		}
	default:
		p.Ints = buf.Data
		// 8-bit WAV is the one unsigned PCM layout.
		p.Unsigned = p.BitDepth == 8
	}
	return p, nil
}

// EncodeWAV writes interleaved samples as a 16-bit PCM WAV file held in memory.
// Values outside the int16 range are clipped.
func EncodeWAV(samples []int, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid wav layout: %d Hz, %d channels", sampleRate, channels)
	}
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = clip16(v)
	}

	ws := &memWriteSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}
	return ws.Bytes(), nil
}

func clip16(v int) int {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return v
}

// memWriteSeeker is the in-memory io.WriteSeeker the go-audio encoders need
// to patch chunk sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(abs)
	return abs, nil
}

func (m *memWriteSeeker) Bytes() []byte { return m.buf }
