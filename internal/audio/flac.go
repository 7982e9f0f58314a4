package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

func isFLAC(b []byte) bool {
	return len(b) >= 4 && string(b[0:4]) == "fLaC"
}

// decodeFLAC reads every frame of a FLAC stream and interleaves the
// per-channel subframe samples.
func decodeFLAC(b []byte) (*PCM, error) {
	stream, err := flac.New(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("read flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil {
		return nil, errors.New("flac stream has no STREAMINFO")
	}
	channels := int(info.NChannels)
	p := &PCM{
		BitDepth:   int(info.BitsPerSample),
		Channels:   channels,
		SampleRate: int(info.SampleRate),
		Ints:       make([]int, 0, int(info.NSamples)*channels),
	}

	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read flac frame: %w", err)
		}
		if len(f.Subframes) != channels {
			return nil, fmt.Errorf("flac frame has %d subframes, want %d", len(f.Subframes), channels)
		}
		n := int(f.BlockSize)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				p.Ints = append(p.Ints, int(f.Subframes[ch].Samples[i]))
			}
		}
	}
	return p, nil
}
