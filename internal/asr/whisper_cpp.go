//go:build whisper_cpp

package asr

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/gostt/internal/audio"
	"github.com/obiente/translate/gostt/internal/config"
)

// whisper.cpp models are trained on 16 kHz audio.
const whisperSampleRate = 16000

// whisperPipeline runs whisper.cpp in-process.
type whisperPipeline struct {
	model   whisperpkg.Model
	threads uint
	mu      sync.Mutex // whisper.cpp crashes on concurrent use of one model
}

func newWhisper(cfg config.ASR) (Pipeline, error) {
	threads := uint(runtime.NumCPU())
	if cfg.Threads > 0 {
		threads = uint(cfg.Threads)
	}

	m, err := whisperpkg.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info().Str("model", cfg.ModelPath).Uint("threads", threads).Msg("whisper: model loaded successfully")
	return &whisperPipeline{model: m, threads: threads}, nil
}

func (w *whisperPipeline) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

// ForwardOffline upsamples the 8 kHz waveform to whisper's native rate and
// runs one full-context pass. Calls are serialized.
func (w *whisperPipeline) ForwardOffline(ctx context.Context, samples []int32) ([]TextPhrase, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	pcm := make([]float32, len(samples))
	for i, v := range samples {
		pcm[i] = float32(v) / audio.FullScale
	}
	pcm = audio.Resample(pcm, audio.TargetSampleRate, whisperSampleRate)

	w.mu.Lock()
	defer w.mu.Unlock()

	// The deadline may have passed while queued on the mutex.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	wctx.SetThreads(w.threads)
	_ = wctx.SetLanguage("auto")
	wctx.SetSplitOnWord(true)
	wctx.SetTokenTimestamps(true)

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		log.Error().Err(err).Int("samples", len(pcm)).Msg("whisper: process failed")
		return nil, fmt.Errorf("process audio: %w", err)
	}

	var phrases []TextPhrase
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		phrases = append(phrases, TextPhrase{Text: text, Start: seg.Start, End: seg.End})
	}

	log.Debug().
		Int("phrases", len(phrases)).
		Int("samples", len(samples)).
		Str("lang", wctx.DetectedLanguage()).
		Msg("whisper: transcription complete")
	return phrases, nil
}
