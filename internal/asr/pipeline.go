package asr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/obiente/translate/gostt/internal/config"
)

// TextPhrase is one timed unit of recognized text.
type TextPhrase struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Pipeline is the loaded recognition model. It is built once at startup and
// shared by all requests; implementations either tolerate concurrent calls or
// serialize them internally.
type Pipeline interface {
	// ForwardOffline transcribes a complete mono waveform sampled at
	// audio.TargetSampleRate, holding int16-range values in int32 slots.
	// Phrases come back in spoken order.
	ForwardOffline(ctx context.Context, samples []int32) ([]TextPhrase, error)
	Close() error
}

// PipelineFunc adapts a plain function to Pipeline. Close is a no-op.
type PipelineFunc func(ctx context.Context, samples []int32) ([]TextPhrase, error)

func (f PipelineFunc) ForwardOffline(ctx context.Context, samples []int32) ([]TextPhrase, error) {
	return f(ctx, samples)
}

func (f PipelineFunc) Close() error { return nil }

// New builds the pipeline selected by cfg.Backend. It may load model weights
// and is expected to be called exactly once.
func New(cfg config.ASR) (Pipeline, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "whisper":
		return newWhisper(cfg)
	case "openai":
		return newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("asr: unknown backend %q (supported: whisper, openai)", cfg.Backend)
	}
}
