//go:build !whisper_cpp

package asr

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/gostt/internal/config"
)

// Default stub (no cgo) so the project builds without the whisper_cpp tag.
type stubPipeline struct{}

func newWhisper(cfg config.ASR) (Pipeline, error) {
	log.Warn().Str("model", cfg.ModelPath).Msg("whisper: built without whisper_cpp tag, transcriptions will be empty")
	return stubPipeline{}, nil
}

func (stubPipeline) ForwardOffline(ctx context.Context, samples []int32) ([]TextPhrase, error) {
	return nil, ctx.Err()
}

func (stubPipeline) Close() error { return nil }
