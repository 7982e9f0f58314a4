package asr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/obiente/translate/gostt/internal/audio"
	"github.com/obiente/translate/gostt/internal/config"
)

// openAIPipeline sends the normalized waveform, re-wrapped as a 16-bit WAV,
// to an OpenAI-compatible /audio/transcriptions endpoint. The client is safe
// for concurrent use.
type openAIPipeline struct {
	client *openai.Client
	model  string
}

func newOpenAI(cfg config.ASR) (Pipeline, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.New("asr: OPENAI_API_KEY is required for the openai backend")
	}
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.Whisper1
	}
	return &openAIPipeline{client: openai.NewClientWithConfig(oc), model: model}, nil
}

func (p *openAIPipeline) Close() error { return nil }

func (p *openAIPipeline) ForwardOffline(ctx context.Context, samples []int32) ([]TextPhrase, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	ints := make([]int, len(samples))
	for i, v := range samples {
		ints[i] = int(v)
	}
	wavBytes, err := audio.EncodeWAV(ints, audio.TargetSampleRate, 1)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(wavBytes),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	phrases := make([]TextPhrase, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		phrases = append(phrases, TextPhrase{Text: text, Start: seconds(seg.Start), End: seconds(seg.End)})
	}
	// Servers that ignore verbose_json still return the flat text.
	if len(phrases) == 0 {
		if text := strings.TrimSpace(resp.Text); text != "" {
			phrases = append(phrases, TextPhrase{Text: text, End: seconds(resp.Duration)})
		}
	}
	return phrases, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
