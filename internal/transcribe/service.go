package transcribe

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/obiente/translate/gostt/internal/asr"
	"github.com/obiente/translate/gostt/internal/audio"
)

// PhraseSeparator joins phrase texts in the final transcript.
const PhraseSeparator = ". "

// Upload is one request's audio payload.
type Upload struct {
	Data []byte
	Hint audio.Hint
}

// Result is a finished transcription.
type Result struct {
	Text    string
	Phrases []asr.TextPhrase
}

type Options struct {
	// Workers caps how many normalize/inference calls run at once.
	// Defaults to runtime.NumCPU().
	Workers int
	// InferenceTimeout bounds a single pipeline call. Zero disables it.
	InferenceTimeout time.Duration
}

// Service runs normalization and inference on a bounded pool of goroutines
// so slow uploads never pile up unbounded CPU work.
type Service struct {
	pipeline asr.Pipeline
	pool     *semaphore.Weighted
	timeout  time.Duration
}

func NewService(p asr.Pipeline, opts Options) *Service {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Service{
		pipeline: p,
		pool:     semaphore.NewWeighted(int64(workers)),
		timeout:  opts.InferenceTimeout,
	}
}

// Transcribe normalizes the upload and runs the pipeline over it. Errors are
// *AudioError, *InferenceError, or the context error when ctx ends first.
func (s *Service) Transcribe(ctx context.Context, up Upload) (Result, error) {
	start := time.Now()

	var samples []int32
	err := s.run(ctx, func() error {
		var err error
		samples, err = audio.NormalizeWithHint(up.Data, up.Hint)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, &AudioError{Err: err}
	}
	normalized := time.Since(start)

	ictx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var phrases []asr.TextPhrase
	err = s.run(ictx, func() error {
		var err error
		phrases, err = s.pipeline.ForwardOffline(ictx, samples)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Error().
			Err(err).
			Int("samples", len(samples)).
			Dur("elapsed", time.Since(start)).
			Msg("transcribe: inference failed")
		return Result{}, &InferenceError{Err: err}
	}

	res := Result{Text: JoinPhrases(phrases), Phrases: phrases}
	log.Debug().
		Int("bytes", len(up.Data)).
		Int("samples", len(samples)).
		Int("phrases", len(phrases)).
		Dur("normalize", normalized).
		Dur("total", time.Since(start)).
		Msg("transcribe: done")
	return res, nil
}

// run executes fn on a pool slot and waits for it or for ctx. The slot stays
// taken until fn really returns, even after ctx gives up on it.
func (s *Service) run(ctx context.Context, fn func() error) error {
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() {
		defer s.pool.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("pipeline panicked")
				errc <- fmt.Errorf("panic: %v", r)
			}
		}()
		errc <- fn()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinPhrases concatenates phrase texts in order with PhraseSeparator.
func JoinPhrases(phrases []asr.TextPhrase) string {
	texts := make([]string, len(phrases))
	for i, p := range phrases {
		texts[i] = p.Text
	}
	return strings.Join(texts, PhraseSeparator)
}
