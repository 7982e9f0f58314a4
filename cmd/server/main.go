package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/gostt/internal/asr"
	"github.com/obiente/translate/gostt/internal/config"
	serverhttp "github.com/obiente/translate/gostt/internal/http"
	"github.com/obiente/translate/gostt/internal/transcribe"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cfg := config.Load()

	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && l != zerolog.NoLevel {
		lvl = l
	}
	log.Logger = log.Level(lvl)

	// The pipeline is loaded once, before the listener opens.
	log.Info().Str("backend", cfg.ASR.Backend).Msg("loading speech recognition pipeline")
	pipeline, err := asr.New(cfg.ASR)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline load failed")
	}

	svc := transcribe.NewService(pipeline, transcribe.Options{
		Workers:          cfg.InferenceWorkers,
		InferenceTimeout: cfg.InferenceTimeout,
	})

	// Leave room past the inference deadline to write the response.
	var writeTimeout time.Duration
	if cfg.InferenceTimeout > 0 {
		writeTimeout = cfg.InferenceTimeout + time.Minute
	}
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           serverhttp.NewRouter(svc, cfg.MaxUploadBytes),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout,
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("workers", cfg.InferenceWorkers).
		Dur("inference_timeout", cfg.InferenceTimeout).
		Msg("gostt server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
