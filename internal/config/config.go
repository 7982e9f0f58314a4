package config

import (
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Host     string
	Port     int
	LogLevel string

	ASR ASR

	InferenceWorkers int
	InferenceTimeout time.Duration
	MaxUploadBytes   int64
}

// ASR selects and configures the recognition backend.
type ASR struct {
	Backend   string // "whisper" or "openai"
	ModelPath string
	Threads   int

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// Addr is the listen address built from Host and Port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// lookup matches key case-insensitively in the common spellings: the
// upper-case name first, then its lower-case form (host, port).
func lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv(strings.ToLower(key))
}

func getenv(key, def string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := lookup(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("config: not an integer, using default")
	}
	return def
}

// Load reads settings from the environment, after merging a .env file from
// the working directory if one exists. Real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	port := getenvInt("PORT", 8000)
	if port <= 0 || port > 65535 {
		log.Warn().Int("port", port).Msg("config: port out of range, using 8000")
		port = 8000
	}
	workers := getenvInt("INFERENCE_WORKERS", runtime.NumCPU())
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	timeoutSec := getenvInt("INFERENCE_TIMEOUT_SEC", 300)
	if timeoutSec < 0 {
		timeoutSec = 0
	}
	uploadMB := getenvInt("MAX_UPLOAD_MB", 64)
	if uploadMB <= 0 {
		uploadMB = 64
	}

	return Config{
		Host:     getenv("HOST", "0.0.0.0"),
		Port:     port,
		LogLevel: getenv("LOG_LEVEL", "info"),
		ASR: ASR{
			Backend:       getenv("ASR_BACKEND", "whisper"),
			ModelPath:     getenv("WHISPER_MODEL_PATH", "./models/ggml-base.bin"),
			Threads:       getenvInt("WHISPER_THREADS", runtime.NumCPU()),
			OpenAIKey:     getenv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getenv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getenv("OPENAI_MODEL", "whisper-1"),
		},
		InferenceWorkers: workers,
		InferenceTimeout: time.Duration(timeoutSec) * time.Second,
		MaxUploadBytes:   int64(uploadMB) << 20,
	}
}
