package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" validate:"oneof=development production"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Quiz       QuizConfig       `yaml:"quiz"`
	Audio      AudioConfig      `yaml:"audio"`
}

type ServerConfig struct {
	Port           string  `yaml:"port" env:"SERVER_PORT"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST" validate:"min=1"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" validate:"min=0"`
	TTL      string `yaml:"ttl" env:"REDIS_TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

type CorpusConfig struct {
	Path string `yaml:"path" env:"CORPUS_PATH"`
}

type DictionaryConfig struct {
	BaseURL  string `yaml:"base_url" env:"DICTIONARY_BASE_URL" validate:"omitempty,url"`
	Timeout  string `yaml:"timeout" env:"DICTIONARY_TIMEOUT"`
	CacheTTL string `yaml:"cache_ttl" env:"DICTIONARY_CACHE_TTL"`
}

type QuizConfig struct {
	// ExcludeFirst keeps corpus index 0 out of the draw, as the bundled word list expects.
	ExcludeFirst *bool `yaml:"exclude_first" env:"QUIZ_EXCLUDE_FIRST"`
}

type AudioConfig struct {
	DefaultClip       string  `yaml:"default_clip" env:"AUDIO_DEFAULT_CLIP"`
	CorrectClip       string  `yaml:"correct_clip" env:"AUDIO_CORRECT_CLIP"`
	WrongClip         string  `yaml:"wrong_clip" env:"AUDIO_WRONG_CLIP"`
	PronunciationRate float64 `yaml:"pronunciation_rate" env:"AUDIO_PRONUNCIATION_RATE" validate:"gte=0,lte=4"`
	FeedbackVolume    float64 `yaml:"feedback_volume" env:"AUDIO_FEEDBACK_VOLUME" validate:"gte=0,lte=1"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() Config {
	excludeFirst := true
	return Config{
		Env: "development",
		Server: ServerConfig{
			Port:           "8080",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Redis: RedisConfig{TTL: "10m"},
		Dictionary: DictionaryConfig{
			CacheTTL: "24h",
		},
		Quiz: QuizConfig{ExcludeFirst: &excludeFirst},
		Audio: AudioConfig{
			DefaultClip:       "/static/audio/loading-audio.mp3",
			CorrectClip:       "/static/audio/correct-answer.mp3",
			WrongClip:         "/static/audio/wrong-answer.mp3",
			PronunciationRate: 0.8,
			FeedbackVolume:    0.2,
		},
	}
}

// Load reads YAML config from path on top of the defaults, then applies environment
// overrides and validates the result. A missing file is tolerated when optional is set.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Quiz.ExcludeFirst == nil {
		excludeFirst := true
		cfg.Quiz.ExcludeFirst = &excludeFirst
	}
	if err := ValidateStruct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
