package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spelling-quiz-service/internal/app"
	"spelling-quiz-service/internal/config"
	"spelling-quiz-service/internal/infra/dictionary"
	"spelling-quiz-service/internal/infra/memory"
	pgloader "spelling-quiz-service/internal/infra/postgres"
	rediscache "spelling-quiz-service/internal/infra/redis"
)

// backends holds the shared infrastructure every session is built on.
type backends struct {
	template    app.ControllerConfig
	newPicker   func() app.Picker
	redisClient *redis.Client
	pool        *pgxpool.Pool
}

func (b *backends) Close() {
	if b.redisClient != nil {
		_ = b.redisClient.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func buildBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	var loader app.CorpusLoader = memory.NewJSONCorpusLoader(cfg.Corpus.Path)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		loader = pgloader.NewCorpusLoader(pool)
	}

	corpus, err := loader.LoadCorpus(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	logger.Info("corpus loaded", zap.Int("words", len(corpus)))

	client := dictionary.NewClient(cfg.Dictionary.BaseURL, config.TTLDuration(cfg.Dictionary.Timeout, 0))
	cacheTTL := config.TTLDuration(cfg.Dictionary.CacheTTL, 24*time.Hour)

	var lookup app.DefinitionLookup = memory.NewDefinitionCache(client, cacheTTL)
	if cfg.Redis.Addr != "" {
		b.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lookup = rediscache.NewDefinitionCache(b.redisClient, client, cacheTTL)
	}

	excludeFirst := cfg.Quiz.ExcludeFirst == nil || *cfg.Quiz.ExcludeFirst
	b.newPicker = func() app.Picker { return app.NewRandomPicker(excludeFirst) }
	b.template = app.ControllerConfig{
		Corpus: corpus,
		Lookup: lookup,
		Audio: app.AudioSettings{
			DefaultClip:       cfg.Audio.DefaultClip,
			CorrectClip:       cfg.Audio.CorrectClip,
			WrongClip:         cfg.Audio.WrongClip,
			PronunciationRate: cfg.Audio.PronunciationRate,
			FeedbackVolume:    cfg.Audio.FeedbackVolume,
		},
		Log: logger,
	}
	return b, nil
}

func (b *backends) sessionStore(cfg config.Config) app.SessionRepository {
	if b.redisClient != nil {
		return rediscache.NewSessionStore(b.redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}
