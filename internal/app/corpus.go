package app

import (
	"context"

	"spelling-quiz-service/internal/domain"
)

// CorpusLoader fetches the word corpus from a backing store (file, Postgres, etc).
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) (domain.Corpus, error)
}
