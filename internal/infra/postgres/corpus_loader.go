package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"spelling-quiz-service/internal/domain"
)

// CorpusLoader loads the word corpus from the words table in position order.
type CorpusLoader struct {
	pool *pgxpool.Pool
}

func NewCorpusLoader(pool *pgxpool.Pool) *CorpusLoader {
	return &CorpusLoader{pool: pool}
}

func (l *CorpusLoader) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	rows, err := l.pool.Query(ctx, `SELECT word, audio FROM words ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	defer rows.Close()

	var corpus domain.Corpus
	for rows.Next() {
		var entry domain.WordEntry
		if err := rows.Scan(&entry.Word, &entry.AudioRef); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		corpus = append(corpus, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return corpus, nil
}
