package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"

	"spelling-quiz-service/internal/domain"
)

//go:embed words.json
var embeddedCorpus []byte

// JSONCorpusLoader reads the word corpus from a JSON array of {"word","audio"} objects.
// An empty path falls back to the corpus compiled into the binary.
type JSONCorpusLoader struct {
	path string
}

func NewJSONCorpusLoader(path string) *JSONCorpusLoader {
	return &JSONCorpusLoader{path: path}
}

func (l *JSONCorpusLoader) LoadCorpus(_ context.Context) (domain.Corpus, error) {
	data := embeddedCorpus
	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		data = raw
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes a JSON corpus, trimming surrounding whitespace from words and clip refs.
func ParseCorpus(data []byte) (domain.Corpus, error) {
	var entries []domain.WordEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return lo.Map(entries, func(e domain.WordEntry, _ int) domain.WordEntry {
		return domain.WordEntry{
			Word:     strings.TrimSpace(e.Word),
			AudioRef: strings.TrimSpace(e.AudioRef),
		}
	}), nil
}

// StaticCorpusLoader serves a fixed corpus (useful for tests/demos).
type StaticCorpusLoader struct {
	corpus domain.Corpus
}

func NewStaticCorpusLoader(corpus domain.Corpus) *StaticCorpusLoader {
	return &StaticCorpusLoader{corpus: corpus}
}

func (l *StaticCorpusLoader) LoadCorpus(_ context.Context) (domain.Corpus, error) {
	return l.corpus, nil
}
