package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spelling-quiz-service/internal/domain"
)

// DefaultBaseURL is the free dictionary API endpoint for English entries.
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

type entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic"`
	Meanings []meaning `json:"meanings"`
}

type meaning struct {
	PartOfSpeech string `json:"partOfSpeech"`
	Definitions  []struct {
		Definition string `json:"definition"`
	} `json:"definitions"`
}

// Client resolves words against dictionaryapi.dev.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup returns the first definition of the first meaning of the first entry.
func (c *Client) Lookup(ctx context.Context, word string) (domain.Definition, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(word)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Definition{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("lookup %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Definition{}, fmt.Errorf("lookup %q: %w", word, domain.ErrDefinitionNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Definition{}, fmt.Errorf("lookup %q: unexpected status %d", word, resp.StatusCode)
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return domain.Definition{}, fmt.Errorf("decode definition for %q: %w", word, err)
	}
	return firstDefinition(word, entries)
}

func firstDefinition(word string, entries []entry) (domain.Definition, error) {
	if len(entries) == 0 || len(entries[0].Meanings) == 0 || len(entries[0].Meanings[0].Definitions) == 0 {
		return domain.Definition{}, fmt.Errorf("lookup %q: %w", word, domain.ErrDefinitionNotFound)
	}
	first := entries[0].Meanings[0]
	return domain.Definition{
		Meaning:      first.Definitions[0].Definition,
		PartOfSpeech: first.PartOfSpeech,
		Phonetic:     entries[0].Phonetic,
	}, nil
}
