package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spelling-quiz-service/internal/domain"
)

const appleResponse = `[{
  "word": "apple",
  "phonetic": "/ˈæp.əl/",
  "meanings": [
    {"partOfSpeech": "noun", "definitions": [{"definition": "A common, round fruit."}, {"definition": "The tree."}]},
    {"partOfSpeech": "verb", "definitions": [{"definition": "Unused."}]}
  ]
}, {
  "word": "apple",
  "phonetic": "/other/",
  "meanings": []
}]`

func TestClient_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    domain.Definition
		wantErr error
		anyErr  bool
	}{
		{
			name:   "first meaning of first entry",
			status: http.StatusOK,
			body:   appleResponse,
			want: domain.Definition{
				Meaning:      "A common, round fruit.",
				PartOfSpeech: "noun",
				Phonetic:     "/ˈæp.əl/",
			},
		},
		{
			name:    "word not found",
			status:  http.StatusNotFound,
			body:    `{"title":"No Definitions Found"}`,
			wantErr: domain.ErrDefinitionNotFound,
		},
		{
			name:    "empty entries",
			status:  http.StatusOK,
			body:    `[]`,
			wantErr: domain.ErrDefinitionNotFound,
		},
		{
			name:    "entry without definitions",
			status:  http.StatusOK,
			body:    `[{"word":"apple","meanings":[{"partOfSpeech":"noun","definitions":[]}]}]`,
			wantErr: domain.ErrDefinitionNotFound,
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{not json`,
			anyErr: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   ``,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			paths := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				paths <- r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL+"/api/v2/entries/en/", 0)
			def, err := client.Lookup(context.Background(), "apple")

			assert.Equal(t, "/api/v2/entries/en/apple", <-paths)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, def)
			}
		})
	}
}

func TestClient_LookupNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0).Lookup(context.Background(), "apple")
	require.Error(t, err)
}
