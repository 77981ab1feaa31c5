package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tskit/internal/ports"
)

func TestExtractTranslation(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"translation": "Color (%1)"}`, "Color (%1)"},
		{"```json\n{\"translation\": \"Desa\"}\n```", "Desa"},
		{`Sure! {"translation": "Obre"} Hope it helps`, "Obre"},
		{`{"translation": "Lot: %1\n", "notes": {"x": 1}`, "Lot: %1\n"},
		{"Translation: Quant a", "Quant a"},
		{"Bull", "Bull"},
		{`{"translation": "Di \"hola\""}`, `Di "hola"`},
	}
	for _, tc := range cases {
		got, err := extractTranslation(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := extractTranslation(`{"answer": 42}`)
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestOpenRouterURL(t *testing.T) {
	assert.Equal(t, "https://openrouter.ai/api/v1/models", openRouterURL("https://openrouter.ai/", "/models"))
	assert.Equal(t, "https://x.test/api/v1/chat/completions", openRouterURL("https://x.test/api/v1/chat", "/chat/completions"))
}

func TestOllamaTranslate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"message": {"content": "{\"translation\": \"Color (%1)\"}"}}`))
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models": [{"name": "llama3"}, {"name": "qwen2"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New("Ollama", "", srv.URL, "llama3", time.Second)
	res, err := c.Translate(context.Background(), ports.Segment{Text: "Color (%1)"}, ports.TranslateParams{SystemPrompt: "sys", UserPrompt: "usr", Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Color (%1)", res.Translation)
	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, false, got["stream"])

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "qwen2", models[1].Name)
	assert.NoError(t, c.Test(context.Background()))
}

func TestOpenRouterFallsBackToJSONObject(t *testing.T) {
	var formats []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body struct {
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		formats = append(formats, body.ResponseFormat.Type)
		if body.ResponseFormat.Type == "json_schema" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "schema unsupported"}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"translation\": \"Obre\"}"}}]}`))
	}))
	defer srv.Close()

	c := New(TypeOpenRouter, "secret", srv.URL, "m", time.Second)
	res, err := c.Translate(context.Background(), ports.Segment{}, ports.TranslateParams{})
	require.NoError(t, err)
	assert.Equal(t, "Obre", res.Translation)
	assert.Equal(t, []string{"json_schema", "json_object"}, formats)
}

func TestTranslateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := New(TypeOllama, "", srv.URL, "m", time.Second).Translate(context.Background(), ports.Segment{}, ports.TranslateParams{})
	assert.ErrorContains(t, err, "ollama translate: 500")

	_, err = New("deepl", "", srv.URL, "m", time.Second).Translate(context.Background(), ports.Segment{}, ports.TranslateParams{})
	assert.ErrorContains(t, err, "unsupported provider")
}
