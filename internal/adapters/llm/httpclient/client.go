package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tskit/internal/ports"
)

const (
	TypeOllama     = "ollama"
	TypeOpenRouter = "openrouter"

	defaultOllamaURL     = "http://localhost:11434"
	defaultOpenRouterURL = "https://openrouter.ai"
)

var ErrUnparsable = ports.ErrUnparsable

type Client struct {
	ProviderType string
	APIKey       string
	BaseURL      string
	Model        string
	http         *resty.Client
}

func New(providerType, apiKey, baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "tskit")
	return &Client{ProviderType: strings.ToLower(providerType), APIKey: apiKey, BaseURL: baseURL, Model: model, http: c}
}

func (c *Client) Translate(ctx context.Context, seg ports.Segment, p ports.TranslateParams) (ports.TranslateResult, error) {
	switch c.ProviderType {
	case TypeOpenRouter:
		return c.translateOpenRouter(ctx, p)
	case TypeOllama:
		return c.translateOllama(ctx, p)
	default:
		return ports.TranslateResult{}, fmt.Errorf("unsupported provider: %s", c.ProviderType)
	}
}

func (c *Client) ListModels(ctx context.Context) ([]ports.ModelInfo, error) {
	switch c.ProviderType {
	case TypeOllama:
		var resp struct {
			Models []struct {
				Name string `json:"name"`
			} `json:"models"`
		}
		r, err := c.http.R().SetContext(ctx).SetResult(&resp).Get(c.ollamaURL("/api/tags"))
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("ollama list models: %s; body: %s", r.Status(), abbreviate(r.String(), 500))
		}
		out := make([]ports.ModelInfo, 0, len(resp.Models))
		for _, m := range resp.Models {
			out = append(out, ports.ModelInfo{Name: m.Name})
		}
		return out, nil
	case TypeOpenRouter:
		var resp struct {
			Data []struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				ContextLength int    `json:"context_length"`
			} `json:"data"`
		}
		r, err := c.openRouter(ctx).SetResult(&resp).Get(openRouterURL(c.baseOr(defaultOpenRouterURL), "/models"))
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("openrouter list models: %s; body: %s", r.Status(), abbreviate(r.String(), 500))
		}
		out := make([]ports.ModelInfo, 0, len(resp.Data))
		for _, d := range resp.Data {
			label := d.Name
			if label == "" {
				label = d.ID
			}
			out = append(out, ports.ModelInfo{Name: d.ID, Description: label, ContextTokens: d.ContextLength})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.ProviderType)
	}
}

func (c *Client) Test(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

func (c *Client) baseOr(def string) string {
	if c.BaseURL == "" {
		return def
	}
	return c.BaseURL
}

func (c *Client) ollamaURL(tail string) string {
	return strings.TrimRight(c.baseOr(defaultOllamaURL), "/") + tail
}

func (c *Client) openRouter(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.APIKey).
		SetHeader("X-Title", "tskit")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func messages(p ports.TranslateParams) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: p.SystemPrompt},
		{Role: "user", Content: p.UserPrompt},
	}
}

var translationSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "translation",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"translation": map[string]any{"type": "string"},
			},
			"required":             []string{"translation"},
			"additionalProperties": false,
		},
	},
}

func (c *Client) translateOpenRouter(ctx context.Context, p ports.TranslateParams) (ports.TranslateResult, error) {
	url := openRouterURL(c.baseOr(defaultOpenRouterURL), "/chat/completions")
	model := p.Model
	if model == "" {
		model = c.Model
	}
	body := map[string]any{
		"model":           model,
		"messages":        messages(p),
		"temperature":     p.Temperature,
		"response_format": translationSchema,
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	r, err := c.openRouter(ctx).SetBody(body).SetResult(&resp).Post(url)
	if err != nil {
		return ports.TranslateResult{}, err
	}
	// Models without structured output reject json_schema with a 400.
	if r.StatusCode() == 400 {
		body["response_format"] = map[string]string{"type": "json_object"}
		r, err = c.openRouter(ctx).SetBody(body).SetResult(&resp).Post(url)
		if err != nil {
			return ports.TranslateResult{}, err
		}
	}
	if r.IsError() {
		return ports.TranslateResult{}, fmt.Errorf("openrouter translate: %s; body: %s", r.Status(), abbreviate(r.String(), 500))
	}
	if len(resp.Choices) == 0 {
		return ports.TranslateResult{}, fmt.Errorf("openrouter translate: no choices returned: %w", ErrUnparsable)
	}
	return result(resp.Choices[0].Message.Content)
}

func (c *Client) translateOllama(ctx context.Context, p ports.TranslateParams) (ports.TranslateResult, error) {
	model := p.Model
	if model == "" {
		model = c.Model
	}
	body := map[string]any{
		"model":    model,
		"messages": messages(p),
		"stream":   false,
		"format":   "json",
		"options":  map[string]any{"temperature": p.Temperature},
	}
	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	r, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&resp).Post(c.ollamaURL("/api/chat"))
	if err != nil {
		return ports.TranslateResult{}, err
	}
	if r.IsError() {
		return ports.TranslateResult{}, fmt.Errorf("ollama translate: %s; body: %s", r.Status(), abbreviate(r.String(), 500))
	}
	return result(resp.Message.Content)
}

func result(content string) (ports.TranslateResult, error) {
	content = strings.TrimSpace(content)
	tr, err := extractTranslation(content)
	if err != nil {
		return ports.TranslateResult{}, err
	}
	return ports.TranslateResult{Translation: tr, Raw: content}, nil
}

var translationRE = regexp.MustCompile(`(?s)"translation"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractTranslation accepts a JSON object, a fenced JSON block, JSON
// embedded in prose or, as a last resort, a plain text answer.
func extractTranslation(content string) (string, error) {
	s := strings.TrimSpace(content)
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := strings.TrimPrefix(s[idx+3:], "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}
	if t, ok := fromJSON(s); ok {
		return t, nil
	}
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			if t, ok := fromJSON(s[i : j+1]); ok {
				return t, nil
			}
		}
	}
	if m := translationRE.FindStringSubmatch(s); len(m) == 2 {
		var t string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &t); err == nil {
			return t, nil
		}
		return m[1], nil
	}
	if !strings.Contains(s, "{") {
		lower := strings.ToLower(s)
		for _, k := range []string{"translation:", "translated:", "result:", "output:"} {
			if pos := strings.Index(lower, k); pos >= 0 && pos < 80 {
				if cand := strings.TrimSpace(s[pos+len(k):]); cand != "" {
					return cand, nil
				}
			}
		}
		if s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnparsable, abbreviate(s, 2000))
}

func fromJSON(s string) (string, bool) {
	var obj struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj.Translation == "" {
		return "", false
	}
	return obj.Translation, true
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// openRouterURL builds an API URL whether or not base already ends in /api/v1.
func openRouterURL(base, tail string) string {
	b := strings.TrimRight(base, "/")
	if idx := strings.Index(b, "/api/v1"); idx >= 0 {
		return b[:idx+len("/api/v1")] + tail
	}
	return b + "/api/v1" + tail
}
