package prompt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"tskit/internal/ports"
)

const TypeTranslate = "translate_message"

// Renderer expands prompt templates. Overrides are keyed "type/role" and
// replace the builtin body for that pair.
type Renderer struct {
	Overrides map[string]string

	mu    sync.Mutex
	cache map[string]*template.Template
}

func New(overrides map[string]string) *Renderer {
	return &Renderer{Overrides: overrides, cache: map[string]*template.Template{}}
}

func (r *Renderer) Render(ctx context.Context, typ, role string, data ports.PromptData) (string, error) {
	tpl, err := r.template(typ, role)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", typ, role, err)
	}
	return buf.String(), nil
}

func (r *Renderer) template(typ, role string) (*template.Template, error) {
	key := typ + "/" + role
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.cache[key]; ok {
		return t, nil
	}
	body := builtinTemplate(typ, role)
	if o := strings.TrimSpace(r.Overrides[key]); o != "" {
		body = o
	}
	if body == "" {
		return nil, fmt.Errorf("no prompt template for %s", key)
	}
	t, err := template.New(key).Funcs(template.FuncMap{"join": strings.Join}).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", key, err)
	}
	r.cache[key] = t
	return t, nil
}

func builtinTemplate(typ, role string) string {
	switch {
	case typ == TypeTranslate && role == "system":
		return "You are a professional software localization translator. Translate user interface text from {{.SrcLang}} to {{.TgtLang}}. " +
			"Keep every token of the form __PH_N__ or __TAG_N__ exactly as written{{if .Placeholders}} (this text has: {{join .Placeholders \", \"}}){{end}}. " +
			"Keep a single '&' keyboard accelerator if the source has one and keep trailing punctuation and line breaks. " +
			"Return only JSON: {\"translation\":\"...\"}."
	case typ == TypeTranslate && role == "user":
		return "context: {{.Context}}{{if .Comment}}\nnote: {{.Comment}}{{end}}\nsource: {{.Text}}"
	}
	return ""
}
