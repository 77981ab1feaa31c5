package factory

import (
	"fmt"
	"time"

	httpprov "tskit/internal/adapters/llm/httpclient"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

// FromProvider returns an HTTP-backed provider for the given record.
func FromProvider(p *domain.Provider, timeout time.Duration) (ports.Provider, error) {
	switch p.Type {
	case httpprov.TypeOllama, httpprov.TypeOpenRouter:
		return httpprov.New(p.Type, p.APIKey, p.BaseURL, p.Model, timeout), nil
	}
	return nil, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
}
