package ports

import "tskit/internal/domain"

type ExportOptions struct {
	// Fallback writes the source text where a message has no translation.
	Fallback bool
	// Separator is a CSV hint: comma, semicolon or tab.
	Separator string
}

type Exporter interface {
	Format() string
	Export(c *domain.Catalog, opts ExportOptions) ([]byte, error)
}
