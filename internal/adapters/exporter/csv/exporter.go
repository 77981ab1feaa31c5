package csv

import (
	"bytes"
	"encoding/csv"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "csv" }

func (e *Exporter) Export(c *domain.Catalog, opts ports.ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	switch strings.TrimSpace(strings.ToLower(opts.Separator)) {
	case "semicolon":
		w.Comma = ';'
	case "tab":
		w.Comma = '\t'
	default:
		w.Comma = ','
	}
	if err := w.Write([]string{"context", "source", "comment", "translation", "status"}); err != nil {
		return nil, err
	}
	var err error
	c.Each(func(ctx *domain.Context, m *domain.Message) {
		if err != nil {
			return
		}
		v := m.Entry(ctx.Name).Translation
		if v == "" && opts.Fallback {
			v = m.Source
		}
		err = w.Write([]string{ctx.Name, m.Source, m.Comment, v, string(m.Status)})
	})
	if err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
