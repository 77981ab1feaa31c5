package nestedjson

import (
	"bytes"
	"encoding/json"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

const commentSep = "\x04"

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "json" }

// Export writes contexts and sources in catalog order. Stale messages are
// left out and only finished texts are exported.
func (e *Exporter) Export(c *domain.Catalog, opts ports.ExportOptions) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("{")
	firstCtx := true
	for _, ctx := range c.Contexts {
		if !firstCtx {
			b.WriteString(",")
		}
		firstCtx = false
		b.WriteString("\n  ")
		writeString(&b, ctx.Name)
		b.WriteString(": {")
		first := true
		for _, m := range ctx.Messages {
			if m.Status.Stale() {
				continue
			}
			v := ""
			if m.Status == domain.StatusFinished {
				v = m.Entry(ctx.Name).Translation
			}
			if v == "" && opts.Fallback {
				v = m.Source
			}
			key := m.Source
			if m.Comment != "" {
				key = m.Comment + commentSep + m.Source
			}
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString("\n    ")
			writeString(&b, key)
			b.WriteString(": ")
			writeString(&b, v)
		}
		if !first {
			b.WriteString("\n  ")
		}
		b.WriteString("}")
	}
	if !firstCtx {
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func writeString(b *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// encoding a string cannot fail
	_ = enc.Encode(s)
	b.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
