package qtts

import (
	"bytes"
	"fmt"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "ts" }

// Export writes the catalog in the layout lupdate produces, so files that
// came out of lupdate re-serialize byte for byte.
func (e *Exporter) Export(c *domain.Catalog, opts ports.ExportOptions) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	b.WriteString("<!DOCTYPE TS>\n")
	b.WriteString("<TS")
	writeAttr(&b, "version", c.Version)
	writeAttr(&b, "language", c.Language)
	writeAttr(&b, "sourcelanguage", c.SourceLanguage)
	b.WriteString(">\n")
	for _, ctx := range c.Contexts {
		b.WriteString("<context>\n")
		writeElement(&b, 4, "name", ctx.Name)
		if ctx.Comment != "" {
			writeElement(&b, 4, "comment", ctx.Comment)
		}
		for _, m := range ctx.Messages {
			writeMessage(&b, m, opts.Fallback)
		}
		b.WriteString("</context>\n")
	}
	b.WriteString("</TS>\n")
	return b.Bytes(), nil
}

func writeMessage(b *bytes.Buffer, m *domain.Message, fallback bool) {
	b.WriteString("    <message")
	writeAttr(b, "id", m.ID)
	if m.Numerus {
		writeAttr(b, "numerus", "yes")
	}
	b.WriteString(">\n")
	for _, l := range m.Locations {
		b.WriteString("        <location")
		writeAttr(b, "filename", l.Filename)
		writeAttr(b, "line", l.Line)
		b.WriteString("/>\n")
	}
	writeElement(b, 8, "source", m.Source)
	optional := []struct{ name, text string }{
		{"oldsource", m.OldSource},
		{"comment", m.Comment},
		{"oldcomment", m.OldComment},
		{"extracomment", m.ExtraComment},
		{"translatorcomment", m.TranslatorComment},
	}
	for _, o := range optional {
		if o.text != "" {
			writeElement(b, 8, o.name, o.text)
		}
	}
	b.WriteString("        <translation")
	writeAttr(b, "type", m.Status.Attr())
	b.WriteString(">")
	if m.Numerus {
		b.WriteString("\n")
		for _, f := range m.NumerusForms {
			if f == "" && fallback {
				f = m.Source
			}
			writeElement(b, 12, "numerusform", f)
		}
		b.WriteString("        ")
	} else {
		text := m.Translation
		if text == "" && fallback {
			text = m.Source
		}
		b.WriteString(protect(text))
	}
	b.WriteString("</translation>\n")
	b.WriteString("    </message>\n")
}

func writeElement(b *bytes.Buffer, indent int, name, text string) {
	b.WriteString(strings.Repeat(" ", indent))
	fmt.Fprintf(b, "<%s>%s</%s>\n", name, protect(text), name)
}

func writeAttr(b *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, " %s=\"%s\"", name, protect(value))
}

// protect escapes text the way lupdate does: the five XML entities, and
// control characters as <byte/> elements.
func protect(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
				fmt.Fprintf(&b, "<byte value=\"x%x\"/>", r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
