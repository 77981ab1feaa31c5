package po

import (
	"bytes"
	"fmt"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "po" }

// Export writes a gettext catalog the way lconvert maps TS files: the
// context goes to msgctxt, disambiguation is appended after a '|',
// unfinished messages are fuzzy and stale ones are commented out with #~.
func (e *Exporter) Export(c *domain.Catalog, opts ports.ExportOptions) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("msgid \"\"\nmsgstr \"\"\n")
	header := []string{
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"X-Qt-Contexts: true",
	}
	if c.Language != "" {
		header = append([]string{"Language: " + c.Language}, header...)
	}
	if c.SourceLanguage != "" {
		header = append(header, "X-Source-Language: "+c.SourceLanguage)
	}
	for _, h := range header {
		fmt.Fprintf(&b, "\"%s\\n\"\n", escape(h))
	}
	c.Each(func(ctx *domain.Context, m *domain.Message) {
		b.WriteString("\n")
		writeComments(&b, "#.", m.ExtraComment)
		writeComments(&b, "#", m.TranslatorComment)
		for _, l := range m.Locations {
			if l.Line != "" {
				fmt.Fprintf(&b, "#: %s:%s\n", l.Filename, l.Line)
			} else {
				fmt.Fprintf(&b, "#: %s\n", l.Filename)
			}
		}
		prefix := ""
		if m.Status.Stale() {
			prefix = "#~ "
		} else if m.Status == domain.StatusUnfinished {
			b.WriteString("#, fuzzy\n")
		}
		msgctxt := ctx.Name
		if m.Comment != "" {
			msgctxt += "|" + m.Comment
		}
		writeField(&b, prefix, "msgctxt", msgctxt)
		writeField(&b, prefix, "msgid", m.Source)
		if m.Numerus {
			writeField(&b, prefix, "msgid_plural", m.Source)
			forms := m.NumerusForms
			if len(forms) == 0 {
				forms = []string{""}
			}
			for i, f := range forms {
				if f == "" && opts.Fallback {
					f = m.Source
				}
				writeField(&b, prefix, fmt.Sprintf("msgstr[%d]", i), f)
			}
			return
		}
		text := m.Translation
		if text == "" && opts.Fallback {
			text = m.Source
		}
		writeField(&b, prefix, "msgstr", text)
	})
	return b.Bytes(), nil
}

func writeComments(b *bytes.Buffer, marker, text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "%s %s\n", marker, line)
	}
}

// writeField emits a keyword and its quoted value, splitting multi-line
// values after each newline the way msgcat does.
func writeField(b *bytes.Buffer, prefix, keyword, value string) {
	lines := strings.SplitAfter(value, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= 1 {
		fmt.Fprintf(b, "%s%s \"%s\"\n", prefix, keyword, escape(value))
		return
	}
	fmt.Fprintf(b, "%s%s \"\"\n", prefix, keyword)
	for _, l := range lines {
		fmt.Fprintf(b, "%s\"%s\"\n", prefix, escape(l))
	}
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return r.Replace(s)
}
