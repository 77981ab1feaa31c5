package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Parser struct {
	// Language is stamped on the catalog; CSV files carry none.
	Language string
}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return "csv" }

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	data = stripBOM(data)
	r := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	r.Comma = sniffComma(data)
	header, err := r.Read()
	if err != nil {
		return ports.ParseResult{}, &domain.ParseError{Format: "csv", Err: err}
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ctxIdx, ok := idx["context"]
	if !ok {
		return ports.ParseResult{}, &domain.ParseError{Format: "csv", Line: 1, Err: errors.New("missing 'context' column")}
	}
	// Support source column names
	srcIdx := -1
	for _, name := range []string{"source", "value", "text", "default"} {
		if i, ok := idx[name]; ok {
			srcIdx = i
			break
		}
	}
	if srcIdx == -1 {
		return ports.ParseResult{}, &domain.ParseError{Format: "csv", Line: 1, Err: errors.New("missing source column (source/value/text/default)")}
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}
	c := domain.NewCatalog(p.Language)
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return ports.ParseResult{}, &domain.ParseError{Format: "csv", Line: line, Err: err}
		}
		if ctxIdx >= len(rec) || srcIdx >= len(rec) {
			return ports.ParseResult{}, &domain.ParseError{Format: "csv", Line: line, Err: errors.New("short record")}
		}
		tr := col(rec, "translation")
		// Without a status column an empty translation is unfinished.
		status := domain.StatusFinished
		if tr == "" {
			status = domain.StatusUnfinished
		}
		if s := strings.TrimSpace(col(rec, "status")); s != "" {
			st, ok := domain.ParseStatus(s)
			if !ok {
				return ports.ParseResult{}, &domain.ParseError{Format: "csv", Line: line, Err: fmt.Errorf("unknown status %q", s)}
			}
			status = st
		}
		ctx := c.EnsureContext(rec[ctxIdx])
		ctx.Messages = append(ctx.Messages, &domain.Message{
			Source:      rec[srcIdx],
			Comment:     col(rec, "comment"),
			Translation: tr,
			Status:      status,
		})
	}
	return ports.ParseResult{Catalog: c, Locale: p.Language}, nil
}

// sniffComma picks the separator from the header line.
func sniffComma(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	switch {
	case bytes.Count(first, []byte{'\t'}) > bytes.Count(first, []byte{','}):
		return '\t'
	case bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}):
		return ';'
	}
	return ','
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
