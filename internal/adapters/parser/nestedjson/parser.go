package nestedjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

// CommentSep joins a disambiguation comment and a source into one JSON key.
const CommentSep = "\x04"

type Parser struct {
	Language string
}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return "json" }

// Parse reads {"context": {"source": "translation"}} keeping key order,
// which a plain map decode would lose.
func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	data = stripBOM(data)
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
	}
	c := domain.NewCatalog(p.Language)
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
		}
		// Ignore metadata fields like $schema
		if strings.HasPrefix(name, "$") {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
			}
			continue
		}
		if err := expectDelim(dec, '{'); err != nil {
			return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: fmt.Errorf("context %q: %w", name, err)}
		}
		ctx := c.EnsureContext(name)
		for dec.More() {
			key, err := readKey(dec)
			if err != nil {
				return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
			}
			var val string
			if err := dec.Decode(&val); err != nil {
				return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: fmt.Errorf("context %q, key %q: %w", name, key, err)}
			}
			m := &domain.Message{Source: key, Translation: val, Status: domain.StatusFinished}
			if i := strings.Index(key, CommentSep); i >= 0 {
				m.Comment, m.Source = key[:i], key[i+len(CommentSep):]
			}
			if val == "" {
				m.Status = domain.StatusUnfinished
			}
			ctx.Messages = append(ctx.Messages, m)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return ports.ParseResult{}, &domain.ParseError{Format: "json", Err: err}
	}
	return ports.ParseResult{Catalog: c, Locale: p.Language}, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
