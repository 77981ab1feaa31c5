package qtts

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Format() string { return "ts" }

type tsFile struct {
	XMLName        xml.Name    `xml:"TS"`
	Version        string      `xml:"version,attr"`
	Language       string      `xml:"language,attr"`
	SourceLanguage string      `xml:"sourcelanguage,attr"`
	Contexts       []tsContext `xml:"context"`
}

type tsContext struct {
	Name     tsText      `xml:"name"`
	Comment  tsText      `xml:"comment"`
	Messages []tsMessage `xml:"message"`
}

type tsLocation struct {
	Filename string `xml:"filename,attr"`
	Line     string `xml:"line,attr"`
}

type tsMessage struct {
	ID                string         `xml:"id,attr"`
	Numerus           string         `xml:"numerus,attr"`
	Locations         []tsLocation   `xml:"location"`
	Source            tsText         `xml:"source"`
	OldSource         tsText         `xml:"oldsource"`
	Comment           tsText         `xml:"comment"`
	OldComment        tsText         `xml:"oldcomment"`
	ExtraComment      tsText         `xml:"extracomment"`
	TranslatorComment tsText         `xml:"translatorcomment"`
	Translation       *tsTranslation `xml:"translation"`
}

type tsTranslation struct {
	Type         string
	Text         string
	NumerusForms []string
}

func (p *Parser) Parse(data []byte) (ports.ParseResult, error) {
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return ports.ParseResult{}, &domain.ParseError{Format: "ts", Err: errors.New("empty document")}
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	var doc tsFile
	if err := dec.Decode(&doc); err != nil {
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return ports.ParseResult{}, &domain.ParseError{Format: "ts", Line: se.Line, Err: errors.New(se.Msg)}
		}
		return ports.ParseResult{}, &domain.ParseError{Format: "ts", Err: err}
	}
	c := &domain.Catalog{Version: doc.Version, Language: doc.Language, SourceLanguage: doc.SourceLanguage}
	for _, tc := range doc.Contexts {
		ctx := &domain.Context{Name: string(tc.Name), Comment: string(tc.Comment), Messages: make([]*domain.Message, 0, len(tc.Messages))}
		for _, tm := range tc.Messages {
			m, err := toMessage(tm)
			if err != nil {
				return ports.ParseResult{}, &domain.ParseError{Format: "ts", Err: fmt.Errorf("context %q, source %q: %w", string(tc.Name), string(tm.Source), err)}
			}
			ctx.Messages = append(ctx.Messages, m)
		}
		c.Contexts = append(c.Contexts, ctx)
	}
	return ports.ParseResult{Catalog: c, Locale: doc.Language}, nil
}

func toMessage(tm tsMessage) (*domain.Message, error) {
	m := &domain.Message{
		ID:                tm.ID,
		Source:            string(tm.Source),
		OldSource:         string(tm.OldSource),
		Comment:           string(tm.Comment),
		OldComment:        string(tm.OldComment),
		ExtraComment:      string(tm.ExtraComment),
		TranslatorComment: string(tm.TranslatorComment),
		Numerus:           tm.Numerus == "yes",
	}
	for _, l := range tm.Locations {
		m.Locations = append(m.Locations, domain.Location{Filename: l.Filename, Line: l.Line})
	}
	// A message without <translation> has never been touched by a translator.
	if tm.Translation == nil {
		m.Status = domain.StatusUnfinished
		return m, nil
	}
	st, ok := domain.ParseStatus(tm.Translation.Type)
	if !ok {
		return nil, fmt.Errorf("unknown translation type %q", tm.Translation.Type)
	}
	m.Status = st
	if m.Numerus {
		m.NumerusForms = append([]string(nil), tm.Translation.NumerusForms...)
	} else {
		m.Translation = tm.Translation.Text
	}
	return m, nil
}

// tsText is element text that may embed <byte value="x1b"/> for characters
// XML 1.0 cannot carry.
type tsText string

func (t *tsText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			if v.Name.Local == "byte" {
				r, err := byteValue(v)
				if err != nil {
					return err
				}
				b.WriteRune(r)
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			*t = tsText(b.String())
			return nil
		}
	}
}

func (tr *tsTranslation) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			tr.Type = a.Value
		}
	}
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			switch v.Name.Local {
			case "numerusform":
				var form tsText
				if err := d.DecodeElement(&form, &v); err != nil {
					return err
				}
				tr.NumerusForms = append(tr.NumerusForms, string(form))
			case "byte":
				r, err := byteValue(v)
				if err != nil {
					return err
				}
				b.WriteRune(r)
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				// lengthvariant and unknown children are not kept
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			tr.Text = b.String()
			return nil
		}
	}
}

func byteValue(el xml.StartElement) (rune, error) {
	for _, a := range el.Attr {
		if a.Name.Local != "value" {
			continue
		}
		v := a.Value
		base := 10
		if strings.HasPrefix(v, "x") {
			v, base = v[1:], 16
		}
		n, err := strconv.ParseUint(v, base, 32)
		if err != nil {
			return 0, fmt.Errorf("bad byte value %q", a.Value)
		}
		return rune(n), nil
	}
	return 0, errors.New("byte element without value")
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
