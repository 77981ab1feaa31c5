// Package lookup resolves source strings against a loaded catalog the way a
// Qt application does at runtime: finished translations replace the source,
// everything else falls back to it.
package lookup

import (
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tskit/internal/domain"
)

type Option func(*Translator)

// WithUnfinished also serves non-empty unfinished translations, which is
// what lrelease does unless run with -nounfinished.
func WithUnfinished() Option {
	return func(t *Translator) { t.unfinished = true }
}

// Translator is an immutable index over one catalog. It is safe for
// concurrent use.
type Translator struct {
	lang       language.Tag
	rules      language.Tag
	index      map[domain.Key]*domain.Message
	forms      []plural.Form
	printer    *message.Printer
	unfinished bool
}

func New(c *domain.Catalog, opts ...Option) *Translator {
	t := &Translator{index: map[domain.Key]*domain.Message{}}
	for _, o := range opts {
		o(t)
	}
	lang := ""
	if c != nil {
		lang = c.Language
		c.Each(func(ctx *domain.Context, m *domain.Message) {
			k := m.Key(ctx.Name)
			// first occurrence wins, like lrelease
			if _, dup := t.index[k]; !dup {
				t.index[k] = m
			}
		})
	}
	t.lang = ParseLanguage(lang)
	t.rules = t.lang
	if t.rules == language.Und {
		t.rules = language.English
	}
	t.forms = PluralForms(t.rules)
	t.printer = message.NewPrinter(t.lang)
	return t
}

// Language is the catalog language tag; und when unknown.
func (t *Translator) Language() language.Tag { return t.lang }

// Len is the number of distinct keys.
func (t *Translator) Len() int { return len(t.index) }

// Lookup returns the text to display for k and whether it came from the
// catalog rather than the source fallback.
func (t *Translator) Lookup(k domain.Key) (string, bool) {
	m, ok := t.index[k]
	if !ok || m.Numerus || !t.usable(m) || m.Translation == "" {
		return k.Source, false
	}
	return m.Translation, true
}

func (t *Translator) Translate(context, source string) string {
	s, _ := t.Lookup(domain.Key{Context: context, Source: source})
	return s
}

// TranslateKey is Translate with a disambiguation comment.
func (t *Translator) TranslateKey(k domain.Key) string {
	s, _ := t.Lookup(k)
	return s
}

// TranslateN picks the plural form for n and substitutes %n and %Ln. The
// source is used, with the same substitution, when no usable form exists.
func (t *Translator) TranslateN(context, source string, n int) string {
	return t.TranslateKeyN(domain.Key{Context: context, Source: source}, n)
}

func (t *Translator) TranslateKeyN(k domain.Key, n int) string {
	text := k.Source
	if m, ok := t.index[k]; ok && t.usable(m) {
		switch {
		case m.Numerus:
			if f := t.FormIndex(n); f < len(m.NumerusForms) && m.NumerusForms[f] != "" {
				text = m.NumerusForms[f]
			}
		case m.Translation != "":
			text = m.Translation
		}
	}
	return t.substituteN(text, n)
}

// FormIndex is the position of the numerus form used for n.
func (t *Translator) FormIndex(n int) int {
	if n < 0 {
		n = -n
	}
	f := plural.Cardinal.MatchPlural(t.rules, n, 0, 0, 0, 0)
	for i, x := range t.forms {
		if x == f {
			return i
		}
	}
	return len(t.forms) - 1
}

// FormCount is how many numerus forms a message needs in this language.
func (t *Translator) FormCount() int { return len(t.forms) }

func (t *Translator) usable(m *domain.Message) bool {
	switch m.Status {
	case domain.StatusFinished:
		return true
	case domain.StatusUnfinished:
		return t.unfinished
	}
	return false
}

func (t *Translator) substituteN(s string, n int) string {
	if !strings.Contains(s, "%") {
		return s
	}
	s = strings.ReplaceAll(s, "%Ln", t.printer.Sprintf("%d", n))
	return strings.ReplaceAll(s, "%n", strconv.Itoa(n))
}

// ParseLanguage accepts TS language codes such as "ca", "pt_BR" or "de-AT".
func ParseLanguage(code string) language.Tag {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return language.Und
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}

// cldrOrder is the order in which numerus forms are stored.
var cldrOrder = []plural.Form{plural.Zero, plural.One, plural.Two, plural.Few, plural.Many, plural.Other}

// PluralForms lists the cardinal forms integers can take in lang, in
// storage order. Languages without data fall back to English rules.
func PluralForms(lang language.Tag) []plural.Form {
	if lang == language.Und {
		lang = language.English
	}
	seen := map[plural.Form]bool{}
	for n := 0; n <= 1000; n++ {
		seen[plural.Cardinal.MatchPlural(lang, n, 0, 0, 0, 0)] = true
	}
	var out []plural.Form
	for _, f := range cldrOrder {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}
