// Package lint checks a catalog for data errors lupdate and lrelease
// tolerate silently.
package lint

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	"tskit/internal/domain"
	"tskit/internal/usecase/lookup"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	RuleEmptyContextName       = "empty-context-name"
	RuleDuplicateContext       = "duplicate-context"
	RuleConflictingTranslation = "conflicting-translation"
	RuleDuplicateMessage       = "duplicate-message"
	RuleMissingTranslation     = "missing-translation"
	RulePlaceholderMismatch    = "placeholder-mismatch"
	RuleAcceleratorMismatch    = "accelerator-mismatch"
	RuleEndingPunctuation      = "ending-punctuation"
	RuleNumerusForms           = "numerus-forms"
	RuleInvalidLanguage        = "invalid-language"
)

// Rule describes one check.
type Rule struct {
	ID          string
	Severity    Severity
	Description string
}

// Rules lists every check in the order findings are produced.
var Rules = []Rule{
	{RuleInvalidLanguage, SeverityWarning, "language attribute is not a valid BCP 47 tag"},
	{RuleEmptyContextName, SeverityError, "context name is empty"},
	{RuleDuplicateContext, SeverityError, "context name appears in more than one top-level block"},
	{RuleConflictingTranslation, SeverityError, "same context and source carry different translations"},
	{RuleDuplicateMessage, SeverityWarning, "same context and source repeated"},
	{RuleMissingTranslation, SeverityWarning, "finished message has no translation"},
	{RulePlaceholderMismatch, SeverityError, "%N placeholders differ between source and translation"},
	{RuleAcceleratorMismatch, SeverityWarning, "& accelerator present on one side only"},
	{RuleEndingPunctuation, SeverityWarning, "trailing punctuation differs"},
	{RuleNumerusForms, SeverityWarning, "numerus form count does not match the language"},
}

type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Context  string   `json:"context,omitempty"`
	Source   string   `json:"source,omitempty"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	if f.Context == "" && f.Source == "" {
		return fmt.Sprintf("%s [%s] %s", f.Severity, f.Rule, f.Message)
	}
	return fmt.Sprintf("%s [%s] %s / %q: %s", f.Severity, f.Rule, f.Context, f.Source, f.Message)
}

type Config struct {
	// Disabled rule ids are skipped.
	Disabled []string `yaml:"disabled"`
	// Strict makes warnings fail the run too.
	Strict bool `yaml:"strict"`
}

type Report struct {
	Findings []Finding
	strict   bool
}

func (r Report) Count(s Severity) int {
	return len(lo.Filter(r.Findings, func(f Finding, _ int) bool { return f.Severity == s }))
}

// Failed reports whether the catalog should be rejected.
func (r Report) Failed() bool {
	if r.strict {
		return len(r.Findings) > 0
	}
	return r.Count(SeverityError) > 0
}

type Linter struct {
	cfg Config
}

func New(cfg Config) *Linter { return &Linter{cfg: cfg} }

func (l *Linter) enabled(rule string) bool { return !lo.Contains(l.cfg.Disabled, rule) }

func (l *Linter) Check(c *domain.Catalog) Report {
	var out []Finding
	add := func(f Finding) {
		if l.enabled(f.Rule) {
			out = append(out, f)
		}
	}

	if c.Language != "" {
		if _, err := language.Parse(strings.ReplaceAll(c.Language, "_", "-")); err != nil {
			add(Finding{Rule: RuleInvalidLanguage, Severity: SeverityWarning, Message: fmt.Sprintf("language %q: %v", c.Language, err)})
		}
	}

	seenCtx := map[string]bool{}
	for i, ctx := range c.Contexts {
		if strings.TrimSpace(ctx.Name) == "" {
			add(Finding{Rule: RuleEmptyContextName, Severity: SeverityError, Message: fmt.Sprintf("context #%d has no name", i+1)})
			continue
		}
		if seenCtx[ctx.Name] {
			add(Finding{Rule: RuleDuplicateContext, Severity: SeverityError, Context: ctx.Name, Message: "context declared more than once"})
		}
		seenCtx[ctx.Name] = true
	}

	forms := len(lookup.PluralForms(lookup.ParseLanguage(c.Language)))
	first := map[domain.Key]domain.Entry{}
	c.Each(func(ctx *domain.Context, m *domain.Message) {
		if m.Status.Stale() {
			return
		}
		e := m.Entry(ctx.Name)
		k := e.Key()
		if prev, dup := first[k]; dup {
			if prev.Translation != "" && e.Translation != "" && prev.Translation != e.Translation {
				add(Finding{Rule: RuleConflictingTranslation, Severity: SeverityError, Context: k.Context, Source: k.Source,
					Message: fmt.Sprintf("%q conflicts with earlier %q", e.Translation, prev.Translation)})
			} else {
				add(Finding{Rule: RuleDuplicateMessage, Severity: SeverityWarning, Context: k.Context, Source: k.Source, Message: "message repeated"})
			}
			// later entries compare against the first one carrying text
			if prev.Translation == "" && e.Translation != "" {
				first[k] = e
			}
		} else {
			first[k] = e
		}

		if !m.HasText() {
			if m.Status == domain.StatusFinished {
				add(Finding{Rule: RuleMissingTranslation, Severity: SeverityWarning, Context: ctx.Name, Source: m.Source, Message: "finished but empty"})
			}
			return
		}

		sev := SeverityWarning
		if m.Status == domain.StatusFinished {
			sev = SeverityError
		}
		texts := []string{m.Translation}
		if m.Numerus {
			texts = lo.Filter(m.NumerusForms, func(s string, _ int) bool { return s != "" })
		}
		for _, tr := range texts {
			if msg := placeholderDiff(m.Source, tr); msg != "" {
				add(Finding{Rule: RulePlaceholderMismatch, Severity: sev, Context: ctx.Name, Source: m.Source, Message: msg})
			}
			if a, b := HasAccelerator(m.Source), HasAccelerator(tr); a != b {
				add(Finding{Rule: RuleAcceleratorMismatch, Severity: SeverityWarning, Context: ctx.Name, Source: m.Source,
					Message: fmt.Sprintf("accelerator in source: %t, in translation: %t", a, b)})
			}
			if a, b := ending(m.Source), ending(tr); a != b {
				add(Finding{Rule: RuleEndingPunctuation, Severity: SeverityWarning, Context: ctx.Name, Source: m.Source,
					Message: fmt.Sprintf("source ends with %s, translation with %s", describe(a), describe(b))})
			}
		}
		if m.Numerus && len(m.NumerusForms) != forms {
			add(Finding{Rule: RuleNumerusForms, Severity: SeverityWarning, Context: ctx.Name, Source: m.Source,
				Message: fmt.Sprintf("%d forms, language %q needs %d", len(m.NumerusForms), c.Language, forms)})
		}
	})
	return Report{Findings: out, strict: l.cfg.Strict}
}

func placeholderDiff(src, tr string) string {
	a, b := lookup.Numbers(src), lookup.Numbers(tr)
	missing, extra := lo.Difference(a, b)
	switch {
	case len(missing) > 0 && len(extra) > 0:
		return fmt.Sprintf("missing %s, unexpected %s", marks(missing), marks(extra))
	case len(missing) > 0:
		return "missing " + marks(missing)
	case len(extra) > 0:
		return "unexpected " + marks(extra)
	}
	return ""
}

func marks(ns []int) string {
	return strings.Join(lo.Map(ns, func(n int, _ int) string { return fmt.Sprintf("%%%d", n) }), " ")
}

// HasAccelerator reports whether s marks a keyboard mnemonic with '&'.
// "&&" is a literal ampersand and entities such as "&nbsp;" are skipped.
func HasAccelerator(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '&' || i+1 >= len(s) {
			continue
		}
		next := s[i+1]
		if next == '&' {
			i++
			continue
		}
		if n := entityLen(s[i:]); n > 0 {
			i += n - 1
			continue
		}
		if next != ' ' && next != '\t' && next != '\n' {
			return true
		}
	}
	return false
}

func entityLen(s string) int {
	j := 1
	if j < len(s) && s[j] == '#' {
		j++
	}
	start := j
	for j < len(s) && (s[j] >= 'a' && s[j] <= 'z' || s[j] >= 'A' && s[j] <= 'Z' || s[j] >= '0' && s[j] <= '9') {
		j++
	}
	if j > start && j < len(s) && s[j] == ';' {
		return j + 1
	}
	return 0
}

var fullWidth = map[rune]rune{'：': ':', '？': '?', '！': '!', '。': '.', '．': '.'}

// ending returns the trailing punctuation class of s, or 0.
func ending(s string) rune {
	s = strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(s, "...") {
		return '…'
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	if fw, ok := fullWidth[r]; ok {
		r = fw
	}
	switch r {
	case ':', '?', '!', '.', '…':
		return r
	}
	return 0
}

func describe(r rune) string {
	if r == 0 {
		return "no punctuation"
	}
	return fmt.Sprintf("%q", r)
}
