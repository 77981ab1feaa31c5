package translator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tskit/internal/domain"
	"tskit/internal/ports"
)

// ErrTokenLost is returned when a masked placeholder or tag did not survive
// the model round trip.
var ErrTokenLost = errors.New("token missing in translation")

type Deps struct {
	// Cache is optional.
	Cache  ports.CacheRepository
	Prompt ports.PromptRenderer
	// BuildProvider returns the transport for a provider record.
	BuildProvider func(*domain.Provider) (ports.Provider, error)
	Log           *logrus.Entry
}

type Service struct {
	d Deps

	mu       sync.Mutex
	adapters map[string]ports.Provider
	// backoff is the base delay between retries.
	backoff time.Duration
}

func New(d Deps) *Service {
	return &Service{d: d, adapters: map[string]ports.Provider{}, backoff: 200 * time.Millisecond}
}

type TranslateArgs struct {
	Provider *domain.Provider
	Context  string
	Source   string
	// Comment is shown to the model: disambiguation and developer notes.
	Comment     string
	SourceLang  string
	TargetLang  string
	Model       string
	Temperature float64
	BypassCache bool
}

const maxAttempts = 3

func (s *Service) TranslateOne(ctx context.Context, a TranslateArgs) (string, error) {
	if a.Provider == nil {
		return "", errors.New("provider is required")
	}
	if strings.TrimSpace(a.Source) == "" {
		return a.Source, nil
	}
	model := a.Model
	if model == "" {
		model = a.Provider.Model
	}
	m := Mask(a.Source)

	// Keyed by the unmasked source: "%1" and "%2" mask to the same text.
	if s.d.Cache != nil && !a.BypassCache {
		if ce, _ := s.d.Cache.Get(ctx, a.Source, a.SourceLang, a.TargetLang, a.Provider.Type, model); ce != nil {
			return ce.Translation, nil
		}
	}

	data := ports.PromptData{
		SrcLang:      orDefault(a.SourceLang, "English"),
		TgtLang:      a.TargetLang,
		Context:      a.Context,
		Comment:      a.Comment,
		Text:         m.Text,
		Placeholders: m.Placeholders(),
		Tags:         m.Tags(),
	}
	system, err := s.d.Prompt.Render(ctx, "translate_message", "system", data)
	if err != nil {
		return "", err
	}
	user, err := s.d.Prompt.Render(ctx, "translate_message", "user", data)
	if err != nil {
		return "", err
	}
	adapter, err := s.adapter(a.Provider)
	if err != nil {
		return "", err
	}
	seg := ports.Segment{Context: a.Context, Text: m.Text, Comment: a.Comment, Placeholders: data.Placeholders, Tags: data.Tags}
	params := ports.TranslateParams{
		SourceLang:   a.SourceLang,
		TargetLang:   a.TargetLang,
		Model:        model,
		Temperature:  a.Temperature,
		SystemPrompt: system,
		UserPrompt:   user,
	}

	var translated string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var res ports.TranslateResult
		res, err = adapter.Translate(ctx, seg, params)
		if err == nil {
			translated, err = m.Unmask(strings.TrimSpace(res.Translation))
		}
		if err == nil {
			break
		}
		if !isRetryable(err) || attempt == maxAttempts {
			return "", err
		}
		if s.d.Log != nil {
			s.d.Log.WithFields(logrus.Fields{"context": a.Context, "attempt": attempt}).Debugf("retrying: %v", err)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}

	if s.d.Cache != nil {
		_ = s.d.Cache.Put(ctx, &domain.CacheEntry{
			SourceText:  a.Source,
			SrcLang:     a.SourceLang,
			TgtLang:     a.TargetLang,
			Provider:    a.Provider.Type,
			Model:       model,
			Translation: translated,
		})
	}
	return translated, nil
}

func (s *Service) adapter(p *domain.Provider) (ports.Provider, error) {
	if s.d.BuildProvider == nil {
		return nil, errors.New("provider builder missing")
	}
	key := p.Name + "|" + p.Type + "|" + p.BaseURL
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.adapters[key]; ok {
		return a, nil
	}
	a, err := s.d.BuildProvider(p)
	if err != nil {
		return nil, err
	}
	s.adapters[key] = a
	return a, nil
}

// isRetryable is true for model output problems that often go away on a
// second try.
func isRetryable(err error) bool {
	return errors.Is(err, ports.ErrUnparsable) || errors.Is(err, ErrTokenLost)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Qt argument markers: %1..%99 with optional L, and the numerus %n / %Ln.
var placeholderRE = regexp.MustCompile(`%L?(?:[1-9][0-9]?|n)`)

// Rich text tags such as <b>, </a> or <br/>.
var tagRE = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

var tokenRE = regexp.MustCompile(`__(PH|TAG)_[0-9]+__`)

// Masked is a source with its placeholders and tags replaced by opaque
// tokens the model is told to keep.
type Masked struct {
	Text   string
	tokens map[string]string
	order  []string
}

// Mask replaces markers in one pass, so "%1" never matches inside "%12".
func Mask(s string) Masked {
	m := Masked{tokens: map[string]string{}}
	seen := map[string]string{}
	replace := func(kind string) func(string) string {
		return func(v string) string {
			if tok, ok := seen[v]; ok {
				return tok
			}
			tok := fmt.Sprintf("__%s_%d__", kind, len(seen))
			seen[v] = tok
			m.tokens[tok] = v
			m.order = append(m.order, tok)
			return tok
		}
	}
	text := placeholderRE.ReplaceAllStringFunc(s, replace("PH"))
	m.Text = tagRE.ReplaceAllStringFunc(text, replace("TAG"))
	return m
}

// Placeholders lists the tokens standing for argument markers.
func (m Masked) Placeholders() []string { return m.byKind("__PH_") }

// Tags lists the tokens standing for rich text tags.
func (m Masked) Tags() []string { return m.byKind("__TAG_") }

func (m Masked) byKind(prefix string) []string {
	var out []string
	for _, tok := range m.order {
		if strings.HasPrefix(tok, prefix) {
			out = append(out, tok)
		}
	}
	return out
}

// Original returns the marker a token stands for.
func (m Masked) Original(tok string) string { return m.tokens[tok] }

// Unmask restores the original markers and fails when a token is missing.
func (m Masked) Unmask(s string) (string, error) {
	for _, tok := range m.order {
		if !strings.Contains(s, tok) {
			return "", fmt.Errorf("%w: %s", ErrTokenLost, m.tokens[tok])
		}
	}
	return tokenRE.ReplaceAllStringFunc(s, func(tok string) string {
		if v, ok := m.tokens[tok]; ok {
			return v
		}
		return tok
	}), nil
}
