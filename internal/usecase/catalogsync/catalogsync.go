// Package catalogsync merges a freshly extracted template with a previous
// translation, the way lupdate refreshes a .ts file.
package catalogsync

import (
	"tskit/internal/domain"
)

type Options struct {
	// NoObsolete drops messages missing from the template instead of
	// keeping them as vanished.
	NoObsolete bool
}

type Report struct {
	Kept     int `json:"kept"`
	New      int `json:"new"`
	Vanished int `json:"vanished"`
	Dropped  int `json:"dropped"`
}

// Sync returns a new catalog that follows template's contexts and message
// order. Translations are carried over from previous by key. Neither input
// is modified.
func Sync(template, previous *domain.Catalog, opts Options) (*domain.Catalog, Report) {
	var rep Report
	out := &domain.Catalog{
		Version:        template.Version,
		Language:       previous.Language,
		SourceLanguage: template.SourceLanguage,
	}
	if out.Language == "" {
		out.Language = template.Language
	}
	if out.SourceLanguage == "" {
		out.SourceLanguage = previous.SourceLanguage
	}
	if out.Version == "" {
		out.Version = "2.1"
	}

	old := map[domain.Key][]*domain.Message{}
	previous.Each(func(ctx *domain.Context, m *domain.Message) {
		k := m.Key(ctx.Name)
		old[k] = append(old[k], m)
	})
	used := map[*domain.Message]bool{}

	for _, tctx := range template.Contexts {
		ctx := out.EnsureContext(tctx.Name)
		if ctx.Comment == "" {
			ctx.Comment = tctx.Comment
		}
		for _, tm := range tctx.Messages {
			if tm.Status.Stale() {
				continue
			}
			m := fresh(tm)
			k := tm.Key(tctx.Name)
			if prev := take(old, k, used); prev != nil {
				carry(m, prev)
				rep.Kept++
			} else {
				rep.New++
			}
			ctx.Messages = append(ctx.Messages, m)
		}
	}

	previous.Each(func(pctx *domain.Context, pm *domain.Message) {
		if used[pm] {
			return
		}
		used[pm] = true
		if opts.NoObsolete {
			rep.Dropped++
			return
		}
		// Untranslated leftovers carry nothing worth keeping.
		if !pm.HasText() && pm.TranslatorComment == "" {
			rep.Dropped++
			return
		}
		m := clone(pm)
		if !m.Status.Stale() {
			m.Status = domain.StatusVanished
		}
		ctx := out.EnsureContext(pctx.Name)
		ctx.Messages = append(ctx.Messages, m)
		rep.Vanished++
	})
	return out, rep
}

func take(old map[domain.Key][]*domain.Message, k domain.Key, used map[*domain.Message]bool) *domain.Message {
	for _, m := range old[k] {
		if !used[m] {
			used[m] = true
			return m
		}
	}
	return nil
}

// fresh copies the extractor-owned fields of a template message.
func fresh(tm *domain.Message) *domain.Message {
	return &domain.Message{
		ID:           tm.ID,
		Source:       tm.Source,
		Comment:      tm.Comment,
		ExtraComment: tm.ExtraComment,
		Locations:    append([]domain.Location(nil), tm.Locations...),
		Numerus:      tm.Numerus,
		Status:       domain.StatusUnfinished,
	}
}

// carry copies the translator-owned fields. A message that comes back from
// vanished or obsolete needs review again.
func carry(m, prev *domain.Message) {
	m.Translation = prev.Translation
	m.NumerusForms = append([]string(nil), prev.NumerusForms...)
	m.TranslatorComment = prev.TranslatorComment
	m.Status = prev.Status
	if m.Status.Stale() {
		m.Status = domain.StatusUnfinished
	}
	if m.Numerus && !prev.Numerus && prev.Translation != "" {
		m.NumerusForms = []string{prev.Translation}
		m.Translation = ""
		m.Status = domain.StatusUnfinished
	}
	if !m.Numerus && prev.Numerus {
		m.Translation = ""
		if len(prev.NumerusForms) > 0 {
			m.Translation = prev.NumerusForms[0]
		}
		m.NumerusForms = nil
		m.Status = domain.StatusUnfinished
	}
}

func clone(m *domain.Message) *domain.Message {
	c := *m
	c.Locations = append([]domain.Location(nil), m.Locations...)
	c.NumerusForms = append([]string(nil), m.NumerusForms...)
	return &c
}
