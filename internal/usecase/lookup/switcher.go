package lookup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tskit/internal/domain"
	"tskit/internal/ports"
)

// Loader reads the catalog for a locale.
type Loader func(locale string) (*domain.Catalog, error)

// DirLoader loads <dir>/<prefix><locale>.ts style files with p.
func DirLoader(dir, prefix, ext string, p ports.Parser) Loader {
	return func(locale string) (*domain.Catalog, error) {
		path := filepath.Join(dir, prefix+locale+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		res, err := p.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return res.Catalog, nil
	}
}

// Switcher holds the active Translator. Catalogs are loaded on Switch and
// kept, so switching back to a locale does not reparse.
type Switcher struct {
	load Loader
	opts []Option

	mu     sync.RWMutex
	active *Translator
	locale string
	loaded map[string]*Translator
}

// NewSwitcher starts with an empty catalog, so every lookup returns its source.
func NewSwitcher(load Loader, opts ...Option) *Switcher {
	return &Switcher{
		load:   load,
		opts:   opts,
		active: New(nil, opts...),
		loaded: map[string]*Translator{},
	}
}

// Switch makes locale active. An empty locale restores the source language.
// On error the previous translator stays active.
func (s *Switcher) Switch(locale string) error {
	s.mu.RLock()
	t, ok := s.loaded[locale]
	s.mu.RUnlock()
	if !ok {
		if locale == "" {
			t = New(nil, s.opts...)
		} else {
			c, err := s.load(locale)
			if err != nil {
				return fmt.Errorf("load locale %q: %w", locale, err)
			}
			t = New(c, s.opts...)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded[locale] = t
	s.active = t
	s.locale = locale
	return nil
}

func (s *Switcher) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

func (s *Switcher) Current() *Translator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Switcher) Translate(context, source string) string {
	return s.Current().Translate(context, source)
}

func (s *Switcher) TranslateN(context, source string, n int) string {
	return s.Current().TranslateN(context, source, n)
}
