package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	exreg "tskit/internal/adapters/exporter/registry"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Service struct {
	Files ports.FileRepository
	Units ports.UnitRepository
	Trans ports.TranslationRepository
	Reg   *exreg.Registry
}

func New(files ports.FileRepository, units ports.UnitRepository, trans ports.TranslationRepository, reg *exreg.Registry) *Service {
	return &Service{Files: files, Units: units, Trans: trans, Reg: reg}
}

type ExportArgs struct {
	FileID int64
	// Locale defaults to the locale the file was imported with.
	Locale         string
	Fallback       bool
	OverrideFormat string
	Separator      string
}

type ExportResult struct {
	Filename string
	Content  []byte
}

func (s *Service) ExportFile(ctx context.Context, a ExportArgs) (ExportResult, error) {
	f, err := s.Files.Get(ctx, a.FileID)
	if err != nil {
		return ExportResult{}, err
	}
	format := f.Format
	if a.OverrideFormat != "" {
		format = a.OverrideFormat
	}
	exp, ok := s.Reg.Get(format)
	if !ok {
		return ExportResult{}, fmt.Errorf("no exporter for %s: %w", format, domain.ErrUnsupportedFormat)
	}
	c, err := s.Catalog(ctx, f, a.Locale)
	if err != nil {
		return ExportResult{}, err
	}
	content, err := exp.Export(c, ports.ExportOptions{Fallback: a.Fallback, Separator: a.Separator})
	if err != nil {
		return ExportResult{}, err
	}
	name := f.Path
	if format != f.Format {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
	}
	return ExportResult{Filename: name, Content: content}, nil
}

// Catalog rebuilds the stored file for locale in document order. Units with
// no translation for the locale come back unfinished and empty.
func (s *Service) Catalog(ctx context.Context, f *domain.File, locale string) (*domain.Catalog, error) {
	if locale == "" {
		locale = f.Locale
	}
	units, err := s.Units.ListByFile(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	trList, err := s.Trans.ListByFileLocale(ctx, f.ID, locale)
	if err != nil {
		return nil, err
	}
	trByUnit := map[int64]*domain.Translation{}
	for _, t := range trList {
		trByUnit[t.UnitID] = t
	}
	c := &domain.Catalog{Version: f.Version, Language: locale, SourceLanguage: f.SourceLanguage}
	if c.Version == "" {
		c.Version = "2.1"
	}
	for _, u := range units {
		var meta domain.UnitMetadata
		if u.MetadataRaw != "" {
			if err := json.Unmarshal([]byte(u.MetadataRaw), &meta); err != nil {
				return nil, fmt.Errorf("unit %d metadata: %w", u.ID, err)
			}
		}
		cx := c.EnsureContext(u.Context)
		if cx.Comment == "" {
			cx.Comment = meta.ContextComment
		}
		m := &domain.Message{
			ID:                meta.ID,
			Source:            u.SourceText,
			OldSource:         meta.OldSource,
			Comment:           u.Comment,
			OldComment:        meta.OldComment,
			ExtraComment:      meta.ExtraComment,
			TranslatorComment: meta.TranslatorComment,
			Locations:         meta.Locations,
			Numerus:           u.Numerus,
			Status:            domain.StatusUnfinished,
		}
		if t, ok := trByUnit[u.ID]; ok {
			m.Translation = t.Text
			m.NumerusForms = t.NumerusForms
			m.Status = t.Status
		}
		cx.Messages = append(cx.Messages, m)
	}
	return c, nil
}
