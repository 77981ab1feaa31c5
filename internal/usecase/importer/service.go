package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	parreg "tskit/internal/adapters/parser/registry"
	"tskit/internal/domain"
	"tskit/internal/ports"
)

type Service struct {
	Files          ports.FileRepository
	Units          ports.UnitRepository
	Trans          ports.TranslationRepository
	ParserRegistry *parreg.Registry
	Log            *logrus.Entry
}

func New(files ports.FileRepository, units ports.UnitRepository, trans ports.TranslationRepository, reg *parreg.Registry, log *logrus.Entry) *Service {
	return &Service{Files: files, Units: units, Trans: trans, ParserRegistry: reg, Log: log}
}

type ImportArgs struct {
	Filename string
	// Format is detected from Filename when empty.
	Format string
	// Locale overrides the language declared in the file.
	Locale  string
	Content []byte
}

type ImportResult struct {
	FileID       int64
	Locale       string
	Units        int
	Translations int
	// Duplicates counts messages skipped because their key was already seen.
	Duplicates int
}

func (s *Service) Import(ctx context.Context, in ImportArgs) (res ImportResult, err error) {
	parser, format, err := s.parser(in)
	if err != nil {
		return ImportResult{}, err
	}
	pr, err := parser.Parse(in.Content)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", in.Filename, err)
	}
	c := pr.Catalog
	locale := in.Locale
	if locale == "" {
		locale = c.Language
	}
	if locale == "" {
		locale = pr.Locale
	}
	sum := sha256.Sum256(in.Content)
	f := &domain.File{
		Path:           in.Filename,
		Format:         format,
		Locale:         locale,
		SourceLanguage: c.SourceLanguage,
		Version:        c.Version,
		Hash:           hex.EncodeToString(sum[:]),
	}
	if err := s.Files.Create(ctx, f); err != nil {
		return ImportResult{}, err
	}
	// a failed import leaves no file row behind
	defer func() {
		if err == nil {
			return
		}
		if derr := s.Files.Delete(context.WithoutCancel(ctx), f.ID); derr != nil && s.Log != nil {
			s.Log.WithField("file_id", f.ID).Warnf("rollback import: %v", derr)
		}
		res.FileID = 0
	}()

	res = ImportResult{FileID: f.ID, Locale: locale}
	var units []*domain.Unit
	msgs := map[domain.Key]*domain.Message{}
	for _, cx := range c.Contexts {
		for _, m := range cx.Messages {
			k := m.Key(cx.Name)
			if _, dup := msgs[k]; dup {
				res.Duplicates++
				continue
			}
			msgs[k] = m
			meta, err := json.Marshal(domain.UnitMetadata{
				ID:                m.ID,
				ContextComment:    cx.Comment,
				OldSource:         m.OldSource,
				OldComment:        m.OldComment,
				ExtraComment:      m.ExtraComment,
				TranslatorComment: m.TranslatorComment,
				Locations:         m.Locations,
			})
			if err != nil {
				return res, err
			}
			units = append(units, &domain.Unit{
				FileID:      f.ID,
				Context:     cx.Name,
				SourceText:  m.Source,
				Comment:     m.Comment,
				Numerus:     m.Numerus,
				MetadataRaw: string(meta),
			})
		}
	}
	if err := s.Units.UpsertBatch(ctx, units); err != nil {
		return res, err
	}
	stored, err := s.Units.ListByFile(ctx, f.ID)
	if err != nil {
		return res, err
	}
	res.Units = len(stored)
	for _, u := range stored {
		m, ok := msgs[u.Key()]
		if !ok {
			continue
		}
		t := &domain.Translation{UnitID: u.ID, Locale: locale, Text: m.Translation, NumerusForms: m.NumerusForms, Status: m.Status}
		if err := s.Trans.Upsert(ctx, t); err != nil {
			return res, fmt.Errorf("translation for %q: %w", u.SourceText, err)
		}
		res.Translations++
	}
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"file":       in.Filename,
			"file_id":    f.ID,
			"locale":     locale,
			"units":      res.Units,
			"duplicates": res.Duplicates,
		}).Info("imported catalog")
	}
	return res, nil
}

func (s *Service) parser(in ImportArgs) (ports.Parser, string, error) {
	if in.Format != "" {
		p, ok := s.ParserRegistry.Get(in.Format)
		if !ok {
			return nil, "", fmt.Errorf("%s: %w", in.Format, domain.ErrUnsupportedFormat)
		}
		return p, in.Format, nil
	}
	p, ok := s.ParserRegistry.ForPath(in.Filename)
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", in.Filename, domain.ErrUnsupportedFormat)
	}
	return p, p.Format(), nil
}
