package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tskit/internal/domain"
)

type CacheRepo struct{ *Repo }

func NewCacheRepo(db *sql.DB) *CacheRepo { return &CacheRepo{NewRepo(db)} }

// Get looks up a machine translation. Language tags compare case-insensitively,
// so "pt-BR" and "pt-br" share entries. A miss returns nil, nil.
func (r *CacheRepo) Get(ctx context.Context, src, srcLang, tgtLang, provider, model string) (*domain.CacheEntry, error) {
	q := r.SQ.Select(
		"id",
		"source_text",
		"src_lang",
		"tgt_lang",
		"provider",
		"model",
		"translation",
		"created_at",
	).
		From("cache").
		Where(sq.Eq{
			"source_text": src,
			"src_lang":    strings.ToLower(srcLang),
			"tgt_lang":    strings.ToLower(tgtLang),
			"provider":    provider,
			"model":       model,
		}).
		Limit(1)
	sqlStr, args, _ := q.ToSql()
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var e domain.CacheEntry
	var created string
	if err := row.Scan(
		&e.ID,
		&e.SourceText,
		&e.SrcLang,
		&e.TgtLang,
		&e.Provider,
		&e.Model,
		&e.Translation,
		&created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.CreatedAt = parseTime(created)
	return &e, nil
}

func (r *CacheRepo) Put(ctx context.Context, entry *domain.CacheEntry) error {
	q := r.SQ.
		Insert("cache").
		Columns(
			"source_text",
			"src_lang",
			"tgt_lang",
			"provider",
			"model",
			"translation",
			"created_at",
		).
		Values(
			entry.SourceText,
			strings.ToLower(entry.SrcLang),
			strings.ToLower(entry.TgtLang),
			entry.Provider,
			entry.Model,
			entry.Translation,
			now(),
		).
		Suffix("ON CONFLICT(source_text, src_lang, tgt_lang, provider, model) DO UPDATE SET translation=excluded.translation, created_at=excluded.created_at")
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}
