package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"tskit/internal/domain"
)

type TranslationRepo struct{ *Repo }

func NewTranslationRepo(db *sql.DB) *TranslationRepo { return &TranslationRepo{NewRepo(db)} }

func (r *TranslationRepo) Upsert(ctx context.Context, t *domain.Translation) error {
	ts := now()
	forms := t.NumerusForms
	if forms == nil {
		forms = []string{}
	}
	fj, err := json.Marshal(forms)
	if err != nil {
		return err
	}
	q := r.SQ.Insert("translations").Columns("unit_id", "locale", "text", "numerus_json", "status", "provider_id", "created_at", "updated_at").
		Values(t.UnitID, t.Locale, t.Text, string(fj), string(t.Status), t.ProviderID, ts, ts).
		Suffix("ON CONFLICT(unit_id, locale) DO UPDATE SET text=excluded.text, numerus_json=excluded.numerus_json, status=excluded.status, provider_id=excluded.provider_id, updated_at=excluded.updated_at")
	sqlStr, args, _ := q.ToSql()
	_, err = r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

// Get returns nil without error when the unit has no translation yet.
func (r *TranslationRepo) Get(ctx context.Context, unitID int64, locale string) (*domain.Translation, error) {
	sqlStr, args, _ := r.SQ.Select("id", "unit_id", "locale", "text", "numerus_json", "status", "provider_id", "created_at", "updated_at").
		From("translations").Where(sq.Eq{"unit_id": unitID, "locale": locale}).Limit(1).ToSql()
	t, err := scanTranslation(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *TranslationRepo) ListByFileLocale(ctx context.Context, fileID int64, locale string) ([]*domain.Translation, error) {
	sqlStr, args, _ := r.SQ.Select("t.id", "t.unit_id", "t.locale", "t.text", "t.numerus_json", "t.status", "t.provider_id", "t.created_at", "t.updated_at").
		From("translations t").Join("units u ON u.id = t.unit_id").
		Where(sq.Eq{"u.file_id": fileID, "t.locale": locale}).OrderBy("u.id").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTranslation(s rowScanner) (*domain.Translation, error) {
	var t domain.Translation
	var forms, status, created, updated string
	var prov sql.NullInt64
	if err := s.Scan(&t.ID, &t.UnitID, &t.Locale, &t.Text, &forms, &status, &prov, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(forms), &t.NumerusForms); err != nil {
		return nil, err
	}
	if len(t.NumerusForms) == 0 {
		t.NumerusForms = nil
	}
	t.Status = domain.Status(status)
	if prov.Valid {
		v := prov.Int64
		t.ProviderID = &v
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}
