package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"tskit/internal/domain"
)

type FileRepo struct{ *Repo }
type UnitRepo struct{ *Repo }

func NewFileRepo(db *sql.DB) *FileRepo { return &FileRepo{NewRepo(db)} }
func NewUnitRepo(db *sql.DB) *UnitRepo { return &UnitRepo{NewRepo(db)} }

var fileColumns = []string{"id", "path", "format", "locale", "source_language", "version", "hash", "created_at"}

func (r *FileRepo) Create(ctx context.Context, f *domain.File) error {
	q := r.SQ.Insert("files").Columns("path", "format", "locale", "source_language", "version", "hash", "created_at").
		Values(f.Path, f.Format, f.Locale, f.SourceLanguage, f.Version, f.Hash, now())
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

func (r *FileRepo) Get(ctx context.Context, id int64) (*domain.File, error) {
	sqlStr, args, _ := r.SQ.Select(fileColumns...).From("files").Where(sq.Eq{"id": id}).ToSql()
	f, err := scanFile(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, domain.ErrNotFound)
	}
	return f, err
}

func (r *FileRepo) List(ctx context.Context) ([]*domain.File, error) {
	sqlStr, args, _ := r.SQ.Select(fileColumns...).From("files").OrderBy("id DESC").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a file; units and translations go with it.
func (r *FileRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, _ := r.SQ.Delete("files").Where(sq.Eq{"id": id}).ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanFile(s rowScanner) (*domain.File, error) {
	var f domain.File
	var created string
	if err := s.Scan(&f.ID, &f.Path, &f.Format, &f.Locale, &f.SourceLanguage, &f.Version, &f.Hash, &created); err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(created)
	return &f, nil
}

// upsertChunk keeps multi-row inserts under SQLite's bound variable limit.
const upsertChunk = 100

func (r *UnitRepo) UpsertBatch(ctx context.Context, units []*domain.Unit) error {
	if len(units) == 0 {
		return nil
	}
	return WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		ts := now()
		for _, chunk := range lo.Chunk(units, upsertChunk) {
			ib := r.SQ.Insert("units").Columns("file_id", "context", "source_text", "comment", "numerus", "metadata_json", "created_at")
			for _, u := range chunk {
				meta := u.MetadataRaw
				if meta == "" {
					meta = "{}"
				}
				ib = ib.Values(u.FileID, u.Context, u.SourceText, u.Comment, u.Numerus, meta, ts)
			}
			sqlStr, args, _ := ib.Suffix("ON CONFLICT(file_id, context, source_text, comment) DO UPDATE SET numerus=excluded.numerus, metadata_json=excluded.metadata_json").ToSql()
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return fmt.Errorf("upsert units: %w", err)
			}
		}
		return nil
	})
}

var unitColumns = []string{"id", "file_id", "context", "source_text", "comment", "numerus", "metadata_json", "created_at"}

// ListByFile returns units in insertion order, which is the document order
// of the imported catalog.
func (r *UnitRepo) ListByFile(ctx context.Context, fileID int64) ([]*domain.Unit, error) {
	sqlStr, args, _ := r.SQ.Select(unitColumns...).From("units").Where(sq.Eq{"file_id": fileID}).OrderBy("id").ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UnitRepo) Get(ctx context.Context, id int64) (*domain.Unit, error) {
	sqlStr, args, _ := r.SQ.Select(unitColumns...).From("units").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	u, err := scanUnit(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unit %d: %w", id, domain.ErrNotFound)
	}
	return u, err
}

func scanUnit(s rowScanner) (*domain.Unit, error) {
	var u domain.Unit
	var created string
	if err := s.Scan(&u.ID, &u.FileID, &u.Context, &u.SourceText, &u.Comment, &u.Numerus, &u.MetadataRaw, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}
