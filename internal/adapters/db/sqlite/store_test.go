package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tskit/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(filepath.Join(t.TempDir(), "nested", "tskit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tskit.db")
	db, err := Init(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Init(path, nil)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestFileAndUnitRepos(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	files := NewFileRepo(db)
	units := NewUnitRepo(db)

	f := &domain.File{Path: "bt_ca.ts", Format: "ts", Locale: "ca", Version: "2.1", Hash: "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881"}
	require.NoError(t, files.Create(ctx, f))
	require.NotZero(t, f.ID)

	got, err := files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "bt_ca.ts", got.Path)
	assert.Equal(t, "2.1", got.Version)
	assert.False(t, got.CreatedAt.IsZero())

	batch := []*domain.Unit{
		{FileID: f.ID, Context: "Brewtarget", SourceText: "EBC"},
		{FileID: f.ID, Context: "BtLabel", SourceText: "Color (%1)"},
		{FileID: f.ID, Context: "BtLabel", SourceText: "Color (%1)", Comment: "unit"},
		{FileID: f.ID, Context: "QObject", SourceText: "%n file(s)", Numerus: true, MetadataRaw: `{"id":"files"}`},
	}
	require.NoError(t, units.UpsertBatch(ctx, batch))
	// re-importing the same keys updates in place
	require.NoError(t, units.UpsertBatch(ctx, batch[:1]))

	list, err := units.ListByFile(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "EBC", list[0].SourceText)
	assert.Equal(t, "unit", list[2].Comment)
	assert.True(t, list[3].Numerus)
	assert.Equal(t, `{"id":"files"}`, list[3].MetadataRaw)
	assert.Equal(t, "{}", list[0].MetadataRaw)

	u, err := units.Get(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Key{Context: "BtLabel", Source: "Color (%1)"}, u.Key())

	_, err = units.Get(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = files.Get(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertBatchChunks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := &domain.File{Path: "big.ts", Format: "ts", Hash: "h"}
	require.NoError(t, NewFileRepo(db).Create(ctx, f))
	var batch []*domain.Unit
	for i := 0; i < 3*upsertChunk+7; i++ {
		batch = append(batch, &domain.Unit{FileID: f.ID, Context: "C", SourceText: fmt.Sprintf("s%d", i)})
	}
	require.NoError(t, NewUnitRepo(db).UpsertBatch(ctx, batch))
	list, err := NewUnitRepo(db).ListByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, list, len(batch))
}

func TestTranslationRepo(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := &domain.File{Path: "a.ts", Format: "ts", Locale: "pl", Hash: "h"}
	require.NoError(t, NewFileRepo(db).Create(ctx, f))
	units := NewUnitRepo(db)
	require.NoError(t, units.UpsertBatch(ctx, []*domain.Unit{
		{FileID: f.ID, Context: "A", SourceText: "one"},
		{FileID: f.ID, Context: "A", SourceText: "%n files", Numerus: true},
	}))
	list, err := units.ListByFile(ctx, f.ID)
	require.NoError(t, err)

	tr := NewTranslationRepo(db)
	none, err := tr.Get(ctx, list[0].ID, "pl")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, tr.Upsert(ctx, &domain.Translation{UnitID: list[0].ID, Locale: "pl", Text: "jeden", Status: domain.StatusUnfinished}))
	pid := int64(7)
	require.NoError(t, tr.Upsert(ctx, &domain.Translation{UnitID: list[0].ID, Locale: "pl", Text: "jeden", Status: domain.StatusFinished, ProviderID: &pid}))
	require.NoError(t, tr.Upsert(ctx, &domain.Translation{UnitID: list[1].ID, Locale: "pl", NumerusForms: []string{"%n plik", "%n pliki", "%n plików"}, Status: domain.StatusFinished}))

	got, err := tr.Get(ctx, list[0].ID, "pl")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, got.Status)
	require.NotNil(t, got.ProviderID)
	assert.Equal(t, int64(7), *got.ProviderID)
	assert.Nil(t, got.NumerusForms)

	all, err := tr.ListByFileLocale(ctx, f.ID, "pl")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"%n plik", "%n pliki", "%n plików"}, all[1].NumerusForms)
	assert.Nil(t, all[1].ProviderID)

	other, err := tr.ListByFileLocale(ctx, f.ID, "de")
	require.NoError(t, err)
	assert.Empty(t, other)

	// deleting the file cascades
	require.NoError(t, NewFileRepo(db).Delete(ctx, f.ID))
	all, err = tr.ListByFileLocale(ctx, f.ID, "pl")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, NewFileRepo(db).Delete(ctx, f.ID), domain.ErrNotFound)
}

func TestCacheRepo(t *testing.T) {
	ctx := context.Background()
	c := NewCacheRepo(openTestDB(t))

	miss, err := c.Get(ctx, "Color", "en", "ca", "ollama", "llama3")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Put(ctx, &domain.CacheEntry{SourceText: "Color", SrcLang: "en", TgtLang: "ca", Provider: "ollama", Model: "llama3", Translation: "Colo"}))
	require.NoError(t, c.Put(ctx, &domain.CacheEntry{SourceText: "Color", SrcLang: "EN", TgtLang: "CA", Provider: "ollama", Model: "llama3", Translation: "Color"}))

	hit, err := c.Get(ctx, "Color", "en", "ca", "ollama", "llama3")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "Color", hit.Translation)

	other, err := c.Get(ctx, "Color", "en", "ca", "ollama", "mistral")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestJobRepo(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobRepo(openTestDB(t))
	j := &domain.Job{Type: "fill_catalog", Status: domain.JobRunning, Locale: "ca", Model: "llama3", Total: 2}
	id, err := jobs.Create(ctx, j)
	require.NoError(t, err)
	require.NoError(t, jobs.AddItem(ctx, &domain.JobItem{JobID: id, Context: "BtLabel", Source: "Color (%1)", Status: domain.JobDone}))
	require.NoError(t, jobs.AddItem(ctx, &domain.JobItem{JobID: id, Context: "A", Source: "B", Status: domain.JobFailed, Error: "timeout"}))
	require.NoError(t, jobs.UpdateProgress(ctx, id, 2, 1, 2, domain.JobDone))

	got, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, got.Status)
	assert.Equal(t, 2, got.Progress)
	assert.Equal(t, 1, got.Failed)

	items, err := jobs.ListItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "timeout", items[1].Error)

	list, err := jobs.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = jobs.Get(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
