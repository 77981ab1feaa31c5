package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tskit/internal/domain"
	"tskit/internal/usecase/translator"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls []translator.TranslateArgs
	fn    func(ctx context.Context, a translator.TranslateArgs) (string, error)
}

func (f *fakeTranslator) TranslateOne(ctx context.Context, a translator.TranslateArgs) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, a)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, a)
	}
	return "[" + a.Source + "]", nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

type memJobs struct {
	jobs  map[int64]*domain.Job
	items []*domain.JobItem
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[int64]*domain.Job{}} }

func (m *memJobs) Create(_ context.Context, j *domain.Job) (int64, error) {
	j.ID = int64(len(m.jobs) + 1)
	m.jobs[j.ID] = j
	return j.ID, nil
}

func (m *memJobs) UpdateProgress(_ context.Context, id int64, done, failed, total int, status string) error {
	j := m.jobs[id]
	j.Progress, j.Failed, j.Total, j.Status = done, failed, total, status
	return nil
}

func (m *memJobs) AddItem(_ context.Context, ji *domain.JobItem) error {
	m.items = append(m.items, ji)
	return nil
}

func (m *memJobs) Get(_ context.Context, id int64) (*domain.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobs) List(context.Context, int) ([]*domain.Job, error) { return nil, nil }

func (m *memJobs) ListItems(context.Context, int64) ([]*domain.JobItem, error) { return m.items, nil }

func catalog() *domain.Catalog {
	c := domain.NewCatalog("de_DE")
	c.Contexts = []*domain.Context{
		{Name: "Main", Messages: []*domain.Message{
			{Source: "Open", Status: domain.StatusUnfinished},
			{Source: "Close", Translation: "Schließen", Status: domain.StatusFinished},
			{Source: "Save", Comment: "menu", ExtraComment: "File menu entry", Status: domain.StatusUnfinished},
			{Source: "Old", Status: domain.StatusVanished},
			{Source: "Draft", Translation: "Entwurf", Status: domain.StatusUnfinished},
		}},
		{Name: "Counter", Messages: []*domain.Message{
			{Source: "%n file(s)", Numerus: true, Status: domain.StatusUnfinished},
		}},
	}
	return c
}

var provider = &domain.Provider{Name: "local", Type: "ollama", Model: "llama3"}

func TestFill(t *testing.T) {
	ft := &fakeTranslator{}
	repo := newMemJobs()
	rec := &recorder{}
	r := NewRunner(Deps{Jobs: repo}, ft)
	r.SetEmitter(rec)

	c := catalog()
	res, err := r.Fill(context.Background(), c, FillParams{Provider: provider, SourceLang: "English"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Filled)
	assert.Equal(t, domain.JobDone, res.Status)

	main := c.Contexts[0].Messages
	assert.Equal(t, "[Open]", main[0].Translation)
	assert.Equal(t, domain.StatusUnfinished, main[0].Status)
	assert.Equal(t, "machine translation (local/llama3)", main[0].TranslatorComment)
	assert.Equal(t, "Schließen", main[1].Translation)
	assert.Equal(t, "[Save]", main[2].Translation)
	assert.Empty(t, main[3].Translation)
	assert.Equal(t, "Entwurf", main[4].Translation)

	// German has two integer plural forms.
	assert.Equal(t, []string{"[%n file(s)]", "[%n file(s)]"}, c.Contexts[1].Messages[0].NumerusForms)

	require.Len(t, ft.calls, 3)
	assert.Equal(t, "menu\nFile menu entry", ft.calls[1].Comment)
	assert.Equal(t, "de_DE", ft.calls[1].TargetLang)
	assert.Equal(t, "llama3", ft.calls[1].Model)

	j := repo.jobs[res.JobID]
	assert.Equal(t, domain.JobDone, j.Status)
	assert.Equal(t, 3, j.Progress)
	assert.Len(t, repo.items, 3)

	assert.Equal(t, "job.started", rec.events[0])
	assert.Equal(t, "job.progress", rec.events[len(rec.events)-1])
	assert.Contains(t, rec.events, "job.item.done")
}

func TestFillOptions(t *testing.T) {
	ft := &fakeTranslator{}
	r := NewRunner(Deps{}, ft)

	c := catalog()
	res, err := r.Fill(context.Background(), c, FillParams{Provider: provider, MarkFinished: true, Overwrite: true, Contexts: []string{"Main"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Filled)
	main := c.Contexts[0].Messages
	assert.Equal(t, domain.StatusFinished, main[0].Status)
	assert.Equal(t, domain.StatusFinished, main[2].Status)
	assert.Equal(t, "Entwurf", main[4].Translation)
	assert.Empty(t, c.Contexts[1].Messages[0].NumerusForms)

	res, err = r.Fill(context.Background(), c, FillParams{Provider: provider, Overwrite: true, Contexts: []string{"Main"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Filled)
	assert.Equal(t, "[Draft]", main[4].Translation)
}

func TestFillFailures(t *testing.T) {
	ft := &fakeTranslator{fn: func(_ context.Context, a translator.TranslateArgs) (string, error) {
		if a.Source == "Save" {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	repo := newMemJobs()
	r := NewRunner(Deps{Jobs: repo}, ft)

	c := catalog()
	res, err := r.Fill(context.Background(), c, FillParams{Provider: provider})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Filled)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, domain.JobDone, res.Status)
	assert.Empty(t, c.Contexts[0].Messages[2].Translation)
	assert.Equal(t, "boom", repo.items[1].Error)

	ft.fn = func(context.Context, translator.TranslateArgs) (string, error) { return "", errors.New("down") }
	res, err = r.Fill(context.Background(), catalog(), FillParams{Provider: provider})
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, res.Status)
}

type readOnlyJobs struct{ *memJobs }

func (readOnlyJobs) AddItem(context.Context, *domain.JobItem) error {
	return errors.New("database is locked")
}

func (readOnlyJobs) UpdateProgress(context.Context, int64, int, int, int, string) error {
	return errors.New("database is locked")
}

func TestFillLogsRecordErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := NewRunner(Deps{Jobs: readOnlyJobs{newMemJobs()}, Log: logrus.NewEntry(logger)}, &fakeTranslator{})

	res, err := r.Fill(context.Background(), catalog(), FillParams{Provider: provider})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Filled)

	var warnings []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings = append(warnings, e.Message)
		}
	}
	assert.Contains(t, warnings, "record item: database is locked")
	assert.Contains(t, warnings, "record progress: database is locked")
	assert.Len(t, warnings, 2*res.Total+1)
}

func TestFillCancel(t *testing.T) {
	started := make(chan struct{})
	var r *Runner
	ft := &fakeTranslator{fn: func(ctx context.Context, a translator.TranslateArgs) (string, error) {
		if a.Source == "Open" {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "x", nil
	}}
	r = NewRunner(Deps{}, ft)

	done := make(chan FillResult)
	go func() {
		res, err := r.Fill(context.Background(), catalog(), FillParams{Provider: provider})
		assert.ErrorIs(t, err, context.Canceled)
		done <- res
	}()
	<-started
	assert.True(t, r.Cancel(1))
	select {
	case res := <-done:
		assert.Equal(t, domain.JobCanceled, res.Status)
		assert.Equal(t, 1, res.Failed)
	case <-time.After(5 * time.Second):
		t.Fatal("fill did not stop")
	}
	assert.False(t, r.Cancel(1))
}

func TestFillItemTimeout(t *testing.T) {
	ft := &fakeTranslator{fn: func(ctx context.Context, _ translator.TranslateArgs) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r := NewRunner(Deps{}, ft)
	res, err := r.Fill(context.Background(), catalog(), FillParams{Provider: provider, ItemTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Failed)
}

func TestFillValidation(t *testing.T) {
	r := NewRunner(Deps{}, &fakeTranslator{})
	_, err := r.Fill(context.Background(), catalog(), FillParams{})
	assert.Error(t, err)
	_, err = r.Fill(context.Background(), domain.NewCatalog(""), FillParams{Provider: provider})
	assert.Error(t, err)
}
