package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"tskit/internal/domain"
	"tskit/internal/ports"
	"tskit/internal/usecase/lookup"
	"tskit/internal/usecase/translator"
)

const JobFillCatalog = "fill_catalog"

type Translator interface {
	TranslateOne(ctx context.Context, a translator.TranslateArgs) (string, error)
}

type EventEmitter interface {
	Emit(name string, payload any)
}

type Deps struct {
	// Jobs is optional; without it runs are not recorded.
	Jobs ports.JobRepository
	Log  *logrus.Entry
}

type Runner struct {
	d     Deps
	trans Translator
	em    EventEmitter

	mu     sync.Mutex
	active map[int64]context.CancelFunc
	nextID int64
}

func NewRunner(d Deps, trans Translator) *Runner {
	return &Runner{d: d, trans: trans, active: map[int64]context.CancelFunc{}}
}

func (r *Runner) SetEmitter(em EventEmitter) { r.em = em }

type FillParams struct {
	Provider   *domain.Provider
	Model      string
	SourceLang string
	// TargetLang defaults to the catalog language.
	TargetLang string
	// MarkFinished stores results as finished instead of unfinished.
	MarkFinished bool
	// Overwrite also refills unfinished messages that already have text.
	Overwrite bool
	// Contexts restricts the run to the named contexts.
	Contexts    []string
	Limit       int
	ItemTimeout time.Duration
}

type FillResult struct {
	JobID  int64
	Total  int
	Filled int
	Failed int
	Status string
}

type item struct {
	ctx *domain.Context
	m   *domain.Message
}

// Fill machine-translates the eligible messages of c in place, one at a
// time. Cancelling ctx or calling Cancel stops the run after the current
// message; the messages filled so far are kept.
func (r *Runner) Fill(ctx context.Context, c *domain.Catalog, p FillParams) (FillResult, error) {
	if p.Provider == nil {
		return FillResult{}, fmt.Errorf("fill: provider is required")
	}
	if p.TargetLang == "" {
		p.TargetLang = c.Language
	}
	if p.TargetLang == "" {
		return FillResult{}, fmt.Errorf("fill: catalog has no language, set a target language")
	}
	if p.Model == "" {
		p.Model = p.Provider.Model
	}
	if p.ItemTimeout <= 0 {
		p.ItemTimeout = 60 * time.Second
	}
	items := r.eligible(c, p)
	res := FillResult{Total: len(items), Status: domain.JobRunning}

	job := &domain.Job{Type: JobFillCatalog, Status: domain.JobRunning, Locale: p.TargetLang, Model: p.Model, Total: len(items)}
	id, err := r.createJob(ctx, job)
	if err != nil {
		return res, err
	}
	res.JobID = id
	cctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.active[id] = cancel
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.active, id)
		r.mu.Unlock()
	}()

	r.emit("job.started", map[string]any{"job_id": id, "total": res.Total, "model": p.Model, "provider": p.Provider.Name})
	r.log(id).WithFields(logrus.Fields{"total": res.Total, "model": p.Model, "locale": p.TargetLang}).Info("fill started")
	forms := len(lookup.PluralForms(lookup.ParseLanguage(p.TargetLang)))

	for i, it := range items {
		if cctx.Err() != nil {
			res.Status = domain.JobCanceled
			r.finish(ctx, id, &res)
			return res, cctx.Err()
		}
		r.emit("job.item.start", map[string]any{"job_id": id, "context": it.ctx.Name, "source": it.m.Source})
		ictx, icancel := context.WithTimeout(cctx, p.ItemTimeout)
		txt, err := r.trans.TranslateOne(ictx, translator.TranslateArgs{
			Provider:   p.Provider,
			Context:    it.ctx.Name,
			Source:     it.m.Source,
			Comment:    noteFor(it.m),
			SourceLang: p.SourceLang,
			TargetLang: p.TargetLang,
			Model:      p.Model,
		})
		icancel()
		ji := &domain.JobItem{JobID: id, Context: it.ctx.Name, Source: it.m.Source, Status: domain.JobDone}
		if err != nil {
			res.Failed++
			ji.Status, ji.Error = domain.JobFailed, err.Error()
			r.log(id).WithFields(logrus.Fields{"context": it.ctx.Name, "source": it.m.Source}).Warnf("translate failed: %v", err)
			r.emit("job.item.done", map[string]any{"job_id": id, "context": it.ctx.Name, "source": it.m.Source, "error": err.Error()})
		} else {
			apply(it.m, txt, forms, p)
			res.Filled++
			r.emit("job.item.done", map[string]any{"job_id": id, "context": it.ctx.Name, "source": it.m.Source, "text": txt})
		}
		if r.d.Jobs != nil {
			if err := r.d.Jobs.AddItem(ctx, ji); err != nil {
				r.log(id).WithField("source", it.m.Source).Warnf("record item: %v", err)
			}
			if err := r.d.Jobs.UpdateProgress(ctx, id, i+1, res.Failed, res.Total, domain.JobRunning); err != nil {
				r.log(id).Warnf("record progress: %v", err)
			}
		}
		r.emit("job.progress", map[string]any{"job_id": id, "done": i + 1, "total": res.Total, "status": domain.JobRunning})
	}
	res.Status = domain.JobDone
	if res.Total > 0 && res.Failed == res.Total {
		res.Status = domain.JobFailed
	}
	r.finish(ctx, id, &res)
	return res, nil
}

// noteFor joins the disambiguation and the developer comment into the hint
// passed to the model.
func noteFor(m *domain.Message) string {
	parts := lo.Filter([]string{m.Comment, m.ExtraComment}, func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
	return strings.Join(parts, "\n")
}

func (r *Runner) eligible(c *domain.Catalog, p FillParams) []item {
	var out []item
	c.Each(func(ctx *domain.Context, m *domain.Message) {
		if p.Limit > 0 && len(out) >= p.Limit {
			return
		}
		if m.Status != domain.StatusUnfinished || strings.TrimSpace(m.Source) == "" {
			return
		}
		if len(p.Contexts) > 0 && !lo.Contains(p.Contexts, ctx.Name) {
			return
		}
		if m.HasText() && !p.Overwrite {
			return
		}
		out = append(out, item{ctx: ctx, m: m})
	})
	return out
}

// apply stores a machine translation. Numerus messages get the same text in
// every form; a reviewer adjusts them.
func apply(m *domain.Message, txt string, forms int, p FillParams) {
	if m.Numerus {
		n := len(m.NumerusForms)
		if n == 0 {
			n = forms
		}
		m.NumerusForms = make([]string, n)
		for i := range m.NumerusForms {
			m.NumerusForms[i] = txt
		}
	} else {
		m.Translation = txt
	}
	if p.MarkFinished {
		m.Status = domain.StatusFinished
	}
	note := fmt.Sprintf("machine translation (%s/%s)", p.Provider.Name, p.Model)
	switch {
	case m.TranslatorComment == "":
		m.TranslatorComment = note
	case !strings.Contains(m.TranslatorComment, note):
		m.TranslatorComment += "\n" + note
	}
}

func (r *Runner) createJob(ctx context.Context, j *domain.Job) (int64, error) {
	if r.d.Jobs != nil {
		return r.d.Jobs.Create(ctx, j)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID, nil
}

func (r *Runner) finish(ctx context.Context, id int64, res *FillResult) {
	if r.d.Jobs != nil {
		// the run context may be cancelled already
		if err := r.d.Jobs.UpdateProgress(context.WithoutCancel(ctx), id, res.Filled+res.Failed, res.Failed, res.Total, res.Status); err != nil {
			r.log(id).Warnf("record progress: %v", err)
		}
	}
	r.emit("job.progress", map[string]any{"job_id": id, "done": res.Filled + res.Failed, "total": res.Total, "status": res.Status})
	r.log(id).WithFields(logrus.Fields{"filled": res.Filled, "failed": res.Failed, "status": res.Status}).Info("fill finished")
}

// Cancel stops a running fill. It reports whether the job was active.
func (r *Runner) Cancel(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.active[jobID]; ok {
		cancel()
		delete(r.active, jobID)
		return true
	}
	return false
}

func (r *Runner) emit(name string, payload any) {
	if r.em != nil {
		r.em.Emit(name, payload)
	}
}

func (r *Runner) log(jobID int64) *logrus.Entry {
	l := r.d.Log
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	return l.WithField("job_id", jobID)
}
