package app

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	dbsqlite "tskit/internal/adapters/db/sqlite"
	exportreg "tskit/internal/adapters/exporter/registry"
	llmfactory "tskit/internal/adapters/llm/factory"
	llmreg "tskit/internal/adapters/llm/registry"
	promptRenderer "tskit/internal/adapters/prompt"
	parreg "tskit/internal/adapters/parser/registry"
	"tskit/internal/config"
	"tskit/internal/domain"
	applog "tskit/internal/log"
	"tskit/internal/ports"
	exporterusecase "tskit/internal/usecase/exporter"
	"tskit/internal/usecase/importer"
	jobsusecase "tskit/internal/usecase/jobs"
	translatorusecase "tskit/internal/usecase/translator"
)

// App carries what the commands share. The store is opened on first use so
// that file-only commands never touch the database.
type App struct {
	Config    *config.Config
	Log       *logrus.Entry
	Parsers   *parreg.Registry
	Exporters *exportreg.Registry
	Out       io.Writer
	Err       io.Writer

	store *Store
}

// Store groups the database-backed services.
type Store struct {
	DB           *sql.DB
	Files        *dbsqlite.FileRepo
	Units        *dbsqlite.UnitRepo
	Translations *dbsqlite.TranslationRepo
	Cache        *dbsqlite.CacheRepo
	Jobs         *dbsqlite.JobRepo
	Importer     *importer.Service
	Exporter     *exporterusecase.Service
	Translator   *translatorusecase.Service
	Runner       *jobsusecase.Runner
}

func New(parsers *parreg.Registry, exporters *exportreg.Registry) *App {
	return &App{
		Parsers:   parsers,
		Exporters: exporters,
		Out:       os.Stdout,
		Err:       os.Stderr,
	}
}

// Configure loads the configuration and sets up logging. It runs before any
// command.
func (a *App) Configure(path string, debug bool, version string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
	}
	a.Config = cfg
	a.Log = applog.NewLogger(cfg, version)
	return nil
}

func (a *App) Store() (*Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if dir := filepath.Dir(a.Config.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := dbsqlite.Init(a.Config.Database, a.Log)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.Config.Database, err)
	}
	s := &Store{
		DB:           db,
		Files:        dbsqlite.NewFileRepo(db),
		Units:        dbsqlite.NewUnitRepo(db),
		Translations: dbsqlite.NewTranslationRepo(db),
		Cache:        dbsqlite.NewCacheRepo(db),
		Jobs:         dbsqlite.NewJobRepo(db),
	}
	s.Importer = importer.New(s.Files, s.Units, s.Translations, a.Parsers, a.Log)
	s.Exporter = exporterusecase.New(s.Files, s.Units, s.Translations, a.Exporters)
	s.Translator = translatorusecase.New(translatorusecase.Deps{
		Cache:  s.Cache,
		Prompt: promptRenderer.New(a.Config.Prompts),
		BuildProvider: func(p *domain.Provider) (ports.Provider, error) {
			return llmfactory.FromProvider(p, a.Config.Timeout)
		},
		Log: a.Log,
	})
	s.Runner = jobsusecase.NewRunner(jobsusecase.Deps{Jobs: s.Jobs, Log: a.Log}, s.Translator)
	s.Runner.SetEmitter(progressEmitter{w: a.Err})
	a.store = s
	return s, nil
}

// Providers builds a transport for every configured provider.
func (a *App) Providers() (*llmreg.Registry, error) {
	reg := llmreg.New()
	for _, p := range a.Config.Providers {
		dp, err := a.Config.Provider(p.Name)
		if err != nil {
			return nil, err
		}
		prov, err := llmfactory.FromProvider(dp, a.Config.Timeout)
		if err != nil {
			return nil, err
		}
		reg.Register(p.Name, prov)
	}
	return reg, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.DB.Close()
	a.store = nil
	return err
}

// Commands lists every tskit subcommand.
func (a *App) Commands() []*cli.Command {
	return []*cli.Command{
		a.makeLintCommand(),
		a.makeStatsCommand(),
		a.makeVerifyCommand(),
		a.makeFmtCommand(),
		a.makeConvertCommand(),
		a.makeDiffCommand(),
		a.makeSyncCommand(),
		a.makeLookupCommand(),
		a.makeImportCommand(),
		a.makeExportCommand(),
		a.makeFilesCommand(),
		a.makeFillCommand(),
		a.makeJobsCommand(),
		a.makeProvidersCommand(),
	}
}
