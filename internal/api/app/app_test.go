package app

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	expcsv "tskit/internal/adapters/exporter/csv"
	expjson "tskit/internal/adapters/exporter/nestedjson"
	exppo "tskit/internal/adapters/exporter/po"
	expts "tskit/internal/adapters/exporter/qtts"
	exportreg "tskit/internal/adapters/exporter/registry"
	csvparser "tskit/internal/adapters/parser/csv"
	jsonparser "tskit/internal/adapters/parser/nestedjson"
	tsparser "tskit/internal/adapters/parser/qtts"
	parreg "tskit/internal/adapters/parser/registry"
	"tskit/internal/config"
)

const (
	sample  = "../../adapters/parser/qtts/testdata/bt_ca_sample.ts"
	numerus = "../../adapters/parser/qtts/testdata/numerus.ts"
)

type harness struct {
	app *App
	out *bytes.Buffer
	err *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	parsers := parreg.New()
	parsers.Register(tsparser.New())
	parsers.Register(csvparser.New())
	parsers.Register(jsonparser.New())
	exporters := exportreg.New()
	exporters.Register(expts.New())
	exporters.Register(expcsv.New())
	exporters.Register(expjson.New())
	exporters.Register(exppo.New())

	a := New(parsers, exporters)
	cfg := config.Default()
	cfg.Database = filepath.Join(t.TempDir(), "tskit.db")
	a.Config = &cfg
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	a.Log = logrus.NewEntry(logger)
	h := &harness{app: a, out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	a.Out, a.Err = h.out, h.err
	t.Cleanup(func() { _ = a.Close() })
	return h
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	h.err.Reset()
	c := &cli.App{
		Name:           "tskit",
		Commands:       h.app.Commands(),
		Writer:         h.out,
		ErrWriter:      h.err,
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return c.Run(append([]string{"tskit"}, args...))
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func writeTS(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!DOCTYPE TS>\n<TS version=\"2.1\" language=\"de\">\n" + body + "</TS>\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func message(source, translation, typ string) string {
	attr := ""
	if typ != "" {
		attr = ` type="` + typ + `"`
	}
	return "    <message>\n        <source>" + source + "</source>\n        <translation" + attr + ">" + translation + "</translation>\n    </message>\n"
}

func ctxBlock(name string, messages ...string) string {
	return "<context>\n    <name>" + name + "</name>\n" + strings.Join(messages, "") + "</context>\n"
}

func TestLint(t *testing.T) {
	h := newHarness(t)

	clean := writeTS(t, "clean.ts", ctxBlock("Main", message("Open", "Öffnen", "")))
	require.NoError(t, h.run("lint", clean))
	assert.Contains(t, h.out.String(), "0 errors, 0 warnings")

	broken := writeTS(t, "broken.ts", ctxBlock("Main", message("Color (%1)", "Farbe", "")))
	err := h.run("lint", broken)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, h.out.String(), "[placeholder-mismatch] Main")
	assert.Contains(t, h.out.String(), "1 error, 0 warnings")

	require.NoError(t, h.run("lint", "--disable", "placeholder-mismatch", broken))

	require.NoError(t, h.run("lint", "--rules"))
	assert.Contains(t, h.out.String(), "ending-punctuation")
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("stats", sample))
	out := h.out.String()
	assert.Contains(t, out, "CONTEXT")
	assert.Contains(t, out, "BrewDayScrollWidget")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"TOTAL", "8", "4", "0", "66.7%"}, strings.Fields(lines[len(lines)-1]))

	require.NoError(t, h.run("stats", "--json", sample))
	assert.Contains(t, h.out.String(), `"finished": 8`)
}

func TestVerify(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("verify", sample, numerus))
	assert.Contains(t, h.out.String(), "bt_ca_sample.ts: identical")
	assert.Contains(t, h.out.String(), "numerus.ts: identical")
}

func TestFmtSort(t *testing.T) {
	h := newHarness(t)
	path := writeTS(t, "ctx.ts", ctxBlock("Page10", message("b", "B", ""))+ctxBlock("Page9", message("a", "A", "")))
	require.NoError(t, h.run("fmt", "--sort", "-w", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(data), "Page9"), strings.Index(string(data), "Page10"))
}

func TestConvertAndDiff(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, h.run("convert", sample, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Brewtarget,EBC")

	tsPath := filepath.Join(dir, "back.ts")
	require.NoError(t, h.run("convert", "--language", "ca", csvPath, tsPath))

	require.NoError(t, h.run("diff", sample, tsPath))
	assert.Contains(t, h.out.String(), "0 added, 0 removed, 0 changed")

	other := writeTS(t, "other.ts", ctxBlock("Brewtarget", message("EBC", "EBC", "")))
	err = h.run("diff", "-s", sample, other)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, h.out.String(), "0 added, 11 removed, 0 changed")
}

func TestSync(t *testing.T) {
	h := newHarness(t)
	tmpl := writeTS(t, "tmpl.ts", ctxBlock("Main", message("Open", "", "unfinished"), message("Save", "", "unfinished")))
	prev := writeTS(t, "prev.ts", ctxBlock("Main", message("Open", "Öffnen", ""), message("Quit", "Beenden", ""), message("Gone", "", "unfinished")))
	out := filepath.Join(t.TempDir(), "merged.ts")

	require.NoError(t, h.run("sync", "-o", out, tmpl, prev))
	assert.Equal(t, "1 kept, 1 new, 1 vanished, 1 dropped\n", h.err.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<translation>Öffnen</translation>")
	assert.Contains(t, string(data), `<translation type="vanished">Beenden</translation>`)
	assert.NotContains(t, string(data), "Gone")
}

func TestSyncWithoutExtension(t *testing.T) {
	h := newHarness(t)
	tmpl := writeTS(t, "tmpl", ctxBlock("Main", message("Open", "", "unfinished")))
	prev := writeTS(t, "prev", ctxBlock("Main", message("Open", "Öffnen", "")))

	require.NoError(t, h.run("sync", "-f", "ts", tmpl, prev))
	data, err := os.ReadFile(prev)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<translation>Öffnen</translation>")
	assert.Contains(t, string(data), `<TS version="2.1" language="de">`)
}

func TestLookup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("lookup", sample, "Brewtarget", "EBC"))
	assert.Equal(t, "EBC\n", h.out.String())

	require.NoError(t, h.run("lookup", sample, "BtLabel", "Color (%1)", "SRM"))
	assert.Equal(t, "Color (SRM)\n", h.out.String())

	require.NoError(t, h.run("lookup", "-c", "confirmation", "-n", "5", numerus, "BtTreeView", "Delete %n item(s)?"))
	assert.Equal(t, "Usunąć 5 elementów?\n", h.out.String())

	require.NoError(t, h.run("lookup", "--prefix", "bt_", "--locale", "ca_sample", filepath.Dir(sample), "BrewDayScrollWidget", "Style"))
	assert.Equal(t, "Estil\n", h.out.String())
	// no locale: the source language
	require.NoError(t, h.run("lookup", filepath.Dir(sample), "BrewDayScrollWidget", "Style"))
	assert.Equal(t, "Style\n", h.out.String())
	assert.Error(t, h.run("lookup", "--locale", "xx", filepath.Dir(sample), "Brewtarget", "SRM"))

	require.NoError(t, h.run("lookup", sample, "AboutDialog", "Donate"))
	assert.Equal(t, "Donate\n", h.out.String())
	require.NoError(t, h.run("lookup", "--unfinished", sample, "AboutDialog", "Donate"))
	assert.Equal(t, "Donació\n", h.out.String())
}

func TestImportExportFiles(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("import", sample))
	assert.Contains(t, h.out.String(), "bt_ca_sample.ts: file 1, 12 units")

	require.NoError(t, h.run("export", "1"))
	want, err := os.ReadFile(sample)
	require.NoError(t, err)
	assert.Equal(t, string(want), h.out.String())

	require.NoError(t, h.run("files"))
	assert.Contains(t, h.out.String(), "bt_ca_sample.ts")

	require.NoError(t, h.run("files", "delete", "1"))
	assert.Error(t, h.run("export", "1"))
	assert.Error(t, h.run("files", "delete", "1"))
}

func ollama(t *testing.T, reply string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			_, _ = io.WriteString(w, `{"message":{"content":"{\"translation\":\"`+reply+`\"}"}}`)
		case "/api/tags":
			_, _ = io.WriteString(w, `{"models":[{"name":"test-model"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFillAndJobs(t *testing.T) {
	h := newHarness(t)
	srv := ollama(t, "Hallo")
	h.app.Config.Providers = []config.Provider{{Name: "local", Type: "ollama", BaseURL: srv.URL, Model: "test-model"}}
	h.app.Config.DefaultProvider = "local"

	path := writeTS(t, "fill.ts", ctxBlock("Main", message("Hello", "", "unfinished"), message("Open", "Öffnen", "")))
	require.NoError(t, h.run("fill", path))
	assert.Contains(t, h.err.String(), "1 filled, 0 failed of 1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<translatorcomment>machine translation (local/test-model)</translatorcomment>")
	assert.Contains(t, string(data), `<translation type="unfinished">Hallo</translation>`)
	assert.Contains(t, string(data), "<translation>Öffnen</translation>")

	require.NoError(t, h.run("jobs"))
	assert.Contains(t, h.out.String(), "done")
	assert.Contains(t, h.out.String(), "1/1")

	require.NoError(t, h.run("jobs", "show", "1"))
	assert.Contains(t, h.out.String(), `"Hello"`)

	require.NoError(t, h.run("providers", "models"))
	assert.Contains(t, h.out.String(), "test-model")

	require.NoError(t, h.run("providers", "test"))
	assert.Contains(t, h.out.String(), "local: ok")
}

func TestProvidersMasksKeys(t *testing.T) {
	h := newHarness(t)
	h.app.Config.Providers = []config.Provider{{Name: "router", Type: "openrouter", APIKey: "sk-abcdef1234"}}
	h.app.Config.DefaultProvider = "router"
	require.NoError(t, h.run("providers"))
	assert.Contains(t, h.out.String(), "router*")
	assert.Contains(t, h.out.String(), "****1234")
	assert.NotContains(t, h.out.String(), "abcdef")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 2, exitCode(h.run("lint")))
	assert.Error(t, h.run("stats", "missing.ts"))
	assert.Error(t, h.run("stats", "file.unknown"))
	assert.Error(t, h.run("export", "abc"))
}
