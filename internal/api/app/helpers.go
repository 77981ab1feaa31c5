package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"tskit/internal/domain"
	"tskit/internal/ports"
)

// loaded is a parsed input file.
type loaded struct {
	Path    string
	Data    []byte
	Parser  ports.Parser
	Catalog *domain.Catalog
}

func (a *App) parserFor(path, format string) (ports.Parser, error) {
	if format != "" {
		if p, ok := a.Parsers.Get(format); ok {
			return p, nil
		}
		return nil, fmt.Errorf("no parser for %s: %w", format, domain.ErrUnsupportedFormat)
	}
	if p, ok := a.Parsers.ForPath(path); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%s: cannot detect format (known: %s): %w", path, strings.Join(a.Parsers.Formats(), ", "), domain.ErrUnsupportedFormat)
}

func (a *App) exporterFor(path, format string) (ports.Exporter, error) {
	if format != "" {
		if e, ok := a.Exporters.Get(format); ok {
			return e, nil
		}
		return nil, fmt.Errorf("no exporter for %s: %w", format, domain.ErrUnsupportedFormat)
	}
	if e, ok := a.Exporters.ForPath(path); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%s: cannot detect format (known: %s): %w", path, strings.Join(a.Exporters.Formats(), ", "), domain.ErrUnsupportedFormat)
}

// outputExporter picks the exporter by the extension of dst and falls back
// to the format the input was read with.
func (a *App) outputExporter(dst string, in *loaded) (ports.Exporter, error) {
	if e, ok := a.Exporters.ForPath(dst); ok {
		return e, nil
	}
	return a.exporterFor(dst, in.Parser.Format())
}

func (a *App) readCatalog(path, format string) (*loaded, error) {
	p, err := a.parserFor(path, format)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if res.Catalog.Language == "" && res.Locale != "" {
		res.Catalog.Language = res.Locale
	}
	return &loaded{Path: path, Data: data, Parser: p, Catalog: res.Catalog}, nil
}

// writeOutput writes to path, or to stdout when path is empty or "-".
func (a *App) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.Out.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func requireArgs(ctx *cli.Context, n int, usage string) error {
	if ctx.NArg() < n {
		return cli.Exit("usage: "+ctx.App.Name+" "+ctx.Command.Name+" "+usage, 2)
	}
	return nil
}

// progressEmitter prints fill progress on stderr.
type progressEmitter struct{ w io.Writer }

func (e progressEmitter) Emit(name string, payload any) {
	p, _ := payload.(map[string]any)
	switch name {
	case "job.progress":
		fmt.Fprintf(e.w, "\r[%v/%v] %v", p["done"], p["total"], p["status"])
		if p["status"] != domain.JobRunning {
			fmt.Fprintln(e.w)
		}
	case "job.item.done":
		if errMsg, ok := p["error"]; ok {
			fmt.Fprintf(e.w, "\r%s %v / %q: %v\n", color.YellowString("failed"), p["context"], p["source"], errMsg)
		}
	}
}
