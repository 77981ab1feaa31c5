package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/fvbommel/sortorder"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"tskit/internal/domain"
	"tskit/internal/ports"
	"tskit/internal/usecase/catalogsync"
	"tskit/internal/usecase/compare"
	"tskit/internal/usecase/lint"
	"tskit/internal/usecase/lookup"
	"tskit/internal/usecase/stats"
	"tskit/internal/utils"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "input format (ts, csv, json); detected from the extension when empty",
}

func (a *App) makeLintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "check catalogs for structural and translation problems",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			formatFlag,
			&cli.BoolFlag{Name: "strict", Usage: "fail on warnings too"},
			&cli.StringSliceFlag{Name: "disable", Usage: "rule id to skip; repeatable"},
			&cli.BoolFlag{Name: "rules", Usage: "list the rules and exit"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if ctx.Bool("rules") {
				rows := lo.Map(lint.Rules, func(r lint.Rule, _ int) []string {
					return []string{r.ID, string(r.Severity), r.Description}
				})
				return a.printTable(rows)
			}
			if err = requireArgs(ctx, 1, "FILE..."); err != nil {
				return
			}
			cfg := a.Config.Lint
			cfg.Strict = cfg.Strict || ctx.Bool("strict")
			cfg.Disabled = append(append([]string{}, cfg.Disabled...), ctx.StringSlice("disable")...)
			linter := lint.New(cfg)
			failed := false
			for _, path := range ctx.Args().Slice() {
				in, err := a.readCatalog(path, ctx.String("format"))
				if err != nil {
					return err
				}
				rep := linter.Check(in.Catalog)
				for _, f := range rep.Findings {
					sev := color.YellowString(string(f.Severity))
					if f.Severity == lint.SeverityError {
						sev = color.RedString(string(f.Severity))
					}
					fmt.Fprintf(a.Out, "%s: %s [%s] %s / %q: %s\n", path, sev, f.Rule, f.Context, f.Source, f.Message)
				}
				fmt.Fprintf(a.Out, "%s: %s, %s\n", path,
					plural(rep.Count(lint.SeverityError), "error"),
					plural(rep.Count(lint.SeverityWarning), "warning"))
				failed = failed || rep.Failed()
			}
			if failed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func (a *App) makeStatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "print completion per context",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			formatFlag,
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
			&cli.BoolFlag{Name: "total", Aliases: []string{"t"}, Usage: "print only the totals"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE"); err != nil {
				return
			}
			in, err := a.readCatalog(ctx.Args().First(), ctx.String("format"))
			if err != nil {
				return err
			}
			sum := stats.Compute(in.Catalog)
			if ctx.Bool("json") {
				out, err := json.MarshalIndent(sum, "", "  ")
				if err != nil {
					return err
				}
				return a.writeOutput("", append(out, '\n'))
			}
			rows := [][]string{{"CONTEXT", "FINISHED", "UNFINISHED", "STALE", "DONE"}}
			if !ctx.Bool("total") {
				for _, c := range sum.Contexts {
					rows = append(rows, countsRow(c.Context, c))
				}
			}
			rows = append(rows, countsRow("TOTAL", sum.Total))
			return a.printTable(rows)
		},
	}
}

func countsRow(name string, c stats.Counts) []string {
	return []string{
		name,
		humanize.Comma(int64(c.Finished)),
		humanize.Comma(int64(c.Unfinished)),
		humanize.Comma(int64(c.Stale)),
		strconv.FormatFloat(c.Percent(), 'f', 1, 64) + "%",
	}
}

func (a *App) printTable(rows [][]string) error {
	out, err := utils.RenderTable(rows)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, out)
	return err
}

func (a *App) makeVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check that a file survives parse and re-serialization",
		ArgsUsage: "FILE...",
		Flags:     []cli.Flag{formatFlag},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE..."); err != nil {
				return
			}
			failed := false
			for _, path := range ctx.Args().Slice() {
				in, err := a.readCatalog(path, ctx.String("format"))
				if err != nil {
					return err
				}
				exp, err := a.exporterFor(path, in.Parser.Format())
				if err != nil {
					return err
				}
				rt, err := compare.RoundTrip(in.Data, in.Parser, exp)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				switch {
				case rt.Identical:
					fmt.Fprintf(a.Out, "%s: %s\n", path, color.GreenString("identical"))
				case rt.Equivalent:
					fmt.Fprintf(a.Out, "%s: %s (layout differs)\n", path, color.GreenString("equivalent"))
				default:
					failed = true
					fmt.Fprintf(a.Out, "%s: %s\n", path, color.RedString("not equivalent"))
				}
			}
			if failed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func (a *App) makeFmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "rewrite a catalog in canonical layout",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			formatFlag,
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "write the result back to FILE"},
			&cli.BoolFlag{Name: "sort", Usage: "order contexts by name"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE"); err != nil {
				return
			}
			path := ctx.Args().First()
			in, err := a.readCatalog(path, ctx.String("format"))
			if err != nil {
				return err
			}
			if ctx.Bool("sort") {
				sortContexts(in.Catalog)
			}
			exp, err := a.exporterFor(path, in.Parser.Format())
			if err != nil {
				return err
			}
			out, err := exp.Export(in.Catalog, ports.ExportOptions{})
			if err != nil {
				return err
			}
			if ctx.Bool("write") {
				return a.writeOutput(path, out)
			}
			return a.writeOutput("", out)
		},
	}
}

// sortContexts orders contexts naturally by name, so "Page10" sorts after
// "Page9". Messages keep their order.
func sortContexts(c *domain.Catalog) {
	sort.SliceStable(c.Contexts, func(i, j int) bool {
		return sortorder.NaturalLess(c.Contexts[i].Name, c.Contexts[j].Name)
	})
}

func (a *App) makeConvertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a catalog between formats",
		ArgsUsage: "IN OUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "input format; detected from IN when empty"},
			&cli.StringFlag{Name: "to", Usage: "output format; detected from OUT when empty"},
			&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "target language for inputs that do not declare one"},
			&cli.BoolFlag{Name: "fallback", Usage: "write the source where a translation is missing"},
			&cli.StringFlag{Name: "separator", Usage: "CSV separator: comma, semicolon or tab"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 2, "IN OUT"); err != nil {
				return
			}
			src, dst := ctx.Args().Get(0), ctx.Args().Get(1)
			in, err := a.readCatalog(src, ctx.String("from"))
			if err != nil {
				return err
			}
			if l := ctx.String("language"); l != "" {
				in.Catalog.Language = l
			}
			exp, err := a.exporterFor(dst, ctx.String("to"))
			if err != nil {
				return err
			}
			out, err := exp.Export(in.Catalog, ports.ExportOptions{Fallback: ctx.Bool("fallback"), Separator: ctx.String("separator")})
			if err != nil {
				return err
			}
			a.Log.WithField("messages", in.Catalog.Len()).Debugf("converted %s to %s", src, dst)
			return a.writeOutput(dst, out)
		},
	}
}

func (a *App) makeDiffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "compare the messages of two catalogs",
		ArgsUsage: "OLD NEW",
		Flags: []cli.Flag{
			formatFlag,
			&cli.BoolFlag{Name: "summary", Aliases: []string{"s"}, Usage: "print only the counts"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 2, "OLD NEW"); err != nil {
				return
			}
			before, err := a.readCatalog(ctx.Args().Get(0), ctx.String("format"))
			if err != nil {
				return err
			}
			after, err := a.readCatalog(ctx.Args().Get(1), ctx.String("format"))
			if err != nil {
				return err
			}
			res, err := compare.Diff(before.Catalog, after.Catalog, before.Path, after.Path)
			if err != nil {
				return err
			}
			if !ctx.Bool("summary") && res.Unified != "" {
				fmt.Fprint(a.Out, colorDiff(res.Unified))
			}
			fmt.Fprintf(a.Out, "%s added, %s removed, %s changed\n",
				humanize.Comma(int64(len(res.Added))),
				humanize.Comma(int64(len(res.Removed))),
				humanize.Comma(int64(len(res.Changed))))
			if !res.Empty() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func colorDiff(unified string) string {
	lines := strings.SplitAfter(unified, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = color.New(color.Bold).Sprint(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = color.GreenString("%s", l)
		case strings.HasPrefix(l, "-"):
			lines[i] = color.RedString("%s", l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = color.CyanString("%s", l)
		}
	}
	return strings.Join(lines, "")
}

func (a *App) makeSyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "carry translations from PREVIOUS into a freshly extracted TEMPLATE",
		ArgsUsage: "TEMPLATE PREVIOUS",
		Flags: []cli.Flag{
			formatFlag,
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file; PREVIOUS is rewritten when empty"},
			&cli.BoolFlag{Name: "no-obsolete", Usage: "drop messages that are gone from TEMPLATE"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "print the report without writing"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 2, "TEMPLATE PREVIOUS"); err != nil {
				return
			}
			tmpl, err := a.readCatalog(ctx.Args().Get(0), ctx.String("format"))
			if err != nil {
				return err
			}
			prev, err := a.readCatalog(ctx.Args().Get(1), ctx.String("format"))
			if err != nil {
				return err
			}
			merged, rep := catalogsync.Sync(tmpl.Catalog, prev.Catalog, catalogsync.Options{NoObsolete: ctx.Bool("no-obsolete")})
			fmt.Fprintf(a.Err, "%s kept, %s new, %s vanished, %s dropped\n",
				humanize.Comma(int64(rep.Kept)), humanize.Comma(int64(rep.New)),
				humanize.Comma(int64(rep.Vanished)), humanize.Comma(int64(rep.Dropped)))
			if ctx.Bool("dry-run") {
				return nil
			}
			dst := ctx.String("output")
			if dst == "" {
				dst = prev.Path
			}
			exp, err := a.outputExporter(dst, prev)
			if err != nil {
				return err
			}
			out, err := exp.Export(merged, ports.ExportOptions{})
			if err != nil {
				return err
			}
			return a.writeOutput(dst, out)
		},
	}
}

func (a *App) makeLookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "resolve a source string the way the application would at runtime",
		ArgsUsage: "FILE CONTEXT SOURCE [ARG...]",
		Flags: []cli.Flag{
			formatFlag,
			&cli.StringFlag{Name: "comment", Aliases: []string{"c"}, Usage: "disambiguation comment"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "count for numerus messages"},
			&cli.BoolFlag{Name: "unfinished", Usage: "use unfinished translations too"},
			&cli.StringFlag{Name: "locale", Usage: "when FILE is a directory, load <prefix><locale>.ts from it"},
			&cli.StringFlag{Name: "prefix", Usage: "file name prefix used with --locale"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 3, "FILE CONTEXT SOURCE [ARG...]"); err != nil {
				return
			}
			var opts []lookup.Option
			if ctx.Bool("unfinished") {
				opts = append(opts, lookup.WithUnfinished())
			}
			t, err := a.translatorFor(ctx, ctx.Args().Get(0), opts)
			if err != nil {
				return err
			}
			k := domain.Key{Context: ctx.Args().Get(1), Source: ctx.Args().Get(2), Comment: ctx.String("comment")}
			var text string
			if ctx.IsSet("count") {
				text = t.TranslateKeyN(k, ctx.Int("count"))
			} else {
				text = t.TranslateKey(k)
			}
			if rest := ctx.Args().Slice()[3:]; len(rest) > 0 {
				text = lookup.Arg(text, lo.Map(rest, func(s string, _ int) any { return s })...)
			}
			_, err = fmt.Fprintln(a.Out, text)
			return err
		},
	}
}

// translatorFor loads a single catalog, or the --locale catalog of a
// directory the way an application switching languages would.
func (a *App) translatorFor(ctx *cli.Context, path string, opts []lookup.Option) (*lookup.Translator, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		in, err := a.readCatalog(path, ctx.String("format"))
		if err != nil {
			return nil, err
		}
		return lookup.New(in.Catalog, opts...), nil
	}
	format := ctx.String("format")
	if format == "" {
		format = "ts"
	}
	p, err := a.parserFor("", format)
	if err != nil {
		return nil, err
	}
	sw := lookup.NewSwitcher(lookup.DirLoader(path, ctx.String("prefix"), "."+format, p), opts...)
	if err := sw.Switch(ctx.String("locale")); err != nil {
		return nil, err
	}
	return sw.Current(), nil
}
