package app

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"tskit/internal/ports"
	"tskit/internal/usecase/jobs"
)

func (a *App) makeFillCommand() *cli.Command {
	return &cli.Command{
		Name:      "fill",
		Usage:     "machine-translate the untranslated messages of a catalog",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			formatFlag,
			&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "configured provider name; the default one when empty"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model override"},
			&cli.StringFlag{Name: "target", Usage: "target language; the catalog language when empty"},
			&cli.StringFlag{Name: "source-language", Usage: "language of the source strings"},
			&cli.BoolFlag{Name: "mark-finished", Usage: "store results as finished"},
			&cli.BoolFlag{Name: "overwrite", Usage: "also refill unfinished messages that have text"},
			&cli.StringSliceFlag{Name: "context", Usage: "only fill this context; repeatable"},
			&cli.IntFlag{Name: "limit", Usage: "fill at most this many messages"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file; FILE is rewritten when empty"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE"); err != nil {
				return
			}
			in, err := a.readCatalog(ctx.Args().First(), ctx.String("format"))
			if err != nil {
				return err
			}
			prov, err := a.Config.Provider(ctx.String("provider"))
			if err != nil {
				return err
			}
			s, err := a.Store()
			if err != nil {
				return err
			}
			fc := a.Config.Fill
			srcLang := ctx.String("source-language")
			if srcLang == "" {
				srcLang = fc.SourceLanguage
			}
			// Ctrl-C stops after the current message
			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
			defer stop()
			res, runErr := s.Runner.Fill(runCtx, in.Catalog, jobs.FillParams{
				Provider:     prov,
				Model:        ctx.String("model"),
				SourceLang:   srcLang,
				TargetLang:   ctx.String("target"),
				MarkFinished: fc.MarkFinished || ctx.Bool("mark-finished"),
				Overwrite:    ctx.Bool("overwrite"),
				Contexts:     ctx.StringSlice("context"),
				Limit:        ctx.Int("limit"),
				ItemTimeout:  fc.ItemTimeout,
			})
			// a cancelled run still keeps what was filled
			if res.Filled > 0 {
				dst := ctx.String("output")
				if dst == "" {
					dst = in.Path
				}
				exp, err := a.outputExporter(dst, in)
				if err != nil {
					return err
				}
				out, err := exp.Export(in.Catalog, ports.ExportOptions{})
				if err != nil {
					return err
				}
				if err := a.writeOutput(dst, out); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.Err, "job %d: %s filled, %s failed of %s\n", res.JobID,
				humanize.Comma(int64(res.Filled)), humanize.Comma(int64(res.Failed)), humanize.Comma(int64(res.Total)))
			return runErr
		},
	}
}

func (a *App) makeJobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "list recorded fill runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs to show"},
		},
		Action: func(ctx *cli.Context) error {
			s, err := a.Store()
			if err != nil {
				return err
			}
			list, err := s.Jobs.List(ctx.Context, ctx.Int("limit"))
			if err != nil {
				return err
			}
			rows := [][]string{{"ID", "STATUS", "LOCALE", "MODEL", "PROGRESS", "FAILED", "STARTED"}}
			for _, j := range list {
				rows = append(rows, []string{
					strconv.FormatInt(j.ID, 10), j.Status, j.Locale, j.Model,
					fmt.Sprintf("%d/%d", j.Progress, j.Total), strconv.Itoa(j.Failed), humanize.Time(j.CreatedAt),
				})
			}
			return a.printTable(rows)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "print the items of a run",
				ArgsUsage: "JOB_ID",
				Action: func(ctx *cli.Context) (err error) {
					if err = requireArgs(ctx, 1, "JOB_ID"); err != nil {
						return
					}
					id, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid job id %q", ctx.Args().First())
					}
					s, err := a.Store()
					if err != nil {
						return err
					}
					j, err := s.Jobs.Get(ctx.Context, id)
					if err != nil {
						return fmt.Errorf("job %d: %w", id, err)
					}
					fmt.Fprintf(a.Out, "job %d %s %s %s: %d/%d, %d failed\n", j.ID, j.Type, j.Status, j.Locale, j.Progress, j.Total, j.Failed)
					items, err := s.Jobs.ListItems(ctx.Context, id)
					if err != nil {
						return err
					}
					rows := [][]string{{"STATUS", "CONTEXT", "SOURCE", "ERROR"}}
					for _, it := range items {
						rows = append(rows, []string{it.Status, it.Context, strconv.Quote(it.Source), strings.ReplaceAll(it.Error, "\n", " ")})
					}
					return a.printTable(rows)
				},
			},
		},
	}
}
