package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"tskit/internal/usecase/exporter"
	"tskit/internal/usecase/importer"
)

func (a *App) makeImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "store a catalog in the database",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			formatFlag,
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "locale to store translations under; the file's language when empty"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE..."); err != nil {
				return
			}
			s, err := a.Store()
			if err != nil {
				return err
			}
			for _, path := range ctx.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := s.Importer.Import(ctx.Context, importer.ImportArgs{
					Filename: filepath.Base(path),
					Format:   ctx.String("format"),
					Locale:   ctx.String("locale"),
					Content:  data,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(a.Out, "%s: file %d, %s units, %s translations (%s)",
					path, res.FileID, humanize.Comma(int64(res.Units)), humanize.Comma(int64(res.Translations)), res.Locale)
				if res.Duplicates > 0 {
					fmt.Fprintf(a.Out, ", %s duplicates skipped", humanize.Comma(int64(res.Duplicates)))
				}
				fmt.Fprintln(a.Out)
			}
			return nil
		},
	}
}

func (a *App) makeExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write a stored file back out",
		ArgsUsage: "FILE_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Usage: "locale to export; the imported one when empty"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format; the imported one when empty"},
			&cli.BoolFlag{Name: "fallback", Usage: "write the source where a translation is missing"},
			&cli.StringFlag{Name: "separator", Usage: "CSV separator: comma, semicolon or tab"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file; stdout when empty"},
		},
		Action: func(ctx *cli.Context) (err error) {
			if err = requireArgs(ctx, 1, "FILE_ID"); err != nil {
				return
			}
			id, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file id %q", ctx.Args().First())
			}
			s, err := a.Store()
			if err != nil {
				return err
			}
			res, err := s.Exporter.ExportFile(ctx.Context, exporter.ExportArgs{
				FileID:         id,
				Locale:         ctx.String("locale"),
				Fallback:       ctx.Bool("fallback"),
				OverrideFormat: ctx.String("format"),
				Separator:      ctx.String("separator"),
			})
			if err != nil {
				return err
			}
			a.Log.Debugf("exported file %d as %s", id, res.Filename)
			return a.writeOutput(ctx.String("output"), res.Content)
		},
	}
}

func (a *App) makeFilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "list or delete stored files",
		Action: func(ctx *cli.Context) error {
			s, err := a.Store()
			if err != nil {
				return err
			}
			files, err := s.Files.List(ctx.Context)
			if err != nil {
				return err
			}
			rows := [][]string{{"ID", "PATH", "FORMAT", "LOCALE", "IMPORTED"}}
			for _, f := range files {
				rows = append(rows, []string{strconv.FormatInt(f.ID, 10), f.Path, f.Format, f.Locale, humanize.Time(f.CreatedAt)})
			}
			return a.printTable(rows)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "remove a stored file with its units and translations",
				ArgsUsage: "FILE_ID",
				Action: func(ctx *cli.Context) (err error) {
					if err = requireArgs(ctx, 1, "FILE_ID"); err != nil {
						return
					}
					id, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid file id %q", ctx.Args().First())
					}
					s, err := a.Store()
					if err != nil {
						return err
					}
					if err := s.Files.Delete(ctx.Context, id); err != nil {
						return fmt.Errorf("file %d: %w", id, err)
					}
					fmt.Fprintf(a.Out, "deleted file %d\n", id)
					return nil
				},
			},
		},
	}
}
