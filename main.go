package main

import (
	"fmt"
	"os"

	"github.com/go-errors/errors"
	"github.com/urfave/cli/v2"

	"tskit/internal/config"
)

var version = "unversioned"

func main() {
	app := NewApp()
	cliApp := &cli.App{
		Name:    config.AppName,
		Usage:   "inspect, convert and translate Qt Linguist catalogs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-file", Usage: "config file; " + config.Filename() + " when empty", EnvVars: []string{config.EnvPrefix + "CONFIG"}},
			&cli.BoolFlag{Name: "config", Usage: "print the resolved configuration and exit"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "debug logging"},
		},
		Before: func(ctx *cli.Context) error {
			return app.Configure(ctx.String("config-file"), ctx.Bool("debug"), version)
		},
		Action: func(ctx *cli.Context) error {
			if ctx.Bool("config") {
				out, err := app.Config.YAML()
				if err != nil {
					return err
				}
				fmt.Fprint(app.Out, out)
				return nil
			}
			return cli.ShowAppHelp(ctx)
		},
		After: func(*cli.Context) error {
			return app.Close()
		},
		Commands:               app.Commands(),
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
	}

	if err := cliApp.Run(os.Args); err != nil {
		if app.Log != nil && app.Config.Debug {
			app.Log.Error(errors.Wrap(err, 0).ErrorStack())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
