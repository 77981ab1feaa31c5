package app

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"tskit/internal/utils"
)

func (a *App) makeProvidersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "list the configured machine translation providers",
		Action: func(ctx *cli.Context) error {
			rows := [][]string{{"NAME", "TYPE", "MODEL", "URL", "KEY"}}
			for _, p := range a.Config.Providers {
				dp, err := a.Config.Provider(p.Name)
				if err != nil {
					return err
				}
				name := p.Name
				if name == a.Config.DefaultProvider {
					name += "*"
				}
				rows = append(rows, []string{name, p.Type, p.Model, p.BaseURL, mask(dp.APIKey)})
			}
			return a.printTable(rows)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "models",
				Usage:     "list the models a provider offers",
				ArgsUsage: "[NAME]",
				Action: func(ctx *cli.Context) error {
					dp, err := a.Config.Provider(ctx.Args().First())
					if err != nil {
						return err
					}
					reg, err := a.Providers()
					if err != nil {
						return err
					}
					prov, _ := reg.Get(dp.Name)
					models, err := prov.ListModels(ctx.Context)
					if err != nil {
						return err
					}
					rows := [][]string{{"MODEL", "CONTEXT", "DESCRIPTION"}}
					for _, m := range models {
						tokens := ""
						if m.ContextTokens > 0 {
							tokens = strconv.Itoa(m.ContextTokens)
						}
						rows = append(rows, []string{m.Name, tokens, utils.Truncate(m.Description, 60)})
					}
					return a.printTable(rows)
				},
			},
			{
				Name:  "test",
				Usage: "check that every provider is reachable",
				Action: func(ctx *cli.Context) error {
					reg, err := a.Providers()
					if err != nil {
						return err
					}
					results := reg.HealthCheck(ctx.Context)
					failed := false
					for _, name := range reg.Names() {
						if err := results[name]; err != nil {
							failed = true
							fmt.Fprintf(a.Out, "%s: %s %v\n", name, color.RedString("unreachable"), err)
							continue
						}
						fmt.Fprintf(a.Out, "%s: %s\n", name, color.GreenString("ok"))
					}
					if failed {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
		},
	}
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

