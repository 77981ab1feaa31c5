package main

import (
	apiapp "tskit/internal/api/app"
	expcsv "tskit/internal/adapters/exporter/csv"
	expjson "tskit/internal/adapters/exporter/nestedjson"
	exppo "tskit/internal/adapters/exporter/po"
	expts "tskit/internal/adapters/exporter/qtts"
	exportreg "tskit/internal/adapters/exporter/registry"
	csvparser "tskit/internal/adapters/parser/csv"
	jsonparser "tskit/internal/adapters/parser/nestedjson"
	tsparser "tskit/internal/adapters/parser/qtts"
	parreg "tskit/internal/adapters/parser/registry"
)

// NewApp wires the format registries. Parsers and exporters are registered
// directly to keep wiring explicit.
func NewApp() *apiapp.App {
	parsers := parreg.New()
	parsers.Register(tsparser.New())
	parsers.Register(csvparser.New())
	parsers.Register(jsonparser.New())

	exporters := exportreg.New()
	exporters.Register(expts.New())
	exporters.Register(expcsv.New())
	exporters.Register(expjson.New())
	exporters.Register(exppo.New())

	return apiapp.New(parsers, exporters)
}
