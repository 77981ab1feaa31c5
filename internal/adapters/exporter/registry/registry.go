package registry

import (
	"path/filepath"
	"sort"
	"strings"
	"tskit/internal/ports"
)

type Registry struct{ byFormat map[string]ports.Exporter }

func New() *Registry { return &Registry{byFormat: map[string]ports.Exporter{}} }

func (r *Registry) Register(e ports.Exporter) { r.byFormat[e.Format()] = e }

func (r *Registry) Get(format string) (ports.Exporter, bool) { e, ok := r.byFormat[format]; return e, ok }

// ForPath picks an exporter by file extension.
func (r *Registry) ForPath(path string) (ports.Exporter, bool) {
	return r.Get(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.byFormat))
	for f := range r.byFormat {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
