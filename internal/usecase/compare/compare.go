// Package compare checks catalogs for equivalence at the entry level, where
// layout and whitespace between elements do not matter.
package compare

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fvbommel/sortorder"
	"github.com/pmezard/go-difflib/difflib"

	"tskit/internal/domain"
	"tskit/internal/ports"
)

// Entries flattens c into (context, source, comment, translation, status)
// tuples in document order.
func Entries(c *domain.Catalog) []domain.Entry { return c.Entries() }

// Equivalent reports whether both catalogs hold the same tuple multiset.
func Equivalent(a, b *domain.Catalog) bool {
	return Listing(a) == Listing(b)
}

// Listing renders the catalog as one quoted tuple per line, sorted naturally
// by context and source. It is the canonical form diffs are computed on.
func Listing(c *domain.Catalog) string {
	entries := c.Entries()
	sortEntries(entries)
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(line(e))
		b.WriteByte('\n')
	}
	return b.String()
}

func line(e domain.Entry) string {
	return fmt.Sprintf("%s %s %s => %s [%s]",
		strconv.Quote(e.Context), strconv.Quote(e.Source), strconv.Quote(e.Comment),
		strconv.Quote(e.Translation), e.Status)
}

func sortEntries(es []domain.Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.Context != b.Context {
			return sortorder.NaturalLess(a.Context, b.Context)
		}
		if a.Source != b.Source {
			return sortorder.NaturalLess(a.Source, b.Source)
		}
		if a.Comment != b.Comment {
			return a.Comment < b.Comment
		}
		if a.Translation != b.Translation {
			return a.Translation < b.Translation
		}
		return a.Status < b.Status
	})
}

// Change is a key present on both sides with different text or status.
type Change struct {
	Key    domain.Key
	Before domain.Entry
	After  domain.Entry
}

type Result struct {
	Added   []domain.Entry
	Removed []domain.Entry
	Changed []Change
	// Unified is a unified diff of the two listings; empty when equal.
	Unified string
}

func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Diff compares a (before) with b (after). Keys repeated within a catalog
// are matched in order of appearance.
func Diff(a, b *domain.Catalog, fromName, toName string) (Result, error) {
	var res Result
	before := map[domain.Key][]domain.Entry{}
	for _, e := range a.Entries() {
		before[e.Key()] = append(before[e.Key()], e)
	}
	for _, e := range b.Entries() {
		k := e.Key()
		prev := before[k]
		if len(prev) == 0 {
			res.Added = append(res.Added, e)
			continue
		}
		before[k] = prev[1:]
		if prev[0] != e {
			res.Changed = append(res.Changed, Change{Key: k, Before: prev[0], After: e})
		}
	}
	for _, e := range a.Entries() {
		k := e.Key()
		if rest := before[k]; len(rest) > 0 {
			res.Removed = append(res.Removed, rest[0])
			before[k] = rest[1:]
		}
	}
	la, lb := Listing(a), Listing(b)
	if la != lb {
		u, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(la),
			B:        difflib.SplitLines(lb),
			FromFile: fromName,
			ToFile:   toName,
			Context:  1,
		})
		if err != nil {
			return res, fmt.Errorf("unified diff: %w", err)
		}
		res.Unified = u
	}
	return res, nil
}

type RoundTripResult struct {
	Output []byte
	// Equivalent is true when reparsing Output yields the same tuples.
	Equivalent bool
	// Identical is true when Output equals the input byte for byte.
	Identical bool
}

// RoundTrip parses data, serializes it again and reparses the output.
func RoundTrip(data []byte, p ports.Parser, e ports.Exporter) (RoundTripResult, error) {
	first, err := p.Parse(data)
	if err != nil {
		return RoundTripResult{}, err
	}
	out, err := e.Export(first.Catalog, ports.ExportOptions{})
	if err != nil {
		return RoundTripResult{}, fmt.Errorf("serialize: %w", err)
	}
	second, err := p.Parse(out)
	if err != nil {
		return RoundTripResult{Output: out}, fmt.Errorf("reparse: %w", err)
	}
	return RoundTripResult{
		Output:     out,
		Equivalent: Equivalent(first.Catalog, second.Catalog),
		Identical:  bytes.Equal(data, out),
	}, nil
}
