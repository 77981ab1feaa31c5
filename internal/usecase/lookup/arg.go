package lookup

import (
	"fmt"
	"sort"
	"strings"
)

// Placeholder is one %N (or %LN) marker in a string.
type Placeholder struct {
	Start, End int
	Number     int
	Localized  bool
}

// Placeholders scans s for %1..%99 markers, reading at most two digits as
// QString::arg does.
func Placeholders(s string) []Placeholder {
	var out []Placeholder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		j := i + 1
		loc := false
		if j < len(s) && s[j] == 'L' {
			loc = true
			j++
		}
		if j >= len(s) || s[j] < '0' || s[j] > '9' {
			continue
		}
		n := int(s[j] - '0')
		j++
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			n = n*10 + int(s[j]-'0')
			j++
		}
		if n == 0 {
			continue
		}
		out = append(out, Placeholder{Start: i, End: j, Number: n, Localized: loc})
		i = j - 1
	}
	return out
}

// Numbers returns the distinct placeholder numbers of s in ascending order.
func Numbers(s string) []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range Placeholders(s) {
		if !seen[p.Number] {
			seen[p.Number] = true
			out = append(out, p.Number)
		}
	}
	sort.Ints(out)
	return out
}

// Arg substitutes args in one pass: the lowest placeholder number present
// gets args[0], the next lowest args[1] and so on. Markers without an
// argument are left as they are, and substituted text is never rescanned.
func Arg(s string, args ...any) string {
	ps := Placeholders(s)
	if len(ps) == 0 || len(args) == 0 {
		return s
	}
	nums := Numbers(s)
	repl := map[int]string{}
	for i, n := range nums {
		if i >= len(args) {
			break
		}
		repl[n] = fmt.Sprint(args[i])
	}
	var b strings.Builder
	last := 0
	for _, p := range ps {
		v, ok := repl[p.Number]
		if !ok {
			continue
		}
		b.WriteString(s[last:p.Start])
		b.WriteString(v)
		last = p.End
	}
	b.WriteString(s[last:])
	return b.String()
}
