package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var colorRE = regexp.MustCompile(`\x1B\[([0-9]{1,2}(;[0-9]{1,2})?)?[m|K]`)

// Decolorise strips a string of color
func Decolorise(str string) string {
	return colorRE.ReplaceAllString(str, "")
}

// Width is the number of terminal cells str occupies, ignoring color codes.
// CJK translations take two cells per rune.
func Width(str string) int {
	return runewidth.StringWidth(Decolorise(str))
}

// WithPadding pads a string as much as you want
func WithPadding(str string, padding int) string {
	w := Width(str)
	if padding < w {
		return str
	}
	return str + strings.Repeat(" ", padding-w)
}

// Truncate shortens str to at most width cells, marking the cut with "…".
func Truncate(str string, width int) string {
	return runewidth.Truncate(str, width, "…")
}

func ColoredString(str string, colorAttribute color.Attribute) string {
	return color.New(colorAttribute).Sprint(str)
}

// RenderTable aligns the columns of rows. The last column is not padded.
func RenderTable(rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	for _, r := range rows {
		if len(r) != len(rows[0]) {
			return "", errors.New("each row must have the same number of columns")
		}
	}
	padWidths := getPadWidths(rows)
	lines := make([]string, len(rows))
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		var b strings.Builder
		for j, w := range padWidths {
			b.WriteString(WithPadding(r[j], w))
			b.WriteString(" ")
		}
		b.WriteString(r[len(padWidths)])
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n"), nil
}

func getPadWidths(rows [][]string) []int {
	if len(rows[0]) <= 1 {
		return []int{}
	}
	padWidths := make([]int, len(rows[0])-1)
	for i := range padWidths {
		for _, r := range rows {
			if w := Width(r[i]); w > padWidths[i] {
				padWidths[i] = w
			}
		}
	}
	return padWidths
}
