// Package source holds the position type shared by declarations,
// diagnostics, and inline merge results.
package source

import "strconv"

// Location identifies a position in an input file.
// Line and Column are 1-based; zero means unknown.
type Location struct {
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line,omitempty"`
	Column int    `yaml:"column,omitempty"`
}

// IsZero reports whether the location carries no information.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

// String renders the location as file:line:column, dropping unknown parts.
func (l Location) String() string {
	if l.IsZero() {
		return ""
	}

	s := l.File
	if l.Line > 0 {
		s += ":" + strconv.Itoa(l.Line)
		if l.Column > 0 {
			s += ":" + strconv.Itoa(l.Column)
		}
	}

	return s
}
