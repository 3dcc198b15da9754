package inline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for marker problems.
var (
	// ErrUnterminated indicates a begin marker without a matching end marker.
	ErrUnterminated = errors.New("inline block is not terminated")
	// ErrInvalidDelimiters indicates unusable marker prefixes.
	ErrInvalidDelimiters = errors.New("invalid inline delimiters")
	// ErrMarkerInContent indicates block content holding one of the block's
	// own marker lines, which would re-pair on the next merge.
	ErrMarkerInContent = errors.New("inline content contains its own marker")
)

// Delimiters are the line prefixes that, followed by a block identifier,
// open and close an inline region.
type Delimiters struct {
	Begin string
	End   string
}

// DefaultDelimiters returns "// <marker>:inline:" and "// <marker>:end:".
func DefaultDelimiters(marker string) Delimiters {
	return Delimiters{
		Begin: "// " + marker + ":inline:",
		End:   "// " + marker + ":end:",
	}
}

// Validate checks that both prefixes are set and distinguishable.
func (d Delimiters) Validate() error {
	begin, end := strings.TrimSpace(d.Begin), strings.TrimSpace(d.End)

	switch {
	case begin == "" || end == "":
		return fmt.Errorf("%w: begin and end must be set", ErrInvalidDelimiters)
	case begin == end:
		return fmt.Errorf("%w: begin and end are both %q", ErrInvalidDelimiters, begin)
	default:
		return nil
	}
}

// BeginLine returns the begin marker for id, without indentation or newline.
func (d Delimiters) BeginLine(id string) string {
	return strings.TrimSpace(d.Begin + id)
}

// EndLine returns the end marker for id, without indentation or newline.
func (d Delimiters) EndLine(id string) string {
	return strings.TrimSpace(d.End + id)
}

// SpliceOptions tunes how content is written between markers.
type SpliceOptions struct {
	// IndentContent prefixes every non-empty content line with the begin
	// marker's indentation.
	IndentContent bool
}

// Splice replaces the interior of every begin(id)...end(id) pair in src with
// content and reports how many pairs were replaced. Marker lines are kept
// verbatim. Each begin pairs with the first following end carrying the same
// identifier; lines are matched exactly after trimming surrounding
// whitespace. The interior ends with exactly one newline, or is empty when
// content is blank. A begin marker without an end marker returns
// ErrUnterminated, and content repeating a marker line of id returns
// ErrMarkerInContent; src is not modified in either case.
func Splice(src []byte, id, content string, delims Delimiters, opts SpliceOptions) ([]byte, int, error) {
	if err := delims.Validate(); err != nil {
		return nil, 0, err
	}

	if strings.TrimSpace(id) == "" {
		return nil, 0, errors.New("inline block identifier is empty")
	}

	begin, end := delims.BeginLine(id), delims.EndLine(id)

	for i, line := range strings.Split(content, "\n") {
		if l := []byte(line); isMarker(l, begin) || isMarker(l, end) {
			return nil, 0, fmt.Errorf("%w: %q on content line %d", ErrMarkerInContent, id, i+1)
		}
	}

	lines := splitLines(src)

	var (
		out   bytes.Buffer
		count int
	)

	out.Grow(len(src) + len(content))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		out.Write(line)

		if !isMarker(line, begin) {
			continue
		}

		j := i + 1
		for j < len(lines) && !isMarker(lines[j], end) {
			j++
		}

		if j == len(lines) {
			return nil, 0, fmt.Errorf("%w: %q opened on line %d", ErrUnterminated, id, i+1)
		}

		out.WriteString(formatContent(content, lineEnding(line), indentOf(line), opts))
		out.Write(lines[j])

		i = j
		count++
	}

	if count == 0 {
		return src, 0, nil
	}

	return out.Bytes(), count, nil
}

// Contains reports whether src has a begin marker for id.
func Contains(src []byte, id string, delims Delimiters) bool {
	begin := delims.BeginLine(id)
	for _, line := range splitLines(src) {
		if isMarker(line, begin) {
			return true
		}
	}

	return false
}

// splitLines splits src after every '\n', keeping the terminators.
func splitLines(src []byte) [][]byte {
	var lines [][]byte

	for len(src) > 0 {
		i := bytes.IndexByte(src, '\n')
		if i < 0 {
			lines = append(lines, src)
			break
		}

		lines = append(lines, src[:i+1])
		src = src[i+1:]
	}

	return lines
}

func isMarker(line []byte, marker string) bool {
	return string(bytes.TrimSpace(line)) == marker
}

func lineEnding(line []byte) string {
	if bytes.HasSuffix(line, []byte("\r\n")) {
		return "\r\n"
	}

	return "\n"
}

func indentOf(line []byte) string {
	trimmed := bytes.TrimLeft(line, " \t")

	return string(line[:len(line)-len(trimmed)])
}

// formatContent normalises content to the file's line ending and terminates
// it with exactly one newline.
func formatContent(content, eol, indent string, opts SpliceOptions) string {
	content = strings.TrimRight(content, "\r\n")
	if strings.TrimSpace(content) == "" {
		return ""
	}

	lines := strings.Split(content, "\n")

	var b strings.Builder

	for _, l := range lines {
		l = strings.TrimSuffix(l, "\r")
		if opts.IndentContent && strings.TrimSpace(l) != "" {
			b.WriteString(indent)
		}

		b.WriteString(l)
		b.WriteString(eol)
	}

	return b.String()
}
