package annotation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"source-weaver/internal/decl"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/source"
)

// DefaultMarker is the annotation marker used when none is configured.
const DefaultMarker = "weaver"

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

var (
	errUnbalanced = errors.New("unbalanced brackets or quotes")
	errBadKey     = errors.New("invalid key")
	errBadLiteral = errors.New("invalid literal")
)

// Parser extracts annotation bags from comment text.
type Parser struct {
	marker string
}

// NewParser creates a Parser recognizing "<marker>:" lines.
func NewParser(marker string) *Parser {
	if marker == "" {
		marker = DefaultMarker
	}

	return &Parser{marker: marker}
}

// Marker returns the configured marker token.
func (p *Parser) Marker() string {
	return p.marker
}

// ParseComment parses the leading lines and the trailing comment of c.
func (p *Parser) ParseComment(c decl.Comment, loc source.Location, diags *diagnostic.Diagnostics) Bag {
	return p.Parse(c.Lines(), loc, diags)
}

// Parse builds a bag from raw comment lines. Bodies of every annotation line
// are processed in order, so later duplicates overwrite earlier ones.
// Malformed entries are reported to diags (which may be nil) and dropped.
func (p *Parser) Parse(lines []string, loc source.Location, diags *diagnostic.Diagnostics) Bag {
	bag := Bag{}

	for _, body := range p.bodies(lines) {
		segments, bad := splitTopLevel(body)
		for _, seg := range bad {
			report(diags, loc, seg, errUnbalanced)
		}

		for _, seg := range segments {
			key, val, err := parseEntry(seg)
			if err != nil {
				report(diags, loc, seg, err)
				continue
			}

			bag[key] = val
		}
	}

	return bag
}

func report(diags *diagnostic.Diagnostics, loc source.Location, entry string, err error) {
	if diags == nil {
		return
	}

	diags.AddWarning(diagnostic.CodeAnnotationMalformed,
		fmt.Sprintf("dropped annotation entry %q: %v", entry, err), "", loc)
}

// bodies returns the annotation bodies found in lines, with block comment
// continuations joined onto the line that opened them.
func (p *Parser) bodies(lines []string) []string {
	var (
		out     []string
		pending *strings.Builder
		inBlock bool
	)

	flush := func() {
		if pending != nil {
			out = append(out, pending.String())
			pending = nil
		}
	}

	for _, line := range lines {
		wasInBlock := inBlock

		var content string
		content, inBlock = stripComment(line, inBlock)

		if pending != nil && wasInBlock {
			pending.WriteString(" ")
			pending.WriteString(content)

			if !inBlock || !needsContinuation(pending.String()) {
				flush()
			}

			continue
		}

		flush()

		body, ok := p.annotationBody(content)
		if !ok {
			continue
		}

		pending = &strings.Builder{}
		pending.WriteString(body)

		if !inBlock || !needsContinuation(body) {
			flush()
		}
	}

	flush()

	return out
}

// annotationBody returns the text after "<marker>:" when content is an
// annotation line. Directives such as "<marker>:inline:X" are not.
func (p *Parser) annotationBody(content string) (string, bool) {
	prefix := p.marker + ":"
	if !strings.HasPrefix(content, prefix) {
		return "", false
	}

	rest := content[len(prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}

	return strings.TrimSpace(rest), true
}

// stripComment removes comment syntax from one line and tracks whether a
// block comment remains open after it.
func stripComment(line string, inBlock bool) (string, bool) {
	text := strings.TrimSpace(line)

	switch {
	case inBlock:
	case strings.HasPrefix(text, "//"):
		return strings.TrimSpace(strings.TrimLeft(text, "/")), false
	case strings.HasPrefix(text, "/*"):
		text = text[2:]
		inBlock = true
	default:
		return text, false
	}

	if i := strings.Index(text, "*/"); i >= 0 {
		text = text[:i]
		inBlock = false
	}

	return strings.TrimSpace(strings.TrimLeft(text, "*")), inBlock
}

func needsContinuation(body string) bool {
	trimmed := strings.TrimSpace(body)
	if strings.HasSuffix(trimmed, ",") {
		return true
	}

	depth, quote := scanDepth(trimmed)

	return depth > 0 || quote != 0
}

// scanDepth reports the bracket depth and open quote left at the end of s.
func scanDepth(s string) (int, byte) {
	depth := 0

	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case (c == '"' || c == '\'') && opensQuote(s, i):
			quote = c
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		}
	}

	return depth, quote
}

// opensQuote reports whether the quote at s[i] starts a token, so that
// apostrophes inside bare words do not open a string.
func opensQuote(s string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch s[j] {
		case ' ', '\t':
			continue
		case ',', '=', '[', '{':
			return true
		default:
			return false
		}
	}

	return true
}

// splitTopLevel splits s on commas outside brackets and quotes. Segments
// with mismatched or unclosed brackets or quotes are returned as bad.
func splitTopLevel(s string) (segments, bad []string) {
	var (
		stack  []byte
		quote  byte
		broken bool
		start  int
	)

	emit := func(end int) {
		seg := strings.TrimSpace(s[start:end])
		if seg == "" && !broken {
			return
		}

		if broken {
			bad = append(bad, seg)
		} else {
			segments = append(segments, seg)
		}

		broken = false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case '"', '\'':
			if opensQuote(s, i) {
				quote = c
			}
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			open := byte('[')
			if c == '}' {
				open = '{'
			}

			if len(stack) == 0 || stack[len(stack)-1] != open {
				broken = true
			}

			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) == 0 {
				emit(i)
				start = i + 1
			}
		}
	}

	if len(stack) > 0 || quote != 0 {
		broken = true
	}

	emit(len(s))

	return segments, bad
}

// indexTopLevel returns the index of the first sep outside brackets and quotes.
func indexTopLevel(s string, sep byte) int {
	depth := 0

	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case (c == '"' || c == '\'') && opensQuote(s, i):
			quote = c
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			return i
		}
	}

	return -1
}

// parseEntry parses "key" or "key = value".
func parseEntry(seg string) (string, Value, error) {
	idx := indexTopLevel(seg, '=')
	if idx < 0 {
		key := strings.TrimSpace(seg)
		if !keyPattern.MatchString(key) {
			return "", Value{}, errBadKey
		}

		return key, Bool(true), nil
	}

	key := strings.TrimSpace(seg[:idx])
	if !keyPattern.MatchString(key) {
		return "", Value{}, errBadKey
	}

	val, err := parseValue(strings.TrimSpace(seg[idx+1:]))
	if err != nil {
		return "", Value{}, err
	}

	return key, val, nil
}

// parseValue parses a literal: quoted string, bool, number, [sequence],
// {mapping}, or a bare string.
func parseValue(raw string) (Value, error) {
	if raw == "" {
		return String(""), nil
	}

	switch raw[0] {
	case '"', '\'':
		return parseQuoted(raw)
	case '[':
		if raw[len(raw)-1] != ']' {
			return Value{}, errBadLiteral
		}

		return parseSequence(raw[1 : len(raw)-1])
	case '{':
		if raw[len(raw)-1] != '}' {
			return Value{}, errBadLiteral
		}

		return parseMapping(raw[1 : len(raw)-1])
	}

	switch raw {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	if n, ok := parseNumber(raw); ok {
		return Number(n), nil
	}

	return String(raw), nil
}

func parseQuoted(raw string) (Value, error) {
	q := raw[0]
	if len(raw) < 2 || raw[len(raw)-1] != q {
		return Value{}, errBadLiteral
	}

	if q == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return String(s), nil
		}
	}

	inner := raw[1 : len(raw)-1]

	return String(strings.ReplaceAll(inner, `\`+string(q), string(q))), nil
}

func parseSequence(inner string) (Value, error) {
	segments, bad := splitTopLevel(inner)
	if len(bad) > 0 {
		return Value{}, errUnbalanced
	}

	items := make([]Value, 0, len(segments))
	for _, seg := range segments {
		v, err := parseValue(seg)
		if err != nil {
			return Value{}, err
		}

		items = append(items, v)
	}

	return Sequence(items...), nil
}

func parseMapping(inner string) (Value, error) {
	segments, bad := splitTopLevel(inner)
	if len(bad) > 0 {
		return Value{}, errUnbalanced
	}

	bag := Bag{}
	for _, seg := range segments {
		key, v, err := parseEntry(seg)
		if err != nil {
			return Value{}, err
		}

		bag[key] = v
	}

	return Mapping(bag), nil
}

func parseNumber(raw string) (float64, bool) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return float64(i), true
	}

	lower := strings.ToLower(raw)
	if !strings.ContainsAny(raw, "0123456789") || strings.Contains(lower, "inf") ||
		strings.Contains(lower, "nan") || strings.Contains(lower, "x") {
		return 0, false
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}
