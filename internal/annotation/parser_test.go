package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"source-weaver/internal/decl"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/source"
)

func TestParser_MixedEntries(t *testing.T) {
	p := NewParser("marker")

	var diags diagnostic.Diagnostics
	bag := p.Parse([]string{`// marker: foo, bar = 1, baz = "x y", arr = [1, 2, 3]`}, source.Location{}, &diags)

	want := Bag{
		"foo": Bool(true),
		"bar": Number(1),
		"baz": String("x y"),
		"arr": Sequence(Number(1), Number(2), Number(3)),
	}
	assert.True(t, want.Equal(bag), "got %s", bag)
	assert.Equal(t, 0, diags.Len())
}

func TestParser_LaterLinesOverwrite(t *testing.T) {
	p := NewParser("weaver")
	bag := p.Parse([]string{
		"// weaver: a = 1",
		"// weaver: a = 2, b = 3",
	}, source.Location{}, nil)

	assert.True(t, Bag{"a": Number(2), "b": Number(3)}.Equal(bag), "got %s", bag)
}

func TestParser_ValueTypes(t *testing.T) {
	tests := []struct {
		name string
		line string
		key  string
		want Value
	}{
		{"bare key", "// weaver: skip", "skip", Bool(true)},
		{"false", "// weaver: skip = false", "skip", Bool(false)},
		{"integer", "// weaver: n = 42", "n", Number(42)},
		{"negative float", "// weaver: n = -2.5", "n", Number(-2.5)},
		{"exponent", "// weaver: n = 1e3", "n", Number(1000)},
		{"double quoted with comma", `// weaver: s = "a, b"`, "s", String("a, b")},
		{"escaped quote", `// weaver: s = "say \"hi\""`, "s", String(`say "hi"`)},
		{"single quoted", `// weaver: s = 'x y'`, "s", String("x y")},
		{"bare string", "// weaver: name = Foo.Bar", "name", String("Foo.Bar")},
		{"apostrophe in bare word", "// weaver: note = don't", "note", String("don't")},
		{"quoted number stays string", `// weaver: s = "1"`, "s", String("1")},
		{"empty value", "// weaver: s =", "s", String("")},
		{"nan is a string", "// weaver: s = NaN", "s", String("NaN")},
		{"empty sequence", "// weaver: xs = []", "xs", Sequence()},
		{"nested sequence", `// weaver: xs = [[1, 2], "a,b", true]`, "xs",
			Sequence(Sequence(Number(1), Number(2)), String("a,b"), Bool(true))},
		{"mapping", "// weaver: m = {strict = true, depth = 2, tag}", "m",
			Mapping(Bag{"strict": Bool(true), "depth": Number(2), "tag": Bool(true)})},
		{"dotted key", "// weaver: json.key = id", "json.key", String("id")},
	}

	p := NewParser("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags diagnostic.Diagnostics
			bag := p.Parse([]string{tt.line}, source.Location{}, &diags)

			got, ok := bag.Get(tt.key)
			require.True(t, ok, "key %q missing from %s", tt.key, bag)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, 0, diags.Len())
		})
	}
}

func TestParser_MalformedEntriesDropped(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kept    []string
		dropped int
	}{
		{"unclosed bracket", "// weaver: ok, bad = [1, 2", []string{"ok"}, 1},
		{"unclosed quote", `// weaver: ok, bad = "never closed`, []string{"ok"}, 1},
		{"stray closer", "// weaver: bad = 1], ok = 2", []string{"ok"}, 1},
		{"mismatched brackets", "// weaver: bad = [1}, ok", []string{"ok"}, 1},
		{"invalid key", "// weaver: two words = 1, ok", []string{"ok"}, 1},
		{"empty key", "// weaver: = 3, ok", []string{"ok"}, 1},
		{"junk after quote", `// weaver: bad = "a" b, ok`, []string{"ok"}, 1},
		{"bad nested entry", "// weaver: bad = {1 = 2}, ok", []string{"ok"}, 1},
	}

	p := NewParser("weaver")
	loc := source.Location{File: "Foo.swift", Line: 7}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diags diagnostic.Diagnostics
			bag := p.Parse([]string{tt.line}, loc, &diags)

			assert.Equal(t, tt.kept, bag.Keys())
			require.Len(t, diags.Warnings, tt.dropped)
			assert.Equal(t, diagnostic.CodeAnnotationMalformed, diags.Warnings[0].Code)
			assert.Equal(t, loc, diags.Warnings[0].Location)
		})
	}
}

func TestParser_CommentSyntax(t *testing.T) {
	p := NewParser("weaver")

	tests := []struct {
		name  string
		lines []string
		want  Bag
	}{
		{
			name:  "triple slash",
			lines: []string{"/// weaver: a"},
			want:  Bag{"a": Bool(true)},
		},
		{
			name:  "single line block",
			lines: []string{"/* weaver: a = 1 */"},
			want:  Bag{"a": Number(1)},
		},
		{
			name: "block continuation after comma",
			lines: []string{
				"/**",
				" * weaver: a = 1,",
				" *   b = [2,",
				" *   3]",
				" */",
			},
			want: Bag{"a": Number(1), "b": Sequence(Number(2), Number(3))},
		},
		{
			name: "line comments do not continue",
			lines: []string{
				"// weaver: a,",
				"// b is prose",
			},
			want: Bag{"a": Bool(true)},
		},
		{
			name: "prose and directives ignored",
			lines: []string{
				"// Foo does things.",
				"// weaver:inline:Foo.Coding",
				"// weaver:end",
				"// weaverish: no",
				"// weaver: yes",
			},
			want: Bag{"yes": Bool(true)},
		},
		{
			name:  "text without comment markers",
			lines: []string{"weaver: raw = true"},
			want:  Bag{"raw": Bool(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := p.Parse(tt.lines, source.Location{}, nil)
			assert.True(t, tt.want.Equal(bag), "want %s, got %s", tt.want, bag)
		})
	}
}

func TestParser_ParseCommentIncludesTrailing(t *testing.T) {
	p := NewParser("weaver")
	c := decl.Comment{
		Leading:  []string{"// weaver: a = 1"},
		Trailing: "// weaver: a = 2, b",
	}

	bag := p.ParseComment(c, source.Location{}, nil)
	assert.True(t, Bag{"a": Number(2), "b": Bool(true)}.Equal(bag), "got %s", bag)
}

func TestParser_EmptyInput(t *testing.T) {
	bag := NewParser("").Parse(nil, source.Location{}, nil)
	assert.NotNil(t, bag)
	assert.Empty(t, bag)
	assert.Equal(t, DefaultMarker, NewParser("").Marker())
}
