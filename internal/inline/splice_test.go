package inline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var beginEnd = Delimiters{Begin: "// begin ", End: "// end "}

func TestSplice_Idempotent(t *testing.T) {
	src := []byte("head\n// begin X\nstale();\n// end X\ntail\n")

	once, n, err := Splice(src, "X", "foo();", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "head\n// begin X\nfoo();\n// end X\ntail\n", string(once))

	twice, n, err := Splice(once, "X", "foo();", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, string(once), string(twice))
}

func TestSplice_AbsentIdentifier(t *testing.T) {
	src := []byte("head\n// begin X\nx\n// end X\n")

	out, n, err := Splice(src, "Y", "foo();", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, src, out)
	assert.False(t, Contains(src, "Y", beginEnd))
	assert.True(t, Contains(src, "X", beginEnd))
}

func TestSplice_DistinctIdentifiersDoNotInterfere(t *testing.T) {
	src := []byte("// begin X\n// end X\nmid\n// begin XY\nkeep\n// end XY\n// begin Y\nold\n// end Y\n")

	apply := func(in []byte, id, content string) []byte {
		out, n, err := Splice(in, id, content, beginEnd, SpliceOptions{})
		require.NoError(t, err)
		require.Equal(t, 1, n)

		return out
	}

	xy := apply(apply(src, "X", "x();"), "Y", "y();")
	yx := apply(apply(src, "Y", "y();"), "X", "x();")

	want := "// begin X\nx();\n// end X\nmid\n// begin XY\nkeep\n// end XY\n// begin Y\ny();\n// end Y\n"
	assert.Equal(t, want, string(xy))
	assert.Equal(t, want, string(yx))
}

func TestSplice_TrailingNewlineNormalised(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no newline", "foo();", "// begin X\nfoo();\n// end X\n"},
		{"one newline", "foo();\n", "// begin X\nfoo();\n// end X\n"},
		{"many newlines", "foo();\n\n\n", "// begin X\nfoo();\n// end X\n"},
		{"multi-line", "a();\n\nb();", "// begin X\na();\n\nb();\n// end X\n"},
		{"empty", "", "// begin X\n// end X\n"},
		{"blank", "\n\n", "// begin X\n// end X\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Splice([]byte("// begin X\nold\n// end X\n"), "X", tt.content, beginEnd, SpliceOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestSplice_MarkersKeptVerbatim(t *testing.T) {
	src := []byte("func f() {\n\t// begin X  \n\told()\n\t// end X\n}\n")

	plain, _, err := Splice(src, "X", "a()\nb()", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, "func f() {\n\t// begin X  \na()\nb()\n\t// end X\n}\n", string(plain))

	indented, _, err := Splice(src, "X", "a()\n\nb()", beginEnd, SpliceOptions{IndentContent: true})
	require.NoError(t, err)
	assert.Equal(t, "func f() {\n\t// begin X  \n\ta()\n\n\tb()\n\t// end X\n}\n", string(indented))
}

func TestSplice_CRLF(t *testing.T) {
	src := []byte("// begin X\r\nold\r\n// end X\r\n")

	out, _, err := Splice(src, "X", "a();\nb();\n", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, "// begin X\r\na();\r\nb();\r\n// end X\r\n", string(out))
}

func TestSplice_EveryPairReplaced(t *testing.T) {
	src := []byte("// begin X\n1\n// end X\n--\n// begin X\n2\n// end X")

	out, n, err := Splice(src, "X", "z", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "// begin X\nz\n// end X\n--\n// begin X\nz\n// end X", string(out))
}

func TestSplice_FirstOpeningPairsWithNextClosing(t *testing.T) {
	src := []byte("// begin X\n// begin X\nold\n// end X\n// end X\n")

	out, n, err := Splice(src, "X", "new", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "// begin X\nnew\n// end X\n// end X\n", string(out))
}

func TestSplice_Unterminated(t *testing.T) {
	src := []byte("// begin X\nold\n// end Y\n")

	out, n, err := Splice(src, "X", "new", beginEnd, SpliceOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminated))
	assert.Contains(t, err.Error(), "line 1")
	assert.Nil(t, out)
	assert.Zero(t, n)
}

func TestSplice_InvalidInput(t *testing.T) {
	_, _, err := Splice([]byte("x"), "X", "", Delimiters{Begin: "// m ", End: "// m"}, SpliceOptions{})
	assert.True(t, errors.Is(err, ErrInvalidDelimiters))

	_, _, err = Splice([]byte("x"), "X", "", Delimiters{}, SpliceOptions{})
	assert.True(t, errors.Is(err, ErrInvalidDelimiters))

	_, _, err = Splice([]byte("x"), "  ", "", beginEnd, SpliceOptions{})
	assert.Error(t, err)
}

func TestSplice_RejectsOwnMarkerInContent(t *testing.T) {
	src := []byte("// begin X\nold\n// end X\n")

	for _, content := range []string{"a()\n  // end X\nb()", "// begin X"} {
		out, n, err := Splice(src, "X", content, beginEnd, SpliceOptions{})
		require.ErrorIs(t, err, ErrMarkerInContent)
		assert.Nil(t, out)
		assert.Zero(t, n)
	}

	out, n, err := Splice(src, "X", "// end XY", beginEnd, SpliceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "// begin X\n// end XY\n// end X\n", string(out))
}

func TestDefaultDelimiters(t *testing.T) {
	d := DefaultDelimiters("weaver")

	assert.Equal(t, "// weaver:inline:User.AutoCoding", d.BeginLine("User.AutoCoding"))
	assert.Equal(t, "// weaver:end:User.AutoCoding", d.EndLine("User.AutoCoding"))
	assert.NoError(t, d.Validate())
}
