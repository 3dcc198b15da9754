package inline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	rendered := "package out\n" +
		"// weaver:inline:User.AutoCoding\n" +
		"\tfunc (u *User) Encode() {}\n" +
		"// weaver:end:User.AutoCoding\n" +
		"var x = 1\n" +
		"  // weaver:inline:Admin.Extra\n" +
		"// weaver:inline:Nested.Block\n" +
		"  // weaver:end:Admin.Extra\n"

	blocks, rest, err := ParseBlocks(rendered, "coding.gotmpl", DefaultDelimiters("weaver"))
	require.NoError(t, err)

	assert.Equal(t, "package out\nvar x = 1\n", rest)
	require.Len(t, blocks, 2)

	assert.Equal(t, "User.AutoCoding", blocks[0].ID)
	assert.Equal(t, "\tfunc (u *User) Encode() {}\n", blocks[0].Content)
	assert.Equal(t, "coding.gotmpl", blocks[0].Origin.File)
	assert.Equal(t, 2, blocks[0].Origin.Line)

	assert.Equal(t, "Admin.Extra", blocks[1].ID)
	assert.Equal(t, "// weaver:inline:Nested.Block\n", blocks[1].Content)
}

func TestParseBlocks_Unterminated(t *testing.T) {
	_, _, err := ParseBlocks("// weaver:inline:A.B\nbody\n", "t.gotmpl", DefaultDelimiters("weaver"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminated))
	assert.Contains(t, err.Error(), "t.gotmpl:1")
}

func TestParseBlocks_NoBlocks(t *testing.T) {
	blocks, rest, err := ParseBlocks("plain text\n// weaver:inline:\n", "t", DefaultDelimiters("weaver"))
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.Equal(t, "plain text\n// weaver:inline:\n", rest)
}

func TestTypeResolver(t *testing.T) {
	files := map[string]string{
		"User":     "Sources/User.swift",
		"app.User": "app/user.go",
	}

	resolver := TypeResolver(func(name string) (string, bool) {
		f, ok := files[name]
		return f, ok
	})

	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "User.AutoCoding", want: "Sources/User.swift"},
		{id: "app.User.AutoCoding", want: "app/user.go"},
		{id: "User.Coding.Keys", want: "Sources/User.swift"},
		{id: "Missing.Block", wantErr: true},
		{id: "NoDot", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := resolver.ResolveTarget(tt.id)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNoTarget))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
