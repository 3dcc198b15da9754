package inline

import (
	"errors"
	"fmt"
	"strings"

	"source-weaver/internal/source"
)

// ErrNoTarget indicates an identifier that does not name a known target file.
var ErrNoTarget = errors.New("no target file for inline block")

// Block is one rendered inline region.
type Block struct {
	// ID is the marker identifier, e.g. "User.AutoCoding".
	ID string
	// Target is the file to splice into. Resolved by the Engine when empty.
	Target string
	// Content is the text placed between the markers.
	Content string
	// Origin is where the block was rendered.
	Origin source.Location
}

// ParseBlocks pulls inline blocks out of rendered text. It returns the blocks
// in order of appearance and the text left outside them. origin names the
// rendered output for Block.Origin.
func ParseBlocks(rendered, origin string, delims Delimiters) ([]Block, string, error) {
	if err := delims.Validate(); err != nil {
		return nil, "", err
	}

	prefix := strings.TrimLeft(delims.Begin, " \t")

	var (
		blocks []Block
		rest   strings.Builder
		cur    *Block
		body   strings.Builder
		end    string
	)

	for i, line := range splitLines([]byte(rendered)) {
		text := strings.TrimSpace(string(line))

		if cur != nil {
			if text == end {
				cur.Content = body.String()
				blocks = append(blocks, *cur)
				cur = nil

				continue
			}

			body.Write(line)

			continue
		}

		if id, ok := strings.CutPrefix(text, prefix); ok && strings.TrimSpace(id) != "" {
			id = strings.TrimSpace(id)
			cur = &Block{ID: id, Origin: source.Location{File: origin, Line: i + 1}}
			end = delims.EndLine(id)
			body.Reset()

			continue
		}

		rest.Write(line)
	}

	if cur != nil {
		return nil, "", fmt.Errorf("%w: %q opened at %s", ErrUnterminated, cur.ID, cur.Origin)
	}

	return blocks, rest.String(), nil
}

// TargetResolver maps a block identifier to the file it is spliced into.
type TargetResolver interface {
	ResolveTarget(id string) (string, error)
}

// TargetResolverFunc adapts a function to TargetResolver.
type TargetResolverFunc func(id string) (string, error)

// ResolveTarget implements TargetResolver.
func (f TargetResolverFunc) ResolveTarget(id string) (string, error) {
	return f(id)
}

// TypeResolver resolves "<Type>.<Name>" identifiers to the file returned by
// locate for the type. The longest prefix naming a known type wins, so
// module-qualified type names work too.
func TypeResolver(locate func(typeName string) (string, bool)) TargetResolver {
	return TargetResolverFunc(func(id string) (string, error) {
		name := id
		for {
			i := strings.LastIndexByte(name, '.')
			if i <= 0 {
				return "", fmt.Errorf("%w: %q", ErrNoTarget, id)
			}

			name = name[:i]
			if file, ok := locate(name); ok && file != "" {
				return file, nil
			}
		}
	})
}
