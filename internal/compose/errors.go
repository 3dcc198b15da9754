package compose

import (
	"errors"
	"strings"

	"source-weaver/internal/diagnostic"
)

// Sentinel errors for fatal composition failures.
var (
	// ErrComposition matches every *Error returned by Compose.
	ErrComposition = errors.New("composition failed")
	// ErrSupertypeCycle indicates a type that is, transitively, its own supertype.
	ErrSupertypeCycle = errors.New("supertype cycle")
	// ErrDuplicateDeclaration indicates two primary declarations of one name.
	ErrDuplicateDeclaration = errors.New("duplicate primary declaration")
)

// Error is a fatal composition failure. No graph is produced alongside it.
type Error struct {
	// Diagnostics holds the fatal errors plus every warning collected so far.
	Diagnostics diagnostic.Diagnostics
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Diagnostics.Errors))
	for _, d := range e.Diagnostics.Errors {
		parts = append(parts, d.String())
	}

	return "composition failed: " + strings.Join(parts, "; ")
}

// Is matches ErrComposition and the sentinel of every contained error code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrComposition:
		return true
	case ErrSupertypeCycle:
		return e.hasCode(diagnostic.CodeSupertypeCycle)
	case ErrDuplicateDeclaration:
		return e.hasCode(diagnostic.CodeDuplicateDeclaration)
	default:
		return false
	}
}

func (e *Error) hasCode(code string) bool {
	for _, d := range e.Diagnostics.Errors {
		if d.Code == code {
			return true
		}
	}

	return false
}
