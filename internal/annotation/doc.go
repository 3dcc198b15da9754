// Package annotation parses comment-driven annotations into typed bags.
//
// Annotations are written in comments attached to a declaration:
//
//	// weaver: skipEquality, jsonKey = "id", limits = [1, 2, 3]
//	// weaver: options = {strict = true, depth = 2}
//
// Each entry is either a bare key (recorded as true) or key = value.
// Values are typed: quoted strings, booleans, numbers, [sequences], and
// {mappings}; anything else is kept as a string. Entries that cannot be
// parsed are dropped and reported as diagnostics, never aborting a run.
package annotation
