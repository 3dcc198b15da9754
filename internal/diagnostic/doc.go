// Package diagnostic provides structured errors, warnings, and notes
// collected while extracting, composing, rendering, and merging.
//
// Key capabilities:
//   - Unresolved type reference warnings with "did you mean" suggestions
//   - Dropped annotation entries
//   - Unmerged inline blocks
//   - Fatal composition problems (cycles, duplicate declarations)
package diagnostic
