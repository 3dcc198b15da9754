// Package compose merges partial declarations into a single TypeGraph.
//
// The composer groups declarations by canonical name, creates stubs for
// types seen only through extensions, merges members and annotations,
// resolves supertype and generic-requirement references to TypeIDs, and
// rejects supertype cycles. The result is deterministic for a given
// FileOrder regardless of the order declarations were supplied in.
//
// Key types:
//   - TypeGraph: arena of LogicalTypes addressed by TypeID
//   - LogicalType: the merged view of one type
//   - Composer: runs the composition passes
package compose
