// Package inline splices rendered blocks into marked regions of existing
// source files.
//
// A region is bounded by a begin marker line and an end marker line, each
// carrying the block identifier:
//
//	// weaver:inline:User.AutoCoding
//	...generated content...
//	// weaver:end:User.AutoCoding
//
// Splice is the pure algorithm. Engine applies blocks to files on disk, one
// file at a time per target, writing atomically.
package inline
