// Package model is the read-only view of a composed TypeGraph that
// templates query.
//
// A Model never mutates the graph and is safe for concurrent use by
// rendering goroutines. Every listing is returned in declaration-discovery
// order unless stated otherwise.
package model
