// Package match finds "did you mean" suggestions for names that failed to
// resolve.
//
// Names are compared with IdentSimilarity: module qualifiers, separators and
// case are dropped by NormalizeIdent, then the rune-level Levenshtein distance
// is scaled to a score between 0 and 1. Suggest keeps the best scores above
// DefaultMinScore.
package match
