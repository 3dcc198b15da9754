package match

import (
	"sort"
)

// DefaultMinScore is the minimum similarity for a name to be suggested.
const DefaultMinScore = 0.6

// DefaultMaxSuggestions caps the number of names returned by Suggest.
const DefaultMaxSuggestions = 3

// Candidate is a known name scored against an unresolved one.
type Candidate struct {
	Name  string
	Score float64
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList []Candidate

// Rank scores every known name against target and returns them sorted by
// score (descending), then by name for determinism.
func Rank(target string, known []string) CandidateList {
	list := make(CandidateList, 0, len(known))
	seen := make(map[string]bool, len(known))

	for _, name := range known {
		if seen[name] {
			continue
		}

		seen[name] = true
		list = append(list, Candidate{Name: name, Score: IdentSimilarity(target, name)})
	}

	sort.Sort(list)

	return list
}

// Suggest returns up to DefaultMaxSuggestions known names that resemble
// target closely enough to be worth mentioning.
func Suggest(target string, known []string) []string {
	ranked := Rank(target, known).AboveThreshold(DefaultMinScore).Top(DefaultMaxSuggestions)
	if len(ranked) == 0 {
		return nil
	}

	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.Name
	}

	return out
}

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less implements sort.Interface.
func (c CandidateList) Less(i, j int) bool {
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}

	return c[i].Name < c[j].Name
}

// Top returns the top n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}

	return c[:n]
}

// AboveThreshold returns candidates with a score of at least threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList

	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}

	return result
}
