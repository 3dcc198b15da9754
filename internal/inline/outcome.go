package inline

//go:generate go tool stringer -type=Outcome -linecomment -output=outcome_string.go

// Outcome is what happened to one inline block.
type Outcome int

const (
	OutcomeMerged   Outcome = iota // merged
	OutcomeAppended                // appended
	OutcomeUnmerged                // unmerged
)
