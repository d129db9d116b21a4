package policy

// Kind identifies which check produced an Issue.
type Kind string

const (
	KindDisallowed  Kind = "disallowed"
	KindOutdated    Kind = "outdated"
	KindNonUpstream Kind = "non_upstream"
	KindViolation   Kind = "violation"
)

// Issue is a single finding against one input of the flake.
type Issue struct {
	Input string `json:"input"`
	Kind  Kind   `json:"kind"`

	// Reference is the unsupported Git ref of a disallowed issue.
	Reference string `json:"reference,omitempty"`
	// NumDaysOld is the age of an outdated issue.
	NumDaysOld int64 `json:"num_days_old,omitempty"`
	// Owner is the repository owner of a non-upstream issue.
	Owner string `json:"owner,omitempty"`
}

func Disallowed(input, reference string) Issue {
	return Issue{Input: input, Kind: KindDisallowed, Reference: reference}
}

func Outdated(input string, numDaysOld int64) Issue {
	return Issue{Input: input, Kind: KindOutdated, NumDaysOld: numDaysOld}
}

func NonUpstream(input, owner string) Issue {
	return Issue{Input: input, Kind: KindNonUpstream, Owner: owner}
}

func Violation(input string) Issue {
	return Issue{Input: input, Kind: KindViolation}
}

// Count returns how many issues are of the given kind.
func Count(issues []Issue, kind Kind) int {
	n := 0
	for _, issue := range issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the issues of the given kind, keeping their order.
func Filter(issues []Issue, kind Kind) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}
