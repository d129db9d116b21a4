package policy

import "go.trai.ch/zerr"

var (
	// ErrConditionCompile is returned when a CEL condition fails to parse or
	// type-check.
	ErrConditionCompile = zerr.New("CEL parsing error")

	// ErrConditionRuntime is returned when a CEL condition fails while being
	// evaluated against a dependency.
	ErrConditionRuntime = zerr.New("CEL execution error")

	// ErrNonBooleanCondition is returned when a CEL condition yields anything
	// other than a bool.
	ErrNonBooleanCondition = zerr.New("CEL conditions must return a Boolean")
)
