package flake

import "go.trai.ch/zerr"

var (
	// ErrNotFound is returned when the flake.lock file cannot be read.
	ErrNotFound = zerr.New("couldn't find the flake.lock file")

	// ErrMalformedJSON is returned when the flake.lock is not valid JSON.
	ErrMalformedJSON = zerr.New("couldn't parse the flake.lock file as json")

	// ErrInvalidLock is returned when the flake.lock is valid JSON but does not
	// describe a usable lock graph.
	ErrInvalidLock = zerr.New("invalid flake.lock file")

	// ErrMissingNode is returned when an input reference names a node that is
	// not present in the node table.
	ErrMissingNode = zerr.New("lock node not found")

	// ErrCycleSuspected is returned when chained input references nest deeper
	// than MaxResolveDepth.
	ErrCycleSuspected = zerr.New("input references nest too deeply, suspected cycle")
)

// invalid wraps ErrInvalidLock with a reason.
func invalid(reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidLock, reason), "reason", reason)
}
