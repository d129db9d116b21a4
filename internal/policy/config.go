package policy

import "time"

// DefaultMaxDays is how old a pinned Nixpkgs may be before it is reported as
// outdated.
const DefaultMaxDays = 30

// Config selects which dependencies are checked and which checks run.
type Config struct {
	CheckSupported bool
	CheckOutdated  bool
	CheckOwner     bool

	// NixpkgsKeys names the root inputs to check, in the order they are
	// reported.
	NixpkgsKeys []string

	// MaxDays is the age limit of the outdated check, in whole days. Zero
	// reports anything a day old or more.
	MaxDays int

	// AllowPath also selects path inputs as check targets.
	AllowPath bool

	// Now returns the current time for age calculations. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig enables every check against the "nixpkgs" input.
func DefaultConfig() Config {
	return Config{
		CheckSupported: true,
		CheckOutdated:  true,
		CheckOwner:     true,
		NixpkgsKeys:    []string{"nixpkgs"},
		MaxDays:        DefaultMaxDays,
	}
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
