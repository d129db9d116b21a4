package policy

import (
	"math"
	"slices"
	"strings"

	"notashelf.dev/flakecheck/internal/flake"
)

const upstreamOwner = "nixos"

const secondsPerDay = 86400

// Evaluate runs the enabled checks against every selected dependency and
// returns the issues found. Issues are grouped by dependency in the order of
// cfg.NixpkgsKeys; within one dependency the order is supported ref, age,
// owner.
func Evaluate(roots map[string]flake.Node, cfg Config, allowedRefs []string) ([]Issue, error) {
	if !cfg.CheckSupported && !cfg.CheckOutdated && !cfg.CheckOwner {
		return nil, nil
	}

	deps, err := Select(roots, cfg)
	if err != nil {
		return nil, err
	}

	now := cfg.now().Unix()
	maxDays := int64(cfg.MaxDays)

	var issues []Issue
	for _, dep := range deps {
		// Check if not explicitly supported
		if cfg.CheckSupported && dep.Ref != nil {
			if !slices.Contains(allowedRefs, *dep.Ref) {
				issues = append(issues, Disallowed(dep.Name, *dep.Ref))
			}
		}

		// Check if outdated
		if cfg.CheckOutdated && dep.LastModified != nil {
			if days := NumDaysOld(now, *dep.LastModified); days > maxDays {
				issues = append(issues, Outdated(dep.Name, days))
			}
		}

		// Check that the GitHub owner is NixOS
		if cfg.CheckOwner && dep.Owner != nil {
			if !strings.EqualFold(*dep.Owner, upstreamOwner) {
				issues = append(issues, NonUpstream(dep.Name, *dep.Owner))
			}
		}
	}
	return issues, nil
}

// NumDaysOld returns the whole days between lastModified and now, both in
// Unix seconds, truncated toward zero. Differences that do not fit in an
// int64 saturate.
func NumDaysOld(now, lastModified int64) int64 {
	switch {
	case lastModified < 0 && now > math.MaxInt64+lastModified:
		return math.MaxInt64 / secondsPerDay
	case lastModified > 0 && now < math.MinInt64+lastModified:
		return math.MinInt64 / secondsPerDay
	}
	return (now - lastModified) / secondsPerDay
}
