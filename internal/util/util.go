package util

import (
	"os"
)

func IsNoColor() bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	return noColor
}

// Variables set by common CI providers
var ciVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"BUILDKITE",
	"CIRCLECI",
	"JENKINS_URL",
	"TF_BUILD",
}

// IsCI reports whether we appear to run under a CI service.
func IsCI(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range ciVars {
		if v := getenv(name); v != "" && v != "false" && v != "0" {
			return true
		}
	}
	return false
}
