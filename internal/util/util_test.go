package util

import (
	"os"
	"testing"
)

func TestIsNoColor(t *testing.T) {
	testCases := []struct {
		name     string
		envVar   string
		envValue string
		expected bool
	}{
		{
			name:     "NO_COLOR not set",
			envVar:   "NO_COLOR",
			envValue: "", // will be unset
			expected: false,
		},
		{
			name:     "NO_COLOR set to any value",
			envVar:   "NO_COLOR",
			envValue: "1",
			expected: true,
		},
		{
			name:     "NO_COLOR set to empty string",
			envVar:   "NO_COLOR",
			envValue: "",
			expected: false, // empty string is treated as unset
		},
		{
			name:     "NO_COLOR set to 0",
			envVar:   "NO_COLOR",
			envValue: "0",
			expected: true, // any value means env var exists
		},
		{
			name:     "NO_COLOR set to false",
			envVar:   "NO_COLOR",
			envValue: "false",
			expected: true, // any value means env var exists
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Restored by t.Setenv once the subtest ends
			t.Setenv(tc.envVar, "")
			os.Unsetenv(tc.envVar)

			if tc.envValue != "" {
				t.Setenv(tc.envVar, tc.envValue)
			}

			result := IsNoColor()
			if result != tc.expected {
				t.Errorf("expected IsNoColor() to return %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestIsCI(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected bool
	}{
		{
			name:     "no CI variables",
			env:      map[string]string{},
			expected: false,
		},
		{
			name:     "generic CI",
			env:      map[string]string{"CI": "true"},
			expected: true,
		},
		{
			name:     "GitHub Actions",
			env:      map[string]string{"GITHUB_ACTIONS": "true"},
			expected: true,
		},
		{
			name:     "CI explicitly disabled",
			env:      map[string]string{"CI": "false"},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := IsCI(func(name string) string { return tc.env[name] })
			if result != tc.expected {
				t.Errorf("expected IsCI() to return %v, got %v", tc.expected, result)
			}
		})
	}
}
