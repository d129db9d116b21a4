// Package config loads flakecheck settings from a YAML file, a .env file and
// the environment.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
	"notashelf.dev/flakecheck/internal/policy"
)

const (
	// DefaultFile is read when no config path is given. It may be absent.
	DefaultFile = "flakecheck.yaml"

	// EnvFile is loaded into the environment before variables are read.
	EnvFile = ".env"

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "NIX_FLAKE_CHECKER_"
)

var ErrConfig = zerr.New("invalid configuration")

// Config holds every setting of a flakecheck run.
type Config struct {
	LockfilePath string `yaml:"lockfile"`

	CheckSupported bool     `yaml:"check_supported"`
	CheckOutdated  bool     `yaml:"check_outdated"`
	CheckOwner     bool     `yaml:"check_owner"`
	NixpkgsKeys    []string `yaml:"nixpkgs_keys"`
	MaxDays        int      `yaml:"max_days"`
	AllowPath      bool     `yaml:"allow_path"`

	// Condition is a CEL expression replacing the fixed checks.
	Condition string `yaml:"condition"`

	// AllowedRefs is a JSON file overriding the bundled list of refs.
	AllowedRefs string `yaml:"allowed_refs"`

	FailMode       bool   `yaml:"fail_mode"`
	SendStatistics bool   `yaml:"send_statistics"`
	Output         string `yaml:"output"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	p := policy.DefaultConfig()
	return &Config{
		LockfilePath:   "flake.lock",
		CheckSupported: p.CheckSupported,
		CheckOutdated:  p.CheckOutdated,
		CheckOwner:     p.CheckOwner,
		NixpkgsKeys:    p.NixpkgsKeys,
		MaxDays:        p.MaxDays,
		Output:         "pretty",
	}
}

// Validate checks settings that no single layer can check on its own.
func (c *Config) Validate() error {
	if c.MaxDays < 0 {
		return zerr.With(zerr.Wrap(ErrConfig, "max days must not be negative"), "max_days", c.MaxDays)
	}
	return nil
}

// Policy returns the part of the config the checks need.
func (c *Config) Policy() policy.Config {
	return policy.Config{
		CheckSupported: c.CheckSupported,
		CheckOutdated:  c.CheckOutdated,
		CheckOwner:     c.CheckOwner,
		NixpkgsKeys:    c.NixpkgsKeys,
		MaxDays:        c.MaxDays,
		AllowPath:      c.AllowPath,
	}
}

// Load builds the config from the defaults, the YAML file at path (or
// DefaultFile when path is empty), EnvFile and the environment, each layer
// overriding the previous one.
func Load(path string) (*Config, error) {
	return load(path, EnvFile, os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	// Variables already set in the environment win over the file
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(ErrConfig, err.Error()), "path", envFile)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(ErrConfig, err.Error()), "path", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return zerr.With(zerr.Wrap(ErrConfig, "failed to parse config file: "+err.Error()), "path", path)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	bools := []struct {
		name  string
		value *bool
	}{
		{"CHECK_SUPPORTED", &c.CheckSupported},
		{"CHECK_OUTDATED", &c.CheckOutdated},
		{"CHECK_OWNER", &c.CheckOwner},
		{"ALLOW_PATH", &c.AllowPath},
		{"FAIL_MODE", &c.FailMode},
		{"SEND_STATISTICS", &c.SendStatistics},
	}
	for _, b := range bools {
		raw, ok := lookupEnv(lookup, b.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return envError(b.name, raw, "expected a boolean")
		}
		*b.value = v
	}

	strs := []struct {
		name  string
		value *string
	}{
		{"CONDITION", &c.Condition},
		{"ALLOWED_REFS", &c.AllowedRefs},
		{"FLAKE_LOCK_PATH", &c.LockfilePath},
		{"OUTPUT", &c.Output},
	}
	for _, s := range strs {
		if raw, ok := lookupEnv(lookup, s.name); ok {
			*s.value = raw
		}
	}

	if raw, ok := lookupEnv(lookup, "NIXPKGS_KEYS"); ok {
		c.NixpkgsKeys = SplitKeys(raw)
	}

	if raw, ok := lookupEnv(lookup, "MAX_DAYS"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return envError("MAX_DAYS", raw, "expected a non-negative integer")
		}
		c.MaxDays = v
	}

	return nil
}

// lookupEnv returns the trimmed value of a prefixed variable. Empty values
// count as unset.
func lookupEnv(lookup func(string) (string, bool), name string) (string, bool) {
	raw, ok := lookup(EnvPrefix + name)
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}

func envError(name, value, reason string) error {
	err := zerr.With(zerr.Wrap(ErrConfig, EnvPrefix+name+": "+reason), "variable", EnvPrefix+name)
	return zerr.With(err, "value", value)
}

// SplitKeys splits a comma separated list of input names, dropping blanks.
func SplitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
