// Package telemetry builds and sends the anonymous usage report.
package telemetry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.trai.ch/zerr"
	"notashelf.dev/flakecheck/internal/policy"
	util "notashelf.dev/flakecheck/internal/util"
)

// Endpoint receives telemetry reports.
const Endpoint = "https://install.determinate.systems/flake-checker/telemetry"

// Timeout bounds a single report upload.
const Timeout = 3 * time.Second

var ErrSend = zerr.New("failed to send telemetry")

// Variables hashed into the distinct ID, in order.
var idVars = []string{
	"GITHUB_REPOSITORY",
	"GITHUB_REPOSITORY_ID",
	"GITHUB_REPOSITORY_OWNER",
	"GITHUB_REPOSITORY_OWNER_ID",
}

// Report counts the issues found in a run.
type Report struct {
	DistinctID string `json:"distinct_id"`

	Version string `json:"version"`
	IsCI    bool   `json:"is_ci"`

	Disallowed  int `json:"disallowed"`
	Outdated    int `json:"outdated"`
	NonUpstream int `json:"non_upstream"`
}

// NewReport builds a report for issues. It fails when the repository cannot
// be identified from the environment.
func NewReport(issues []policy.Issue, version string, getenv func(string) string) (Report, error) {
	id, err := distinctID(getenv)
	if err != nil {
		return Report{}, err
	}

	return Report{
		DistinctID:  id,
		Version:     version,
		IsCI:        util.IsCI(getenv),
		Disallowed:  policy.Count(issues, policy.KindDisallowed),
		Outdated:    policy.Count(issues, policy.KindOutdated),
		NonUpstream: policy.Count(issues, policy.KindNonUpstream),
	}, nil
}

// distinctID is an opaque hash of the GitHub repository identity.
func distinctID(getenv func(string) string) (string, error) {
	h := sha256.New()
	for _, name := range idVars {
		v := getenv(name)
		if v == "" {
			return "", zerr.With(zerr.Wrap(ErrSend, name+" is not set"), "variable", name)
		}
		h.Write([]byte(v))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Send posts the report to endpoint.
func Send(ctx context.Context, client *http.Client, endpoint string, report Report) error {
	if client == nil {
		client = &http.Client{Timeout: Timeout}
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return zerr.Wrap(ErrSend, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return zerr.With(zerr.Wrap(ErrSend, err.Error()), "endpoint", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return zerr.With(zerr.Wrap(ErrSend, err.Error()), "endpoint", endpoint)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		err := zerr.Wrap(ErrSend, fmt.Sprintf("unexpected status %s", resp.Status))
		return zerr.With(zerr.With(err, "endpoint", endpoint), "status", resp.StatusCode)
	}
	return nil
}
