// Package allowedrefs provides the list of Nixpkgs branches that are
// considered supported.
package allowedrefs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"go.trai.ch/zerr"
)

// URL is the Prometheus query reporting the revision of every Nixpkgs
// channel.
const URL = "https://prometheus.nixos.org/api/v1/query?query=channel_revision"

var (
	ErrFetch  = zerr.New("failed to fetch allowed refs")
	ErrDecode = zerr.New("failed to decode allowed refs")
)

//go:embed allowed-refs.json
var bundled []byte

// Client is the HTTP client used when none is given.
var Client = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	},
}

// Default returns the bundled list of allowed refs.
func Default() []string {
	refs, err := decodeList(bundled)
	if err != nil {
		// The bundled file is checked by the tests.
		panic(err)
	}
	return refs
}

// LoadFile reads a JSON array of refs from path.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrDecode, err.Error()), "path", path)
	}
	refs, err := decodeList(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return refs, nil
}

func decodeList(data []byte) ([]string, error) {
	var refs []string
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, zerr.Wrap(ErrDecode, err.Error())
	}
	return refs, nil
}

// Prometheus query response
type response struct {
	Data struct {
		Result []struct {
			Metric Channel `json:"metric"`
		} `json:"result"`
	} `json:"data"`
}

// Channel is one Nixpkgs channel as reported by the monitoring endpoint.
type Channel struct {
	Name     string `json:"channel"`
	Current  string `json:"current"`
	Status   string `json:"status"`
	Revision string `json:"revision"`
}

// FetchChannels queries url for every known channel.
func FetchChannels(ctx context.Context, client *http.Client, url string) ([]Channel, error) {
	if client == nil {
		client = Client
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrFetch, err.Error()), "url", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrFetch, err.Error()), "url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		err := zerr.Wrap(ErrFetch, fmt.Sprintf("unexpected status %s", resp.Status))
		return nil, zerr.With(zerr.With(err, "url", url), "status", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, zerr.With(zerr.Wrap(ErrDecode, err.Error()), "url", url)
	}

	channels := make([]Channel, 0, len(body.Data.Result))
	for _, result := range body.Data.Result {
		channels = append(channels, result.Metric)
	}
	return channels, nil
}

// Fetch returns the sorted names of the channels url reports as current.
func Fetch(ctx context.Context, client *http.Client, url string) ([]string, error) {
	channels, err := FetchChannels(ctx, client, url)
	if err != nil {
		return nil, err
	}

	refs := []string{}
	for _, channel := range channels {
		if channel.Current == "1" {
			refs = append(refs, channel.Name)
		}
	}
	slices.Sort(refs)
	return refs, nil
}

// Statuses maps every channel name to its status (rolling, stable, ...).
func Statuses(channels []Channel) map[string]string {
	statuses := make(map[string]string, len(channels))
	for _, channel := range channels {
		statuses[channel.Name] = channel.Status
	}
	return statuses
}

// Check reports whether refs matches the current list at url.
func Check(ctx context.Context, client *http.Client, url string, refs []string) (bool, error) {
	current, err := Fetch(ctx, client, url)
	if err != nil {
		return false, err
	}
	return slices.Equal(current, refs), nil
}

// Write stores refs at path in the bundled file format.
func Write(path string, refs []string) error {
	data, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode allowed refs")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write allowed refs"), "path", path)
	}
	return nil
}
