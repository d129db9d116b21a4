package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	allowedrefs "notashelf.dev/flakecheck/internal/allowedrefs"
)

var ErrRefsOutdated = zerr.New("bundled allowed refs are out of date")

var (
	refsURL      string
	refsCheck    bool
	refsWrite    string
	refsStatuses bool
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Show, check or refresh the list of supported Nixpkgs branches",
	Example: `  flakecheck refs
  flakecheck refs --check
  flakecheck refs --statuses
  flakecheck refs --write=internal/allowedrefs/allowed-refs.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefs(cmd.Context(), cmd.OutOrStdout(), nil, newLogger(cmd))
	},
}

func init() {
	refsCmd.Flags().StringVar(&refsURL, "url", allowedrefs.URL, "Prometheus query listing the Nixpkgs channels")
	refsCmd.Flags().BoolVar(&refsCheck, "check", false, "fail if the bundled list differs from the current one")
	refsCmd.Flags().StringVar(&refsWrite, "write", "", "write the current list to this file")
	refsCmd.Flags().BoolVar(&refsStatuses, "statuses", false, "print the status of every Nixpkgs channel")

	rootCmd.AddCommand(refsCmd)
}

func runRefs(ctx context.Context, w io.Writer, client *http.Client, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Without flags only the bundled list is shown, no network needed
	if !refsCheck && refsWrite == "" && !refsStatuses {
		fmt.Fprintln(w, strings.Join(allowedrefs.Default(), "\n"))
		return nil
	}

	if refsStatuses {
		log.Debug("fetching channel statuses", "url", refsURL)
		channels, err := allowedrefs.FetchChannels(ctx, client, refsURL)
		if err != nil {
			return err
		}
		statuses := allowedrefs.Statuses(channels)
		for _, name := range slices.Sorted(maps.Keys(statuses)) {
			fmt.Fprintf(w, "%s: %s\n", name, statuses[name])
		}
	}

	if refsWrite != "" {
		log.Debug("fetching allowed refs", "url", refsURL)
		current, err := allowedrefs.Fetch(ctx, client, refsURL)
		if err != nil {
			return err
		}
		if err := allowedrefs.Write(refsWrite, current); err != nil {
			return err
		}
		log.Info("wrote allowed refs", "path", refsWrite, "count", len(current))
	}

	if refsCheck {
		bundled := allowedrefs.Default()
		upToDate, err := allowedrefs.Check(ctx, client, refsURL, bundled)
		if err != nil {
			return err
		}
		if !upToDate {
			err := zerr.With(zerr.Wrap(ErrRefsOutdated, "run `flakecheck refs --write` to refresh them"), "bundled", bundled)
			return zerr.With(err, "url", refsURL)
		}
		fmt.Fprintln(w, "bundled allowed refs are up to date")
	}
	return nil
}
