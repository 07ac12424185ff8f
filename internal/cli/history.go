package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/container"
	"github.com/roach88/tracemark/internal/ledger"
	"github.com/roach88/tracemark/internal/manifest"
	"github.com/roach88/tracemark/internal/store"
)

// historyLine is one chain hop in the JSON rendering of history.
type historyLine struct {
	Label          string `json:"label"`
	InstanceID     string `json:"instance_id"`
	Title          string `json:"title,omitempty"`
	ClaimGenerator string `json:"claim_generator"`
	Actions        int    `json:"actions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <asset>",
		Short: "Print the provenance chain of an asset, newest first",
		Long: `Print the provenance chain of an asset, newest first.

Walks the parent links from the active manifest back to the original
creation. When the profile configures a ledger, embeddings recorded
for the asset are listed as well.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runHistory(opts *RootOptions, assetPath string, cmd *cobra.Command) error {
	source, err := container.OSAssetStore{}.Read(assetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "read asset", err)
	}

	s, err := store.FromAsset(source)
	if err != nil {
		return WrapExitError(ExitCommandError, "open manifest store", err)
	}

	chain, chainErr := s.Chain()
	lines := make([]historyLine, 0, len(chain))
	for _, m := range chain {
		lines = append(lines, historyLine{
			Label:          m.Label(),
			InstanceID:     m.InstanceID(),
			Title:          m.Title(),
			ClaimGenerator: m.ClaimGenerator(),
			Actions:        countActions(m),
		})
	}

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(lines); err != nil {
			return err
		}
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "chain of %d manifest(s), newest first:\n", len(lines))
		for i, line := range lines {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, line.Label)
			if line.Title != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "   title: %s\n", line.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "   generator: %s, actions: %d\n", line.ClaimGenerator, line.Actions)
		}
	}

	if opts.Format != "json" {
		if err := printLedgerHistory(opts, assetPath, cmd); err != nil {
			return err
		}
	}

	if chainErr != nil {
		return WrapExitError(ExitFailure, "chain is corrupted", chainErr)
	}
	return nil
}

func countActions(m *manifest.Manifest) int {
	a := m.Assertion(assertion.LabelActions)
	if a == nil {
		return 0
	}
	list, ok := a.Data()["actions"].([]any)
	if !ok {
		return 0
	}
	return len(list)
}

// printLedgerHistory lists recorded embeddings for the asset when the
// profile configures a ledger. Both the profile and the ledger are
// optional here.
func printLedgerHistory(opts *RootOptions, assetPath string, cmd *cobra.Command) error {
	profile, err := LoadProfile(opts.Profile)
	if err != nil || profile.Ledger == "" {
		return nil
	}
	l, err := ledger.Open(profile.Ledger)
	if err != nil {
		return WrapExitError(ExitCommandError, "open ledger", err)
	}
	defer l.Close()

	entries, err := l.ByAsset(cmd.Context(), assetPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ledger entries for %s:\n", assetPath)
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s  %s\n",
			e.RecordedAt.Format("2006-01-02 15:04:05"), e.ManifestLabel, e.Algorithm)
	}
	return nil
}
