package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/tracemark/internal/container"
	"github.com/roach88/tracemark/internal/signer"
	"github.com/roach88/tracemark/internal/store"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <asset>",
		Short: "Verify an asset's provenance and print the report",
		Long: `Verify an asset's provenance and print the report.

Every manifest is checked: signature, content binding, assertion
well-formedness and chain integrity. Findings are accumulated and all
of them are printed; the exit code is non-zero when any finding has
error severity. When the profile configures trust_roots, signer
certificates must additionally chain to one of those anchors.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, assetPath string, cmd *cobra.Command) error {
	source, err := container.OSAssetStore{}.Read(assetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "read asset", err)
	}

	storeOpts, err := inspectStoreOptions(opts)
	if err != nil {
		return err
	}

	s, err := store.FromAsset(source, storeOpts...)
	if err != nil {
		if errors.Is(err, container.ErrNoManifestFound) {
			return WrapExitError(ExitFailure, "no provenance in asset", err)
		}
		return WrapExitError(ExitCommandError, "open manifest store", err)
	}

	if err := s.Render(cmd.OutOrStdout(), opts.Format); err != nil {
		return err
	}
	if !s.Valid() {
		return NewExitError(ExitFailure, "verification reported errors")
	}
	return nil
}

// inspectStoreOptions wires the profile's trust anchors into
// verification. The profile is optional for inspect: a missing file
// simply means no anchors.
func inspectStoreOptions(opts *RootOptions) ([]store.Option, error) {
	profile, err := LoadProfile(opts.Profile)
	if err != nil {
		return nil, nil
	}
	if profile.TrustRoots == "" {
		return nil, nil
	}
	anchors, err := store.WithTrustAnchors(signer.FileTrustAnchors{Path: profile.TrustRoots})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load trust roots", err)
	}
	return []store.Option{anchors}, nil
}
