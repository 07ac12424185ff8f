package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/container"
	"github.com/roach88/tracemark/internal/manifest"
	"github.com/roach88/tracemark/internal/store"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Action string
	Title  string
	Output string
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <asset>",
		Short: "Chain an edit manifest onto an already-marked asset",
		Long: `Chain an edit manifest onto an already-marked asset.

The asset's current active manifest becomes the ingredient of a new
manifest recording an "opened" action plus the given edit action. The
action type is an open vocabulary; c2pa.* values are conventional but
any non-empty string is accepted.

Example:
  tracemark edit sunrise_tm.jpg --action c2pa.cropped`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "edit action type, e.g. c2pa.cropped (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title for the edit manifest")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output path (defaults to editing in place)")
	cmd.MarkFlagRequired("action")

	return cmd
}

func runEdit(opts *EditOptions, assetPath string, cmd *cobra.Command) error {
	profile, err := LoadProfile(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load profile", err)
	}

	files := container.OSAssetStore{}
	source, err := files.Read(assetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "read asset", err)
	}

	s, err := store.FromAsset(source)
	if err != nil {
		return WrapExitError(ExitCommandError, "no provenance in asset", err)
	}
	active, err := s.GetActive()
	if err != nil {
		return err
	}

	parent, err := manifest.IngredientOf(active)
	if err != nil {
		return err
	}

	m := manifest.New(profile.ClaimGenerator)
	if opts.Title != "" {
		if err := m.SetTitle(opts.Title); err != nil {
			return err
		}
	}
	if err := m.SetFormat(formatForPath(assetPath)); err != nil {
		return err
	}
	if err := m.SetParent(parent); err != nil {
		return err
	}

	actions := assertion.NewLedger(profile.ClaimGenerator)
	if _, err := actions.Record(assertion.ActionOpened,
		assertion.WithParameter("identifier", parent.InstanceID()),
		assertion.WithReason("editing")); err != nil {
		return err
	}
	if _, err := actions.Record(opts.Action,
		assertion.WithParameter("identifier", parent.InstanceID()),
		assertion.WithReason("editing"),
		assertion.WithSourceType(assertion.SourceTypeMinorHumanEdits)); err != nil {
		return err
	}
	actionsAssertion, err := actions.Assertion()
	if err != nil {
		return err
	}
	if err := m.AddAssertion(actionsAssertion); err != nil {
		return err
	}

	km, err := profile.SigningKey()
	if err != nil {
		return WrapExitError(ExitCommandError, "load signing key", err)
	}
	out, err := container.Embed(m, km, source)
	if err != nil {
		return err
	}

	outputPath := opts.Output
	if outputPath == "" {
		outputPath = assetPath
	}
	if err := files.Write(outputPath, out); err != nil {
		return err
	}

	if err := recordEmbedding(cmd.Context(), profile, m, outputPath); err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "manifest %s\n", m.Label())
		fmt.Fprintf(cmd.OutOrStdout(), "parent   %s\n", parent.InstanceID())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
	return nil
}
