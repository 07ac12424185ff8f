package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/container"
	"github.com/roach88/tracemark/internal/ledger"
	"github.com/roach88/tracemark/internal/manifest"
	"github.com/roach88/tracemark/internal/schema"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Title        string
	ExifPath     string
	AssertPath   string
	AssertLabel  string
	AssertSchema string
	Output       string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <asset>",
		Short: "Sign and embed a first-generation manifest into an asset",
		Long: `Sign and embed a first-generation manifest into an asset.

The manifest carries the profile's author as a CreativeWork assertion
plus a "created" action, and is signed with the profile's key. The
result is written next to the input with a _tm suffix unless --output
is given.

Example:
  tracemark create sunrise.jpg --exif sunrise_exif.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "manifest title (defaults to the asset file name)")
	cmd.Flags().StringVar(&opts.ExifPath, "exif", "", "JSON file with EXIF metadata to attach")
	cmd.Flags().StringVar(&opts.AssertPath, "assert", "", "JSON file with a custom assertion payload")
	cmd.Flags().StringVar(&opts.AssertLabel, "assert-label", "", "label for the custom assertion (required with --assert)")
	cmd.Flags().StringVar(&opts.AssertSchema, "assert-schema", "", "CUE schema file validating the custom assertion")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output path (defaults to <name>_tm.<ext>)")

	return cmd
}

func runCreate(opts *CreateOptions, assetPath string, cmd *cobra.Command) error {
	profile, err := LoadProfile(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load profile", err)
	}
	if opts.AssertPath != "" && opts.AssertLabel == "" {
		return NewExitError(ExitCommandError, "--assert requires --assert-label")
	}

	files := container.OSAssetStore{}
	source, err := files.Read(assetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "read asset", err)
	}

	title := opts.Title
	if title == "" {
		title = filepath.Base(assetPath)
	}

	m := manifest.New(profile.ClaimGenerator)
	if err := m.SetTitle(title); err != nil {
		return err
	}
	if err := m.SetFormat(formatForPath(assetPath)); err != nil {
		return err
	}

	author, err := assertion.NewCreativeWork(assertion.Person{
		Name:       profile.Author.Name,
		Identifier: profile.Author.Identifier,
	})
	if err != nil {
		return err
	}
	if err := m.AddAssertion(author); err != nil {
		return err
	}

	actions := assertion.NewLedger(profile.ClaimGenerator)
	if _, err := actions.Record(assertion.ActionCreated,
		assertion.WithSourceType(assertion.SourceTypeDigitalCapture)); err != nil {
		return err
	}
	actionsAssertion, err := actions.Assertion()
	if err != nil {
		return err
	}
	if err := m.AddAssertion(actionsAssertion); err != nil {
		return err
	}

	if opts.ExifPath != "" {
		raw, err := os.ReadFile(opts.ExifPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "read exif file", err)
		}
		exif, err := assertion.NewExif(raw)
		if err != nil {
			return err
		}
		if err := m.AddAssertion(exif); err != nil {
			return err
		}
	}

	if opts.AssertPath != "" {
		custom, err := loadCustomAssertion(opts.AssertLabel, opts.AssertPath, opts.AssertSchema)
		if err != nil {
			return err
		}
		if err := m.AddAssertion(custom); err != nil {
			return err
		}
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
		outputPath = derivedOutputPath(assetPath)
	}
	if err := files.Write(outputPath, out); err != nil {
		return err
	}

	if err := recordEmbedding(cmd.Context(), profile, m, outputPath); err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "manifest %s\n", m.Label())
		fmt.Fprintf(cmd.OutOrStdout(), "instance %s\n", m.InstanceID())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
	return nil
}

// loadCustomAssertion reads a JSON payload file and wraps it as a
// custom assertion, optionally validated against a CUE schema.
func loadCustomAssertion(label, payloadPath, schemaPath string) (*assertion.Assertion, error) {
	raw, err := os.ReadFile(payloadPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read assertion file", err)
	}

	// json.Number keeps large integers exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, WrapExitError(ExitCommandError, "parse assertion file", err)
	}

	var customOpts []assertion.CustomOption
	if schemaPath != "" {
		src, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "read schema file", err)
		}
		s, err := schema.Compile(string(src))
		if err != nil {
			return nil, err
		}
		customOpts = append(customOpts, assertion.WithSchema(s))
	}

	return assertion.NewCustom(label, payload, customOpts...)
}

// recordEmbedding appends the embedding to the profile's ledger, when
// one is configured.
func recordEmbedding(ctx context.Context, profile *Profile, m *manifest.Manifest, outputPath string) error {
	if profile.Ledger == "" {
		return nil
	}
	l, err := ledger.Open(profile.Ledger)
	if err != nil {
		return WrapExitError(ExitCommandError, "open ledger", err)
	}
	defer l.Close()

	entry := ledger.Entry{
		ManifestLabel:  m.Label(),
		InstanceID:     m.InstanceID(),
		AssetPath:      outputPath,
		Title:          m.Title(),
		Format:         m.Format(),
		ClaimGenerator: m.ClaimGenerator(),
		ContentDigest:  m.ContentDigest(),
	}
	if sig := m.Signature(); sig != nil {
		entry.Algorithm = string(sig.Algorithm)
	}
	if p := m.Parent(); p != nil {
		entry.ParentInstanceID = p.InstanceID()
	}
	if _, err := l.Record(ctx, entry); err != nil {
		return err
	}
	return nil
}

// derivedOutputPath inserts a _tm marker before the file extension.
func derivedOutputPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + "_tm" + ext
}

// formatForPath guesses a MIME type from the file extension.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
