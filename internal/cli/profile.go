package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tracemark/internal/signer"
)

// Profile configures the signing identity the CLI works as. It is a
// small YAML file so a user can keep one per device or persona.
type Profile struct {
	// ClaimGenerator names the producing software, e.g. "studio-tool/1.2".
	ClaimGenerator string `yaml:"claim_generator"`

	// Author is attached to created manifests as a CreativeWork assertion.
	Author ProfileAuthor `yaml:"author"`

	// Certificate and Key are PEM file paths for the signing identity.
	Certificate string `yaml:"certificate"`
	Key         string `yaml:"key"`

	// Algorithm selects the signature scheme: ps256, es256 or ed25519.
	Algorithm string `yaml:"algorithm,omitempty"`

	// TrustRoots optionally points at a PEM bundle of trust anchors;
	// when set, inspect additionally requires signer certificates to
	// chain to one of them.
	TrustRoots string `yaml:"trust_roots,omitempty"`

	// Ledger optionally points at a SQLite file recording every
	// embedding this profile performs.
	Ledger string `yaml:"ledger,omitempty"`
}

// ProfileAuthor identifies the human behind the profile.
type ProfileAuthor struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
}

// LoadProfile reads and parses a profile YAML file. Returns an error
// if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields. Relative cert/key/roots
// paths resolve against the profile's own directory.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var p Profile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if p.Algorithm == "" {
		p.Algorithm = string(signer.PS256)
	}

	base := filepath.Dir(path)
	p.Certificate = resolve(base, p.Certificate)
	p.Key = resolve(base, p.Key)
	p.TrustRoots = resolve(base, p.TrustRoots)
	p.Ledger = resolve(base, p.Ledger)

	if err := validateProfile(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &p, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func validateProfile(p *Profile) error {
	if p.ClaimGenerator == "" {
		return fmt.Errorf("claim_generator is required")
	}
	if p.Author.Name == "" {
		return fmt.Errorf("author.name is required")
	}
	if p.Author.Identifier == "" {
		return fmt.Errorf("author.identifier is required")
	}
	if p.Certificate == "" {
		return fmt.Errorf("certificate is required")
	}
	if p.Key == "" {
		return fmt.Errorf("key is required")
	}
	if _, err := signer.ParseAlgorithm(p.Algorithm); err != nil {
		return err
	}
	return nil
}

// SigningKey loads the profile's key material from disk.
func (p *Profile) SigningKey() (*signer.KeyMaterial, error) {
	alg, err := signer.ParseAlgorithm(p.Algorithm)
	if err != nil {
		return nil, err
	}
	return signer.FileKeyProvider{}.LoadSigningKey(p.Certificate, p.Key, alg)
}
