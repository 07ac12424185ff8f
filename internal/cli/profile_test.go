package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tracemark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, `
claim_generator: studio-tool/1.2
author:
  name: Mike Cvet
  identifier: mikecvet
certificate: signer.pub
key: signer.pem
ledger: audit.db
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "studio-tool/1.2", p.ClaimGenerator)
	assert.Equal(t, "Mike Cvet", p.Author.Name)
	assert.Equal(t, "mikecvet", p.Author.Identifier)
	assert.Equal(t, "ps256", p.Algorithm, "algorithm defaults to ps256")

	// Relative paths resolve against the profile's directory.
	assert.Equal(t, filepath.Join(dir, "signer.pub"), p.Certificate)
	assert.Equal(t, filepath.Join(dir, "signer.pem"), p.Key)
	assert.Equal(t, filepath.Join(dir, "audit.db"), p.Ledger)
	assert.Empty(t, p.TrustRoots)
}

func TestLoadProfileRejectsUnknownFields(t *testing.T) {
	path := writeProfile(t, t.TempDir(), `
claim_generator: x/1
authr:
  name: typo
certificate: c.pem
key: k.pem
`)

	_, err := LoadProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing claim generator",
			content: "author: {name: a, identifier: b}\ncertificate: c\nkey: k\n",
			want:    "claim_generator",
		},
		{
			name:    "missing author name",
			content: "claim_generator: x/1\nauthor: {identifier: b}\ncertificate: c\nkey: k\n",
			want:    "author.name",
		},
		{
			name:    "missing identifier",
			content: "claim_generator: x/1\nauthor: {name: a}\ncertificate: c\nkey: k\n",
			want:    "author.identifier",
		},
		{
			name:    "missing key",
			content: "claim_generator: x/1\nauthor: {name: a, identifier: b}\ncertificate: c\n",
			want:    "key",
		},
		{
			name:    "bad algorithm",
			content: "claim_generator: x/1\nauthor: {name: a, identifier: b}\ncertificate: c\nkey: k\nalgorithm: rsa512\n",
			want:    "rsa512",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProfile(t, t.TempDir(), tt.content)
			_, err := LoadProfile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read profile file")
}
