// Package container binds signed manifests to asset bytes. The
// concrete carrier is a zip archive holding the original content and a
// deterministic-CBOR manifest block, so embedding is fully reversible:
// extracting the output recovers byte-identical manifests. Media-
// native carriers (JPEG APP11, MP4 boxes) would implement the same
// embed/extract contract.
package container

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/roach88/tracemark/internal/canonical"
	"github.com/roach88/tracemark/internal/manifest"
	"github.com/roach88/tracemark/internal/signer"
)

const (
	// blockEntry is the archive entry holding the manifest block.
	blockEntry = "manifests.cbor"
	// payloadEntry is the archive entry holding the original asset
	// bytes.
	payloadEntry = "payload"
)

// Block is the persisted manifest store: every embedded manifest in
// embedding order, plus the label of the most recent one.
type Block struct {
	ActiveLabel string           `json:"active_label"`
	Manifests   []*manifest.Wire `json:"manifests"`
}

// Embed signs the manifest against the asset's content and produces a
// new asset carrying it. When source is already a container, the prior
// block is carried forward and the new manifest appended, extending
// the chain; otherwise source is treated as raw first-generation
// content.
//
// All-or-nothing: any failure returns before output bytes exist, and
// the manifest is only sealed once signing has succeeded.
func Embed(m *manifest.Manifest, km *signer.KeyMaterial, source []byte) ([]byte, error) {
	if m.HasCredentialAssertions() {
		// The downstream container ecosystem has no agreed encoding
		// for credential assertions; refuse loudly instead of
		// emitting an asset other validators choke on.
		return nil, ErrCredentialUnsupported
	}

	block, payload := unwrap(source)
	digest := canonical.ContentDigest(payload)

	if m.Signed() {
		// Pre-sealed manifest: reuse its signature, but only if it
		// was bound to exactly these bytes.
		if m.ContentDigest() != digest {
			return nil, &DigestMismatchError{Expected: m.ContentDigest(), Actual: digest}
		}
	} else {
		claim, err := m.ClaimBytes()
		if err != nil {
			return nil, fmt.Errorf("container: claim serialization: %w", err)
		}
		sig, err := signer.Sign(km, claim, digest)
		if err != nil {
			return nil, err
		}
		if err := m.Seal(sig, digest); err != nil {
			return nil, err
		}
	}

	block.Manifests = append(block.Manifests, m.Encode())
	block.ActiveLabel = m.Label()

	return write(block, payload)
}

// Extract parses a container asset, returning the manifest block and
// the original payload bytes. ErrNoManifestFound when the bytes are
// not a container or carry no manifests.
func Extract(asset []byte) (*Block, []byte, error) {
	block, payload, err := read(asset)
	if err != nil {
		return nil, nil, err
	}
	if len(block.Manifests) == 0 {
		return nil, nil, ErrNoManifestFound
	}
	return block, payload, nil
}

// unwrap peels an existing container, or treats the bytes as raw
// content when they are not one.
func unwrap(source []byte) (*Block, []byte) {
	block, payload, err := read(source)
	if err != nil {
		return &Block{}, source
	}
	return block, payload
}

func read(asset []byte) (*Block, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(asset), int64(len(asset)))
	if err != nil {
		return nil, nil, ErrNoManifestFound
	}

	var blockRaw, payload []byte
	for _, f := range zr.File {
		switch f.Name {
		case blockEntry:
			blockRaw, err = readEntry(f)
		case payloadEntry:
			payload, err = readEntry(f)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("container: read %s: %w", f.Name, err)
		}
	}
	if blockRaw == nil || payload == nil {
		return nil, nil, ErrNoManifestFound
	}

	block, err := unmarshalBlock(blockRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("container: manifest block undecodable: %w", err)
	}
	return block, payload, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func write(block *Block, payload []byte) ([]byte, error) {
	blockRaw, err := marshalBlock(block)
	if err != nil {
		return nil, fmt.Errorf("container: manifest block encoding: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	bw, err := zw.Create(blockEntry)
	if err != nil {
		return nil, fmt.Errorf("container: create %s: %w", blockEntry, err)
	}
	if _, err := bw.Write(blockRaw); err != nil {
		return nil, fmt.Errorf("container: write %s: %w", blockEntry, err)
	}

	pw, err := zw.Create(payloadEntry)
	if err != nil {
		return nil, fmt.Errorf("container: create %s: %w", payloadEntry, err)
	}
	if _, err := pw.Write(payload); err != nil {
		return nil, fmt.Errorf("container: write %s: %w", payloadEntry, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("container: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
