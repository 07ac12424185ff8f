package container

import (
	"os"
	"path/filepath"
)

// AssetStore abstracts where asset bytes live. The core only ever
// reads whole assets and writes whole outputs.
type AssetStore interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
}

// OSAssetStore reads and writes assets on the local filesystem.
type OSAssetStore struct{}

// Read returns the asset bytes at path.
func (OSAssetStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Write stores the asset atomically: a temp file in the target
// directory followed by rename, so a failed write never leaves a
// half-embedded asset behind.
func (OSAssetStore) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tracemark-*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
