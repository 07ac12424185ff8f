package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
)

var (
	rsaOnce sync.Once
	rsaPriv *rsa.PrivateKey
	rsaErr  error
)

// rsaKey returns a process-wide 2048-bit RSA key. Generation is the
// slowest part of the crypto fixtures, so tests share one key.
func rsaKey() (*rsa.PrivateKey, error) {
	rsaOnce.Do(func() {
		rsaPriv, rsaErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	return rsaPriv, rsaErr
}

// JPEGFixture returns deterministic pseudo-JPEG bytes of the given
// size: a real SOI/APP0 header, filler, and an EOI trailer. Good
// enough for content-digest and embedding tests, which never parse
// the image.
func JPEGFixture(size int) []byte {
	header := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	trailer := []byte{0xFF, 0xD9}
	if size < len(header)+len(trailer) {
		size = len(header) + len(trailer)
	}

	out := make([]byte, size)
	copy(out, header)
	// deterministic filler so fixtures are stable across runs
	state := uint32(0x9E3779B9)
	for i := len(header); i < size-len(trailer); i++ {
		state = state*1664525 + 1013904223
		out[i] = byte(state >> 24)
	}
	copy(out[size-len(trailer):], trailer)
	return out
}
