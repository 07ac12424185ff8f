package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for tamper-evident digests. The version suffix
// enables future algorithm migration without ambiguity.
const (
	DomainClaim   = "tracemark/claim/v1"
	DomainContent = "tracemark/content/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ClaimDigest digests a manifest's canonical claim bytes. This is the
// value a detached signature covers alongside the content digest.
func ClaimDigest(claimBytes []byte) string {
	return hashWithDomain(DomainClaim, claimBytes)
}

// ContentDigest digests raw asset content. A manifest stores this at
// signing time; the reader recomputes it to detect tampering.
func ContentDigest(content []byte) string {
	return hashWithDomain(DomainContent, content)
}
