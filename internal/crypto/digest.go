package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DigestHex returns the SHA-256 digest as lowercase hex.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestWithPrefix returns the SHA-256 digest with the "sha256:" prefix.
func DigestWithPrefix(data []byte) string {
	return "sha256:" + DigestHex(data)
}

// DigestText digests the NFC form of s, so canonically equal strings share a digest.
func DigestText(s string) string {
	return DigestWithPrefix([]byte(norm.NFC.String(s)))
}
