package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Digest computes the hex SHA-256 of the exact bytes to be stored. This is
// the authoritative content digest; the backend's ETag is retained only as
// a transport integrity tag.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestReader consumes the reader and returns its hex SHA-256 and length.
func DigestReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
