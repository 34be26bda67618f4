// Package keys derives evidence storage addresses and content digests.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	// EvidencePrefix roots all live evidence keys, enabling per-case listing.
	EvidencePrefix = "evidence"
	// ArchivePrefix roots long-retention backup copies.
	ArchivePrefix = "archive"
)

// DeriveKey builds the storage address for a new artifact:
//
//	evidence/{caseId}/{unixNano}-{hash12}-{rand8}/{filename}
//
// The structured prefix supports prefix listing per case; the hashed middle
// segment plus random suffix keeps individual keys unguessable from the case
// id alone. Pure apart from the clock and the CSPRNG.
func DeriveKey(caseID, filename, uploaderID string) string {
	now := time.Now().UTC()
	ts := now.UnixNano()

	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", caseID, filename, uploaderID, ts))
	hash := hex.EncodeToString(sum[:])[:12]

	return path.Join(EvidencePrefix, sanitizeSegment(caseID),
		fmt.Sprintf("%d-%s-%s", ts, hash, randomSuffix()), sanitizeFilename(filename))
}

// ArchiveKey maps a live key to its backup address.
func ArchiveKey(key string) string {
	return path.Join(ArchivePrefix, key)
}

// CasePrefix returns the listing prefix for one case's live evidence.
func CasePrefix(caseID string) string {
	return EvidencePrefix + "/" + sanitizeSegment(caseID) + "/"
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read failing means the process is in a bad state; fall back
		// to the clock so uploads keep working.
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(buf)
}

func sanitizeSegment(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}

func sanitizeFilename(raw string) string {
	base := path.Base(strings.ReplaceAll(raw, "\\", "/"))
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	out := sanitizeSegment(name)
	if ext != "" {
		out += "." + sanitizeSegment(strings.TrimPrefix(ext, "."))
	}
	return out
}
