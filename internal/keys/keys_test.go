package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyStructure(t *testing.T) {
	key := DeriveKey("CASE-2025-001", "photo.jpg", "officer-7")

	require.True(t, strings.HasPrefix(key, "evidence/CASE-2025-001/"), key)
	require.True(t, strings.HasSuffix(key, "/photo.jpg"), key)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	middle := strings.Split(parts[2], "-")
	require.Len(t, middle, 3)
	assert.Len(t, middle[1], 12)
	assert.Len(t, middle[2], 8)
}

func TestDeriveKeyUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key := DeriveKey("C1", "photo.jpg", "u1")
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestDeriveKeySanitises(t *testing.T) {
	key := DeriveKey("case/../1", "../../etc/passwd", "u1")
	assert.NotContains(t, key, "..")
	assert.True(t, strings.HasPrefix(key, "evidence/"))
	assert.True(t, strings.HasSuffix(key, "/passwd"), key)
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "archive/evidence/C1/x/f.jpg", ArchiveKey("evidence/C1/x/f.jpg"))
}

func TestCasePrefix(t *testing.T) {
	assert.Equal(t, "evidence/C1/", CasePrefix("C1"))
}

func TestDigestStable(t *testing.T) {
	data := []byte("exhibit A")
	require.Equal(t, Digest(data), Digest(data))
	require.Len(t, Digest(data), 64)
	assert.NotEqual(t, Digest(data), Digest([]byte("exhibit B")))
}

func TestDigestReaderMatchesDigest(t *testing.T) {
	data := []byte("body camera footage")
	d, n, err := DigestReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, Digest(data), d)
}
