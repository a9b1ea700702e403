package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// NormalizeQuery canonicalizes a free-text query into a cache key. Queries
// differing only by case map to the same key.
func NormalizeQuery(query string) string {
	sum := md5.Sum([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:])
}
