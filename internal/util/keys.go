package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the components of an external storage key.
const Separator = "/"

// Namespaced returns prefix/revision/part0/part1/... for the external backend.
func Namespaced(prefix, revision string, parts []string) string {
	var b strings.Builder
	n := len(prefix) + len(revision) + 2
	for _, p := range parts {
		n += len(p) + 1
	}
	b.Grow(n)

	b.WriteString(prefix)
	b.WriteString(Separator)
	b.WriteString(revision)
	for _, p := range parts {
		b.WriteString(Separator)
		b.WriteString(p)
	}
	return b.String()
}

// ShortHash returns the first 16 hex chars of sha256(s).
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
