package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultNamespace is the key prefix used when none is configured.
const DefaultNamespace = "cascade:prediction"

// CacheKey is the opaque identifier of a cached prediction.
// Format: <namespace>:<sha256 hex>
//
// Example:
//
//	cascade:prediction:2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae
type CacheKey string

// String returns the key as stored in both tiers.
func (k CacheKey) String() string {
	return string(k)
}

// KeyGenerator maps request payloads to namespaced cache keys.
// The zero value uses DefaultNamespace.
type KeyGenerator struct {
	// Namespace separates logical caches sharing one physical store.
	Namespace string
}

// NewKeyGenerator creates a key generator for the given namespace.
// Surrounding colons are trimmed; an empty namespace falls back to DefaultNamespace.
func NewKeyGenerator(namespace string) KeyGenerator {
	return KeyGenerator{Namespace: strings.Trim(namespace, ":")}
}

// Key hashes the input with SHA-256 and prefixes the namespace.
func (g KeyGenerator) Key(input []byte) CacheKey {
	sum := sha256.Sum256(input)
	return CacheKey(g.namespace() + ":" + hex.EncodeToString(sum[:]))
}

// hashHexLen is the length of the hex digest suffix of every key.
const hashHexLen = sha256.Size * 2

// Pattern returns the Redis glob matching exactly the keys Key produces for
// this namespace. Other keys under the namespace prefix (nested namespaces,
// quota state) do not match. Glob metacharacters in the namespace are escaped.
func (g KeyGenerator) Pattern() string {
	return escapeGlob(g.namespace()) + ":" + strings.Repeat("[0-9a-f]", hashHexLen)
}

func (g KeyGenerator) namespace() string {
	if g.Namespace == "" {
		return DefaultNamespace
	}
	return g.Namespace
}

// escapeGlob quotes the characters Redis treats specially in MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
