package utils

import (
	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash/v2"
)

// stringHasher hashes strings with xxhash.
type stringHasher struct{}

func (stringHasher) Hash(s string) uint32 { return HashString(s) }

func (stringHasher) Equal(a, b string) bool { return a == b }

// StringHasher is the hasher used for variable names.
var StringHasher immutable.Hasher[string] = stringHasher{}

// HashString folds the 64-bit xxhash of s to 32 bits.
func HashString(s string) uint32 {
	h := xxhash.Sum64String(s)
	return uint32(h ^ (h >> 32))
}
