package ir

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// shape renders n without comments. Two nodes with the same shape are
// structurally equal.
func shape(n Node) string {
	p := &printer{bare: true}
	switch n := n.(type) {
	case Stmt:
		p.stmt(n, 0)
		return strings.TrimSuffix(p.buf.String(), "\n")
	case Expr:
		return p.expr(n, 0)
	}
	return ""
}

// Equal checks structural equality of two nodes. Identities, lines and
// comments are ignored.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return shape(a) == shape(b)
}

// Fingerprint hashes the structure of a node, consistently with Equal.
func Fingerprint(n Node) uint64 {
	if n == nil {
		return 0
	}
	return xxhash.Sum64String(shape(n))
}
