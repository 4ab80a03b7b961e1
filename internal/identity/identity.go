// Package identity implements opx's one deterministic-identity primitive:
// content-addressed, 64-character lowercase hex ids derived from a
// reserved-separator join of an entity's identity-defining fields (spec.md
// §4.1). Every store-backed entity kind gets a dedicated Compute<Kind>ID
// wrapper elsewhere in the codebase that fixes field order and a version
// literal before calling down into Digest here.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ColonSeparator joins most identity inputs.
const ColonSeparator = ':'

// PipeSeparator joins incident identity inputs (service | evidenceId),
// spec.md §3 Incident's identity rule.
const PipeSeparator = '|'

// Digest computes hex(sha256(join(parts, sep))). sep must not appear inside
// any part — that would let two logically different inputs collide, so
// Digest panics rather than silently hashing an ambiguous join. Callers
// control every part (service names, ids, canonicalized metadata), so this
// is an unreachable-state contract violation, not a runtime condition to
// recover from.
func Digest(sep byte, parts ...string) string {
	for i, p := range parts {
		if strings.IndexByte(p, sep) >= 0 {
			panic(fmt.Sprintf("identity: part %d contains reserved separator %q: %q", i, sep, p))
		}
	}
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{sep})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DigestColon is Digest with the reserved ':' separator, used by every
// identity rule except the incident's.
func DigestColon(parts ...string) string {
	return Digest(ColonSeparator, parts...)
}

// DigestPipe is Digest with the reserved '|' separator, used only for
// incident identity (service | evidenceId).
func DigestPipe(parts ...string) string {
	return Digest(PipeSeparator, parts...)
}

// Valid64Hex reports whether s looks like one of opx's content-addressed
// ids: exactly 64 lowercase hex characters.
func Valid64Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
