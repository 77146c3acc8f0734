package detection

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is a deterministic identifier for an (agent, code fragment)
// pair, used as the accuracy cache key.
type Fingerprint string

// NewFingerprint derives the cache key for a fragment matched by an agent.
// The fragment is whitespace-normalized first so that reformatting the same
// code does not produce a new key.
func NewFingerprint(agentID, fragment string) Fingerprint {
	sum := sha256.Sum256([]byte(agentID + "\x00" + NormalizeFragment(fragment)))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// NormalizeFragment collapses runs of whitespace into single spaces and trims
// the result.
func NormalizeFragment(fragment string) string {
	return strings.Join(strings.Fields(fragment), " ")
}
