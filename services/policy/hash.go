package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"innkeeper/models"
)

// PolicyHash computes the SHA-256 hex digest of the cancellation policy
// content (tiers only, never the hash field itself). Stored on the folio
// snapshot so refund math is provably reproducible from history alone.
func PolicyHash(cp models.CancellationPolicy) (string, error) {
	b, err := json.Marshal(cp.Tiers)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyPolicyHash recomputes the hash and compares it against the recorded
// one. A folio without a recorded hash passes.
func VerifyPolicyHash(cp models.CancellationPolicy) error {
	if cp.PolicyHash == "" {
		return nil
	}
	computed, err := PolicyHash(cp)
	if err != nil {
		return err
	}
	if computed != cp.PolicyHash {
		return NewMalformedPolicyError("cancellation policy content does not match its recorded hash")
	}
	return nil
}
