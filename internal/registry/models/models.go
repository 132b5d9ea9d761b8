// Package models holds the compliance registry's domain types. The registry
// never sees identity fields, only opaque identifiers, proof fingerprints,
// and the public commitment hash.
package models

import "time"

// Identity is the opaque caller-chosen identifier a compliance record hangs
// off, typically a wallet address. The registry treats it as a key and
// attaches no meaning to its contents.
type Identity string

// Record is one identity's current compliance standing. The registry keeps a
// single record per identity; resubmission overwrites it with a fresh window.
// A record exists for every verified proof, including proofs attesting
// non-compliance: those identities are verified but never payment-eligible.
type Record struct {
	Identity       Identity
	IsCompliant    bool
	CommitmentHash string // decimal field element, the proof's public binding
	KeyVersion     string
	VerifiedAt     time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	ProofCount     int64
}

// ActiveAt reports whether the record confers compliance at the given
// instant. Expiry is evaluated at read time; nothing flips stored state.
func (r *Record) ActiveAt(now time.Time) bool {
	if r == nil || r.RevokedAt != nil || !r.IsCompliant {
		return false
	}
	return now.Before(r.ExpiresAt)
}

// Status is the read-side view of a record.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusNonCompliant Status = "non_compliant"
	StatusExpired      Status = "expired"
	StatusRevoked      Status = "revoked"
	StatusUnverified   Status = "unverified"
)

// ComputeStatus classifies a record at the given instant. A nil record means
// the identity never submitted a proof. Revocation and a proven
// non-compliance fact both dominate expiry.
func (r *Record) ComputeStatus(now time.Time) Status {
	switch {
	case r == nil:
		return StatusUnverified
	case r.RevokedAt != nil:
		return StatusRevoked
	case !r.IsCompliant:
		return StatusNonCompliant
	case !now.Before(r.ExpiresAt):
		return StatusExpired
	default:
		return StatusCompliant
	}
}

// Transaction is an authorized payment between two compliant identities.
// Amounts are minor units of the settlement currency. The ID is a content
// hash of (sender, recipient, amount, timestamp, both commitment hashes), so
// a colliding authorization is the same logical event, not a new one.
type Transaction struct {
	ID           string    `json:"id"`
	Sender       Identity  `json:"sender"`
	Recipient    Identity  `json:"recipient"`
	Amount       int64     `json:"amount"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

// Stats are the registry-wide counters. TotalVerifiedUsers counts distinct
// identities that ever verified, not currently-active ones.
type Stats struct {
	TotalVerifiedUsers int64         `json:"total_verified_users"`
	TotalTransactions  int64         `json:"total_transactions"`
	ValidityPeriod     time.Duration `json:"validity_period"`
}

// Compliance is the per-identity read model returned to callers.
type Compliance struct {
	Identity       Identity   `json:"identity"`
	Status         Status     `json:"status"`
	CommitmentHash string     `json:"commitment_hash,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ProofCount     int64      `json:"proof_count,omitempty"`
}
