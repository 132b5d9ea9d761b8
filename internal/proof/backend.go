// Package proof defines the proving-system contract the registry and the
// client orchestrator depend on, plus two implementations: a Groth16 backend
// over BN254 (gnark) and a non-circuit simulated backend for tests and
// environments without a trusted setup.
package proof

import (
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkcomply/internal/circuit"
	"zkcomply/internal/sentinel"
)

// Backend is polymorphic over {produce, verify}. Implementations must be
// safe for concurrent use: Produce is CPU-bound and may run in parallel for
// distinct identities, Verify is cheap and called inline.
type Backend interface {
	// Produce evaluates the non-membership circuit over the inputs and
	// returns a proof with its two public signals. It fails if witness
	// computation is infeasible (out-of-range inputs, capacity mismatch) or
	// the proving key is missing. It honors ctx cancellation: an abandoned
	// call leaves no shared state behind.
	Produce(ctx context.Context, in circuit.Inputs) (*Proof, PublicSignals, error)

	// Verify is a pure, deterministic function of the proof, the signals,
	// and the backend's verification key. Structurally malformed proofs are
	// rejected before any cryptographic check; Verify returns false rather
	// than raising so registry control flow stays simple.
	Verify(p *Proof, signals PublicSignals) bool

	// Key identifies the verification key the backend holds. The sanctioned
	// set capacity is baked into it: a larger list needs a new key.
	Key() KeyInfo
}

// KeyInfo is the explicit versioned key identity.
type KeyInfo struct {
	Version  string
	Capacity int
}

// Proof is the opaque proof payload. It is meaningless without the exact
// public-signal pair it was generated against.
type Proof struct {
	Scheme     string `json:"scheme"`
	KeyVersion string `json:"key_version"`
	Payload    []byte `json:"payload"`
}

// PublicSignals are the exactly-two public outputs of the circuit.
type PublicSignals struct {
	IsCompliant    bool
	CommitmentHash *big.Int
}

// Slice renders the wire form: [isCompliant ∈ {"0","1"}, commitmentHash].
func (s PublicSignals) Slice() []string {
	bit := "0"
	if s.IsCompliant {
		bit = "1"
	}
	return []string{bit, s.CommitmentHash.String()}
}

// ParseSignals decodes and structurally validates the wire form. Any other
// arity, a non-binary first signal, or an out-of-field commitment is a
// structural failure.
func ParseSignals(raw []string) (PublicSignals, error) {
	if len(raw) != 2 {
		return PublicSignals{}, fmt.Errorf("want exactly 2 public signals, got %d: %w", len(raw), sentinel.ErrInvalidInput)
	}

	var compliant bool
	switch raw[0] {
	case "0":
		compliant = false
	case "1":
		compliant = true
	default:
		return PublicSignals{}, fmt.Errorf("compliance signal must be \"0\" or \"1\", got %q: %w", raw[0], sentinel.ErrInvalidInput)
	}

	ch, ok := new(big.Int).SetString(raw[1], 10)
	if !ok {
		return PublicSignals{}, fmt.Errorf("commitment hash is not a decimal field element: %w", sentinel.ErrInvalidInput)
	}
	if ch.Sign() < 0 || ch.Cmp(fr.Modulus()) >= 0 {
		return PublicSignals{}, fmt.Errorf("commitment hash out of field range: %w", sentinel.ErrInvalidInput)
	}

	return PublicSignals{IsCompliant: compliant, CommitmentHash: ch}, nil
}

// wellFormed holds the structural checks shared by both backends. It never
// inspects cryptographic content.
func wellFormed(p *Proof, signals PublicSignals, key KeyInfo) bool {
	if p == nil || len(p.Payload) == 0 {
		return false
	}
	if p.KeyVersion != key.Version {
		return false
	}
	if signals.CommitmentHash == nil {
		return false
	}
	if signals.CommitmentHash.Sign() < 0 || signals.CommitmentHash.Cmp(fr.Modulus()) >= 0 {
		return false
	}
	return true
}
