package proof

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"zkcomply/internal/circuit"
	dErrors "zkcomply/pkg/domain-errors"
)

const simulatedScheme = "simulated-sha256"

// SimulatedBackend evaluates the circuit reference implementation off-circuit
// and binds the public signals to the payload with SHA-256. It keeps the
// exact produce/verify contract of the Groth16 backend — same structural
// rejections, same signals — but offers no zero-knowledge or soundness
// against a malicious prover. Tests and local development only.
type SimulatedBackend struct {
	capacity int
	key      KeyInfo
}

// NewSimulated builds a simulated backend for the given set capacity.
func NewSimulated(capacity int) *SimulatedBackend {
	return &SimulatedBackend{
		capacity: capacity,
		key: KeyInfo{
			Version:  fmt.Sprintf("%s-n%d-v1", simulatedScheme, capacity),
			Capacity: capacity,
		},
	}
}

func (b *SimulatedBackend) Key() KeyInfo { return b.key }

// Produce runs the reference evaluation and derives the payload binding.
func (b *SimulatedBackend) Produce(ctx context.Context, in circuit.Inputs) (*Proof, PublicSignals, error) {
	if err := ctx.Err(); err != nil {
		return nil, PublicSignals{}, err
	}
	if len(in.SanctionedList) != b.capacity {
		return nil, PublicSignals{}, dErrors.New(dErrors.CodeProofGeneration,
			fmt.Sprintf("sanctioned list has %d entries, key expects %d", len(in.SanctionedList), b.capacity))
	}

	out, err := circuit.Evaluate(in)
	if err != nil {
		return nil, PublicSignals{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "witness computation failed")
	}

	signals := PublicSignals{IsCompliant: out.IsCompliant, CommitmentHash: out.CommitmentHash}
	return &Proof{
		Scheme:     simulatedScheme,
		KeyVersion: b.key.Version,
		Payload:    b.bind(signals),
	}, signals, nil
}

// Verify recomputes the binding. Deterministic by construction.
func (b *SimulatedBackend) Verify(p *Proof, signals PublicSignals) bool {
	if !wellFormed(p, signals, b.key) {
		return false
	}
	if p.Scheme != simulatedScheme || len(p.Payload) != sha256.Size {
		return false
	}
	return bytes.Equal(p.Payload, b.bind(signals))
}

func (b *SimulatedBackend) bind(signals PublicSignals) []byte {
	h := sha256.New()
	h.Write([]byte(b.key.Version))
	for _, s := range signals.Slice() {
		h.Write([]byte{0x00})
		h.Write([]byte(s))
	}
	return h.Sum(nil)
}
