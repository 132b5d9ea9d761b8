package proof

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"zkcomply/internal/circuit"
	dErrors "zkcomply/pkg/domain-errors"
)

const groth16Scheme = "groth16-bn254"

// Groth16Backend proves the non-membership circuit with Groth16 over BN254.
// Proof size and verification cost are independent of the set capacity.
//
// Setup here runs in-process without a multi-party ceremony; the key version
// makes swapping in a ceremony artifact an explicit, visible change.
type Groth16Backend struct {
	capacity int
	key      KeyInfo
	ccs      constraint.ConstraintSystem
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
}

// NewGroth16 compiles the circuit for the given capacity and runs setup.
// Compilation cost grows with capacity; do this once at startup and share
// the backend, it is safe for concurrent use.
func NewGroth16(capacity int) (*Groth16Backend, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit.NewNonMembership(capacity))
	if err != nil {
		return nil, fmt.Errorf("compile non-membership circuit (n=%d): %w", capacity, err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	return &Groth16Backend{
		capacity: capacity,
		key: KeyInfo{
			Version:  fmt.Sprintf("%s-n%d-v1", groth16Scheme, capacity),
			Capacity: capacity,
		},
		ccs: ccs,
		pk:  pk,
		vk:  vk,
	}, nil
}

func (b *Groth16Backend) Key() KeyInfo { return b.key }

// Produce solves the witness and generates a Groth16 proof. Proving is
// long-running; a cancelled ctx returns immediately while the prover
// goroutine winds down in the background (it touches no shared state).
func (b *Groth16Backend) Produce(ctx context.Context, in circuit.Inputs) (*Proof, PublicSignals, error) {
	if len(in.SanctionedList) != b.capacity {
		return nil, PublicSignals{}, dErrors.New(dErrors.CodeProofGeneration,
			fmt.Sprintf("sanctioned list has %d entries, key expects %d", len(in.SanctionedList), b.capacity))
	}

	// The reference evaluation doubles as the witness feasibility check and
	// yields the public signals the assignment must satisfy.
	out, err := circuit.Evaluate(in)
	if err != nil {
		return nil, PublicSignals{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "witness computation failed")
	}
	signals := PublicSignals{IsCompliant: out.IsCompliant, CommitmentHash: out.CommitmentHash}

	assignment := &circuit.NonMembership{
		IsCompliant:    boolToInt(out.IsCompliant),
		CommitmentHash: out.CommitmentHash,
		UserCommitment: in.UserCommitment,
		BankCommitment: in.BankCommitment,
		WalletID:       in.WalletID,
		Salt:           in.Salt,
		SanctionedList: make([]frontend.Variable, b.capacity),
	}
	for i, e := range in.SanctionedList {
		assignment.SanctionedList[i] = e
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, PublicSignals{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "build witness")
	}

	type proveResult struct {
		proof groth16.Proof
		err   error
	}
	done := make(chan proveResult, 1)
	go func() {
		p, err := groth16.Prove(b.ccs, b.pk, witness)
		done <- proveResult{proof: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, PublicSignals{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, PublicSignals{}, dErrors.Wrap(res.err, dErrors.CodeProofGeneration, "groth16 prove")
		}
		var buf bytes.Buffer
		if _, err := res.proof.WriteTo(&buf); err != nil {
			return nil, PublicSignals{}, dErrors.Wrap(err, dErrors.CodeProofGeneration, "serialize proof")
		}
		return &Proof{
			Scheme:     groth16Scheme,
			KeyVersion: b.key.Version,
			Payload:    buf.Bytes(),
		}, signals, nil
	}
}

// Verify deserializes the payload and checks the pairing equation against
// the public signals. Malformed payloads and mismatched signals both come
// back as false.
func (b *Groth16Backend) Verify(p *Proof, signals PublicSignals) bool {
	if !wellFormed(p, signals, b.key) {
		return false
	}
	if p.Scheme != groth16Scheme {
		return false
	}

	gp := groth16.NewProof(ecc.BN254)
	if _, err := gp.ReadFrom(bytes.NewReader(p.Payload)); err != nil {
		return false
	}

	public := &circuit.NonMembership{
		IsCompliant:    boolToInt(signals.IsCompliant),
		CommitmentHash: signals.CommitmentHash,
	}
	w, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}

	return groth16.Verify(gp, b.vk, w) == nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
