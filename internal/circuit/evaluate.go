package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	gcmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"zkcomply/internal/sentinel"
)

// Inputs are the private circuit inputs plus the sanctioned-set snapshot.
// The list must already be padded or truncated to the circuit capacity.
type Inputs struct {
	UserCommitment *big.Int
	BankCommitment *big.Int
	WalletID       *big.Int
	Salt           *big.Int
	SanctionedList []*big.Int
}

// Outputs carry the two public signals the circuit emits.
type Outputs struct {
	IsCompliant    bool
	CommitmentHash *big.Int
}

// Validate range-checks every input against the field width. Out-of-range
// values are rejected here exactly as witness solving rejects them
// in-circuit: never silently wrapped.
func (in Inputs) Validate() error {
	named := []struct {
		label string
		v     *big.Int
	}{
		{"user commitment", in.UserCommitment},
		{"bank commitment", in.BankCommitment},
		{"wallet id", in.WalletID},
		{"salt", in.Salt},
	}
	for _, f := range named {
		if err := checkRange(f.label, f.v); err != nil {
			return err
		}
	}
	for i, e := range in.SanctionedList {
		if err := checkRange(fmt.Sprintf("sanctioned list entry %d", i), e); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(label string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%s is nil: %w", label, sentinel.ErrInvalidInput)
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return fmt.Errorf("%s out of field range: %w", label, sentinel.ErrInvalidInput)
	}
	return nil
}

// Evaluate is the reference, off-circuit evaluation with identical semantics
// to NonMembership.Define. It is pure and deterministic: same inputs, same
// outputs, for any fixed salt.
func Evaluate(in Inputs) (Outputs, error) {
	if err := in.Validate(); err != nil {
		return Outputs{}, err
	}

	matches := 0
	for _, entry := range in.SanctionedList {
		if in.UserCommitment.Cmp(entry) == 0 {
			matches++
		}
	}

	return Outputs{
		IsCompliant:    matches == 0,
		CommitmentHash: CommitmentHash(in.UserCommitment, in.BankCommitment, in.WalletID, in.Salt),
	}, nil
}

// CommitmentHash computes the 4-ary MiMC hash binding the private inputs to
// the public commitment. MiMC runs over the same field as the circuit, so
// this value equals the in-circuit h.Sum() for the same inputs.
func CommitmentHash(userCommitment, bankCommitment, walletID, salt *big.Int) *big.Int {
	h := gcmimc.NewMiMC()
	for _, v := range []*big.Int{userCommitment, bankCommitment, walletID, salt} {
		var e fr.Element
		e.SetBigInt(v)
		b := e.Bytes()
		h.Write(b[:]) //nolint:errcheck // canonical fr bytes never fail
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// PadSet pads the snapshot with zero entries, or truncates it, to exactly
// capacity elements. Zero is safe padding: real commitments are hash
// outputs and never land on zero.
func PadSet(list []*big.Int, capacity int) []*big.Int {
	out := make([]*big.Int, capacity)
	for i := 0; i < capacity; i++ {
		if i < len(list) {
			out[i] = list[i]
		} else {
			out[i] = new(big.Int)
		}
	}
	return out
}
