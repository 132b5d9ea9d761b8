// Package circuit defines the non-membership statement: a private identity
// commitment is absent from a fixed-capacity sanctioned set, bound to a
// public salted commitment hash. The gnark circuit here is the provable
// form; evaluate.go holds the equivalent off-circuit reference used by the
// simulated backend and by tests.
package circuit

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/math/bits"
)

// NonMembership is the circuit over BN254. The sanctioned list capacity is
// fixed at compile time and baked into the proving/verification key:
// changing it means issuing a new key, not just new data.
//
// Public signals, in declaration order: IsCompliant then CommitmentHash.
// Everything else is witness.
type NonMembership struct {
	IsCompliant    frontend.Variable `gnark:",public"`
	CommitmentHash frontend.Variable `gnark:",public"`

	UserCommitment frontend.Variable
	BankCommitment frontend.Variable
	WalletID       frontend.Variable
	Salt           frontend.Variable
	SanctionedList []frontend.Variable
}

// NewNonMembership allocates a circuit skeleton for the given sanctioned-set
// capacity, ready for frontend.Compile.
func NewNonMembership(capacity int) *NonMembership {
	return &NonMembership{SanctionedList: make([]frontend.Variable, capacity)}
}

// Define encodes the constraints:
//
//	commitmentHash == MiMC(userCommitment, bankCommitment, walletID, salt)
//	totalMatches   == Σ (userCommitment == sanctionedList[i])
//	isCompliant    == (totalMatches == 0)
//
// All four private inputs are decomposed to the field width first, so an
// out-of-range assignment fails witness solving instead of wrapping.
func (c *NonMembership) Define(api frontend.API) error {
	for _, in := range []frontend.Variable{c.UserCommitment, c.BankCommitment, c.WalletID, c.Salt} {
		bits.ToBinary(api, in, bits.WithNbDigits(fr.Bits))
	}

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.UserCommitment, c.BankCommitment, c.WalletID, c.Salt)
	api.AssertIsEqual(h.Sum(), c.CommitmentHash)

	// Duplicate entries simply raise the match count; only == 0 is tested,
	// so correctness of the compliance bit is unaffected.
	total := frontend.Variable(0)
	for i := range c.SanctionedList {
		eq := api.IsZero(api.Sub(c.UserCommitment, c.SanctionedList[i]))
		total = api.Add(total, eq)
	}

	api.AssertIsEqual(c.IsCompliant, api.IsZero(total))
	return nil
}
