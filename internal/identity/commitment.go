// Package identity derives commitments from raw identity fields. Raw fields
// are consumed on demand and never persisted; everything downstream (the
// circuit, the registry, the screening lists) sees only field elements.
package identity

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Domain separation tags. Identity commitments and the auxiliary bank/wallet
// commitments must never collide for identical input strings.
const (
	domainIdentity = "IDENTITY"
	domainBank     = "BANK"
	domainWallet   = "WALLET"
)

// Normalize canonicalizes a name the same way at registration and at every
// future proof generation: trim, collapse internal whitespace, uppercase.
// Any drift here makes the same legal identity produce different
// commitments, which silently breaks compliance enforcement.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// UserCommitment derives the private commitment for a user identity.
func UserCommitment(fullName, dateOfBirth string) *big.Int {
	return hashToField(domainIdentity, Normalize(fullName), strings.TrimSpace(dateOfBirth))
}

// EntityCommitment derives the commitment for a sanctioned entity. Entries
// must use the identical normalization, domain tag, and hash as
// UserCommitment or the circuit's equality checks silently never match.
func EntityCommitment(name, dateOfBirth string) *big.Int {
	return UserCommitment(name, dateOfBirth)
}

// BankCommitment commits to bank account details.
func BankCommitment(account string) *big.Int {
	return hashToField(domainBank, strings.TrimSpace(account))
}

// WalletCommitment commits to a wallet address.
func WalletCommitment(address string) *big.Int {
	return hashToField(domainWallet, strings.TrimSpace(address))
}

// NewSalt returns a uniformly random field element for blinding the public
// commitment hash.
func NewSalt() (*big.Int, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return e.BigInt(new(big.Int)), nil
}

// hashToField maps a domain-separated string tuple into the BN254 scalar
// field. SHA-256 is fine here: this hash runs outside the circuit; only the
// 4-ary commitment hash inside the circuit must be circuit-friendly.
func hashToField(domain string, parts ...string) *big.Int {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte{0x00})
		h.Write([]byte(p))
	}
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.Mod(v, fr.Modulus())
}
