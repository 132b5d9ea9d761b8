package proof

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"zkcomply/internal/circuit"
	"zkcomply/internal/identity"
)

// Compile + setup dominate the runtime here, so the capacity stays tiny and
// everything shares one backend.
func TestGroth16RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}

	backend, err := NewGroth16(4)
	require.NoError(t, err)

	salt, err := identity.NewSalt()
	require.NoError(t, err)

	list := circuit.PadSet([]*big.Int{
		identity.EntityCommitment("Vladimir Putin", "1952-10-07"),
	}, 4)

	in := circuit.Inputs{
		UserCommitment: identity.UserCommitment("Alice Johnson", "1990-05-15"),
		BankCommitment: identity.BankCommitment("DE89370400440532013000"),
		WalletID:       identity.WalletCommitment("0xabc123"),
		Salt:           salt,
		SanctionedList: list,
	}

	p, signals, err := backend.Produce(context.Background(), in)
	require.NoError(t, err)
	require.True(t, signals.IsCompliant)
	require.Equal(t, "groth16-bn254", p.Scheme)
	require.True(t, backend.Verify(p, signals))

	t.Run("flipped compliance bit fails verification", func(t *testing.T) {
		flipped := signals
		flipped.IsCompliant = false
		require.False(t, backend.Verify(p, flipped))
	})

	t.Run("sanctioned identity proves non-compliance", func(t *testing.T) {
		bad := in
		bad.UserCommitment = identity.UserCommitment("Vladimir Putin", "1952-10-07")

		badProof, badSignals, err := backend.Produce(context.Background(), bad)
		require.NoError(t, err)
		require.False(t, badSignals.IsCompliant)
		require.True(t, backend.Verify(badProof, badSignals))
	})

	t.Run("simulated payload rejected", func(t *testing.T) {
		sim := NewSimulated(4)
		simProof, simSignals, err := sim.Produce(context.Background(), in)
		require.NoError(t, err)

		cross := *simProof
		cross.KeyVersion = backend.Key().Version
		require.False(t, backend.Verify(&cross, simSignals))
	})
}
