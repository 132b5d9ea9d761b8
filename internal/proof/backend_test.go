package proof

import (
	"context"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/suite"

	"zkcomply/internal/circuit"
	"zkcomply/internal/identity"
	dErrors "zkcomply/pkg/domain-errors"
)

type SimulatedBackendSuite struct {
	suite.Suite
	backend *SimulatedBackend
}

func TestSimulatedBackendSuite(t *testing.T) {
	suite.Run(t, new(SimulatedBackendSuite))
}

func (s *SimulatedBackendSuite) SetupTest() {
	s.backend = NewSimulated(8)
}

func (s *SimulatedBackendSuite) inputs(name string) circuit.Inputs {
	salt, err := identity.NewSalt()
	s.Require().NoError(err)

	list := []*big.Int{
		identity.EntityCommitment("Vladimir Putin", "1952-10-07"),
		identity.EntityCommitment("Kim Jong Un", "1984-01-08"),
	}
	return circuit.Inputs{
		UserCommitment: identity.UserCommitment(name, "1990-05-15"),
		BankCommitment: identity.BankCommitment("DE89370400440532013000"),
		WalletID:       identity.WalletCommitment("0xabc123"),
		Salt:           salt,
		SanctionedList: circuit.PadSet(list, 8),
	}
}

func (s *SimulatedBackendSuite) TestProduceAndVerify() {
	p, signals, err := s.backend.Produce(context.Background(), s.inputs("Alice Johnson"))
	s.Require().NoError(err)
	s.True(signals.IsCompliant)
	s.True(s.backend.Verify(p, signals))
}

func (s *SimulatedBackendSuite) TestVerifyRejectsTampering() {
	p, signals, err := s.backend.Produce(context.Background(), s.inputs("Alice Johnson"))
	s.Require().NoError(err)

	s.Run("flipped compliance bit", func() {
		flipped := signals
		flipped.IsCompliant = false
		s.False(s.backend.Verify(p, flipped))
	})

	s.Run("altered commitment hash", func() {
		altered := signals
		altered.CommitmentHash = new(big.Int).Add(signals.CommitmentHash, big.NewInt(1))
		s.False(s.backend.Verify(p, altered))
	})

	s.Run("corrupted payload", func() {
		corrupted := *p
		corrupted.Payload = append([]byte(nil), p.Payload...)
		corrupted.Payload[0] ^= 0xff
		s.False(s.backend.Verify(&corrupted, signals))
	})
}

func (s *SimulatedBackendSuite) TestVerifyRejectsStructuralDefects() {
	p, signals, err := s.backend.Produce(context.Background(), s.inputs("Alice Johnson"))
	s.Require().NoError(err)

	s.Run("nil proof", func() {
		s.False(s.backend.Verify(nil, signals))
	})

	s.Run("empty payload", func() {
		empty := *p
		empty.Payload = nil
		s.False(s.backend.Verify(&empty, signals))
	})

	s.Run("foreign key version", func() {
		foreign := *p
		foreign.KeyVersion = "simulated-sha256-n16-v1"
		s.False(s.backend.Verify(&foreign, signals))
	})

	s.Run("nil commitment hash", func() {
		broken := signals
		broken.CommitmentHash = nil
		s.False(s.backend.Verify(p, broken))
	})

	s.Run("commitment hash outside field", func() {
		broken := signals
		broken.CommitmentHash = new(big.Int).Set(fr.Modulus())
		s.False(s.backend.Verify(p, broken))
	})
}

func (s *SimulatedBackendSuite) TestProduceCapacityMismatch() {
	in := s.inputs("Alice Johnson")
	in.SanctionedList = in.SanctionedList[:4]

	_, _, err := s.backend.Produce(context.Background(), in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProofGeneration))
}

func (s *SimulatedBackendSuite) TestProduceSanctionedIdentity() {
	in := s.inputs("Vladimir Putin")
	in.UserCommitment = identity.UserCommitment("Vladimir Putin", "1952-10-07")

	p, signals, err := s.backend.Produce(context.Background(), in)
	s.Require().NoError(err)
	s.False(signals.IsCompliant, "sanctioned identity must yield a non-compliant signal")
	s.True(s.backend.Verify(p, signals), "the non-compliant proof itself is still valid")
}

func (s *SimulatedBackendSuite) TestProduceHonorsCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.backend.Produce(ctx, s.inputs("Alice Johnson"))
	s.ErrorIs(err, context.Canceled)
}

func TestParseSignals(t *testing.T) {
	inField := identity.UserCommitment("Alice Johnson", "1990-05-15").String()

	tests := []struct {
		name    string
		raw     []string
		wantErr bool
	}{
		{name: "compliant", raw: []string{"1", inField}},
		{name: "non-compliant", raw: []string{"0", inField}},
		{name: "too few signals", raw: []string{"1"}, wantErr: true},
		{name: "too many signals", raw: []string{"1", inField, "0"}, wantErr: true},
		{name: "non-binary compliance", raw: []string{"2", inField}, wantErr: true},
		{name: "non-decimal hash", raw: []string{"1", "0xdeadbeef"}, wantErr: true},
		{name: "hash at modulus", raw: []string{"1", fr.Modulus().String()}, wantErr: true},
		{name: "negative hash", raw: []string{"1", "-5"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignals(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSignals(%v): want error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignals(%v): %v", tt.raw, err)
			}
			if out := got.Slice(); out[0] != tt.raw[0] || out[1] != tt.raw[1] {
				t.Fatalf("round trip mismatch: %v != %v", out, tt.raw)
			}
		})
	}
}
