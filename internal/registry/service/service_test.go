package service

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zkcomply/internal/circuit"
	"zkcomply/internal/identity"
	"zkcomply/internal/proof"
	"zkcomply/internal/registry/models"
	"zkcomply/internal/registry/store"
	dErrors "zkcomply/pkg/domain-errors"
)

const (
	owner     = models.Identity("0xregistry-owner")
	alice     = models.Identity("0xalice")
	bob       = models.Identity("0xbob")
	capacity  = 8
	testEpoch = "2026-08-01T00:00:00Z"
)

type ServiceSuite struct {
	suite.Suite
	backend *proof.SimulatedBackend
	store   *store.InMemoryStore
	svc     *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now, _ = time.Parse(time.RFC3339, testEpoch)
	s.backend = proof.NewSimulated(capacity)
	s.store = store.NewInMemory()
	s.svc = NewService(s.store, s.store, s.backend, owner,
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

// prove generates a fresh proof for the named user. A fresh salt each call
// means a fresh commitment hash and so a fresh fingerprint.
func (s *ServiceSuite) prove(name string) (*proof.Proof, []string) {
	return s.proveWith(name, "1990-05-15")
}

func (s *ServiceSuite) proveWith(name, dob string) (*proof.Proof, []string) {
	salt, err := identity.NewSalt()
	s.Require().NoError(err)

	list := circuit.PadSet([]*big.Int{
		identity.EntityCommitment("Vladimir Putin", "1952-10-07"),
	}, capacity)

	p, signals, err := s.backend.Produce(context.Background(), circuit.Inputs{
		UserCommitment: identity.UserCommitment(name, dob),
		BankCommitment: identity.BankCommitment("DE89370400440532013000"),
		WalletID:       identity.WalletCommitment("0x" + name),
		Salt:           salt,
		SanctionedList: list,
	})
	s.Require().NoError(err)
	return p, signals.Slice()
}

func (s *ServiceSuite) submit(id models.Identity, name string) *models.Record {
	p, signals := s.prove(name)
	record, err := s.svc.SubmitProof(context.Background(), id, p, signals)
	s.Require().NoError(err)
	return record
}

func (s *ServiceSuite) TestSubmitProofOpensComplianceWindow() {
	record := s.submit(alice, "Alice Johnson")

	s.Equal(alice, record.Identity)
	s.True(record.IsCompliant)
	s.Equal(s.now, record.VerifiedAt)
	s.Equal(s.now.Add(DefaultValidityPeriod), record.ExpiresAt)
	s.Equal(int64(1), record.ProofCount)

	compliant, err := s.svc.CheckCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.True(compliant)
}

// A valid proof attesting non-compliance is accepted and recorded: the
// identity is verified, just never payment-eligible.
func (s *ServiceSuite) TestSubmitProofRecordsNonCompliance() {
	p, signals := s.proveWith("Vladimir Putin", "1952-10-07")

	record, err := s.svc.SubmitProof(context.Background(), "0xkremlin", p, signals)
	s.Require().NoError(err)
	s.False(record.IsCompliant)

	compliant, err := s.svc.CheckCompliance(context.Background(), "0xkremlin")
	s.Require().NoError(err)
	s.False(compliant)

	view, err := s.svc.GetUserCompliance(context.Background(), "0xkremlin")
	s.Require().NoError(err)
	s.Equal(models.StatusNonCompliant, view.Status)

	s.submit(alice, "Alice Johnson")
	_, err = s.svc.AuthorizePayment(context.Background(), alice, "0xkremlin", 100)
	s.True(dErrors.HasCode(err, dErrors.CodeRecipientNotCompliant))
	_, err = s.svc.AuthorizePayment(context.Background(), "0xkremlin", alice, 100)
	s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
}

func (s *ServiceSuite) TestSubmitProofReplayRejected() {
	p, signals := s.prove("Alice Johnson")

	_, err := s.svc.SubmitProof(context.Background(), alice, p, signals)
	s.Require().NoError(err)

	s.Run("identical resubmission fails", func() {
		_, err := s.svc.SubmitProof(context.Background(), alice, p, signals)
		s.True(dErrors.HasCode(err, dErrors.CodeReplayedProof))
	})

	s.Run("same proof under another identity is a distinct fingerprint", func() {
		_, err := s.svc.SubmitProof(context.Background(), bob, p, signals)
		s.Require().NoError(err)
	})

	s.Run("fresh proof for the same identity succeeds", func() {
		p2, signals2 := s.prove("Alice Johnson")
		_, err := s.svc.SubmitProof(context.Background(), alice, p2, signals2)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestSubmitProofRejections() {
	p, signals := s.prove("Alice Johnson")

	s.Run("missing identity", func() {
		_, err := s.svc.SubmitProof(context.Background(), "", p, signals)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("nil proof", func() {
		_, err := s.svc.SubmitProof(context.Background(), alice, nil, signals)
		s.True(dErrors.HasCode(err, dErrors.CodeStructuralProof))
	})

	s.Run("malformed signals", func() {
		_, err := s.svc.SubmitProof(context.Background(), alice, p, []string{"1"})
		s.True(dErrors.HasCode(err, dErrors.CodeStructuralProof))
	})

	s.Run("flipped compliance bit breaks verification", func() {
		flipped := []string{"0", signals[1]}
		_, err := s.svc.SubmitProof(context.Background(), alice, p, flipped)
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
	})

	s.Run("tampered payload", func() {
		tampered := *p
		tampered.Payload = append([]byte(nil), p.Payload...)
		tampered.Payload[0] ^= 0xff
		_, err := s.svc.SubmitProof(context.Background(), alice, &tampered, signals)
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
	})

	s.Run("no record written for rejected proofs", func() {
		compliant, err := s.svc.CheckCompliance(context.Background(), alice)
		s.Require().NoError(err)
		s.False(compliant)
	})
}

func (s *ServiceSuite) TestComplianceExpiresAtReadTime() {
	s.submit(alice, "Alice Johnson")

	s.advance(DefaultValidityPeriod - time.Minute)
	compliant, err := s.svc.CheckCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.True(compliant)

	s.advance(2 * time.Minute)
	compliant, err = s.svc.CheckCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.False(compliant)

	view, err := s.svc.GetUserCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, view.Status)
}

func (s *ServiceSuite) TestResubmissionRefreshesWindow() {
	s.submit(alice, "Alice Johnson")
	s.advance(DefaultValidityPeriod + time.Hour)

	record := s.submit(alice, "Alice Johnson")
	s.Equal(s.now.Add(DefaultValidityPeriod), record.ExpiresAt)

	compliant, err := s.svc.CheckCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.True(compliant)
}

// Concurrent accepted submissions for one identity must each advance the
// proof counter; the increment is the store's, not a read-modify-write here.
func (s *ServiceSuite) TestConcurrentSubmissionsCountEveryProof() {
	const submissions = 8
	proofs := make([]*proof.Proof, submissions)
	signals := make([][]string, submissions)
	for i := range submissions {
		proofs[i], signals[i] = s.prove("Alice Johnson")
	}

	var wg sync.WaitGroup
	for i := range submissions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.svc.SubmitProof(context.Background(), alice, proofs[i], signals[i]); err != nil {
				s.T().Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()

	view, err := s.svc.GetUserCompliance(context.Background(), alice)
	s.Require().NoError(err)
	s.Equal(int64(submissions), view.ProofCount)
}

func (s *ServiceSuite) TestAuthorizePayment() {
	s.submit(alice, "Alice Johnson")
	s.submit(bob, "Bob Smith")

	tx, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 125_00)
	s.Require().NoError(err)
	s.Equal(alice, tx.Sender)
	s.Equal(bob, tx.Recipient)
	s.Equal(int64(125_00), tx.Amount)

	got, err := s.svc.GetTransaction(context.Background(), tx.ID)
	s.Require().NoError(err)
	s.Equal(tx.ID, got.ID)
}

func (s *ServiceSuite) TestAuthorizePaymentSenderGating() {
	s.submit(bob, "Bob Smith")

	s.Run("unverified sender", func() {
		_, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
	})

	s.Run("expired sender", func() {
		s.submit(alice, "Alice Johnson")
		s.advance(DefaultValidityPeriod + time.Hour)
		s.submit(bob, "Bob Smith") // keep the recipient current

		_, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeExpiredCredential))
	})
}

func (s *ServiceSuite) TestAuthorizePaymentRecipientGating() {
	s.submit(alice, "Alice Johnson")

	s.Run("unverified recipient", func() {
		_, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeRecipientNotCompliant))
	})

	s.Run("expired recipient", func() {
		s.submit(bob, "Bob Smith")
		s.advance(DefaultValidityPeriod + time.Hour)
		s.submit(alice, "Alice Johnson")

		_, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeRecipientNotCompliant))
	})
}

func (s *ServiceSuite) TestAuthorizePaymentInputValidation() {
	s.submit(alice, "Alice Johnson")
	s.submit(bob, "Bob Smith")

	_, err := s.svc.AuthorizePayment(context.Background(), alice, alice, 100)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.AuthorizePayment(context.Background(), alice, bob, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.AuthorizePayment(context.Background(), "", bob, 100)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestRevokeCompliance() {
	s.submit(alice, "Alice Johnson")
	s.submit(bob, "Bob Smith")

	s.Run("non-owner cannot revoke", func() {
		err := s.svc.RevokeCompliance(context.Background(), bob, alice)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("owner revokes", func() {
		err := s.svc.RevokeCompliance(context.Background(), owner, alice)
		s.Require().NoError(err)

		compliant, err := s.svc.CheckCompliance(context.Background(), alice)
		s.Require().NoError(err)
		s.False(compliant)

		view, err := s.svc.GetUserCompliance(context.Background(), alice)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, view.Status)
	})

	s.Run("revoked sender cannot pay", func() {
		_, err := s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
	})

	s.Run("unknown identity", func() {
		err := s.svc.RevokeCompliance(context.Background(), owner, "0xnobody")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGetUserComplianceUnverified() {
	view, err := s.svc.GetUserCompliance(context.Background(), "0xnobody")
	s.Require().NoError(err)
	s.Equal(models.StatusUnverified, view.Status)
	s.Empty(view.CommitmentHash)
}

func (s *ServiceSuite) TestSystemStats() {
	stats, err := s.svc.GetSystemStats(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.TotalVerifiedUsers)
	s.Zero(stats.TotalTransactions)

	s.submit(alice, "Alice Johnson")
	s.submit(bob, "Bob Smith")
	_, err = s.svc.AuthorizePayment(context.Background(), alice, bob, 100)
	s.Require().NoError(err)

	stats, err = s.svc.GetSystemStats(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalVerifiedUsers)
	s.Equal(int64(1), stats.TotalTransactions)
	s.Equal(DefaultValidityPeriod, stats.ValidityPeriod)

	// Refreshing an identity does not double-count it.
	s.submit(alice, "Alice Johnson")
	stats, err = s.svc.GetSystemStats(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalVerifiedUsers)
}
