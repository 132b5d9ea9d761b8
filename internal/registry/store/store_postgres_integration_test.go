//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zkcomply/internal/registry/models"
	"zkcomply/internal/registry/store"
	"zkcomply/internal/sentinel"
	"zkcomply/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"compliance_records", "transactions", "used_proofs")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) record(identity models.Identity) *models.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Record{
		Identity:       identity,
		IsCompliant:    true,
		CommitmentHash: "12345678901234567890",
		KeyVersion:     "groth16-bn254-n64-v1",
		VerifiedAt:     now,
		ExpiresAt:      now.Add(30 * 24 * time.Hour),
	}
}

func (s *PostgresStoreSuite) TestRecordLifecycle() {
	ctx := context.Background()

	_, err := s.store.FindRecord(ctx, "0xalice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	record := s.record("0xalice")
	stored, err := s.store.SaveRecord(ctx, record)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.ProofCount)

	got, err := s.store.FindRecord(ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal(record.CommitmentHash, got.CommitmentHash)
	s.Equal(record.ExpiresAt, got.ExpiresAt)
	s.Nil(got.RevokedAt)

	// Resubmission upserts rather than duplicating, and the server-side
	// increment advances the counter.
	refreshed := s.record("0xalice")
	refreshed.CommitmentHash = "999"
	stored, err = s.store.SaveRecord(ctx, refreshed)
	s.Require().NoError(err)
	s.Equal(int64(2), stored.ProofCount)

	got, err = s.store.FindRecord(ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal("999", got.CommitmentHash)
	s.Equal(int64(2), got.ProofCount)
	s.True(got.IsCompliant)

	count, err := s.store.CountVerified(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	s.Require().NoError(s.store.MarkRevoked(ctx, "0xalice", time.Now().UTC()))
	got, err = s.store.FindRecord(ctx, "0xalice")
	s.Require().NoError(err)
	s.NotNil(got.RevokedAt)

	s.Require().ErrorIs(s.store.MarkRevoked(ctx, "0xnobody", time.Now()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestTransactions() {
	ctx := context.Background()

	tx := &models.Transaction{
		ID:           "tx_test_1",
		Sender:       "0xalice",
		Recipient:    "0xbob",
		Amount:       12500,
		AuthorizedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.SaveTransaction(ctx, tx))

	got, err := s.store.FindTransaction(ctx, "tx_test_1")
	s.Require().NoError(err)
	s.Equal(tx.Sender, got.Sender)
	s.Equal(tx.Amount, got.Amount)

	_, err = s.store.FindTransaction(ctx, "tx_missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	count, err := s.store.CountTransactions(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

// TestSaveRecordContention exercises the proof counter under concurrency:
// every one of n parallel saves for the same identity must be counted.
func (s *PostgresStoreSuite) TestSaveRecordContention() {
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.SaveRecord(ctx, s.record("0xalice")); err != nil {
				s.T().Errorf("unexpected SaveRecord error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.store.FindRecord(ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal(int64(goroutines), got.ProofCount)
}

// TestMarkUsedContention exercises the replay guard under concurrency: for a
// contended fingerprint exactly one writer may win.
func (s *PostgresStoreSuite) TestMarkUsedContention() {
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.MarkUsed(ctx, "fp-contended"); err == nil {
				wins <- struct{}{}
			} else if !errors.Is(err, sentinel.ErrAlreadyUsed) {
				s.T().Errorf("unexpected MarkUsed error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Equal(1, len(wins), "exactly one writer wins a contended fingerprint")
	s.Require().NoError(s.store.MarkUsed(ctx, "fp-other"))
}
