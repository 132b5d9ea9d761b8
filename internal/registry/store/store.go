package store

import (
	"context"
	"time"

	"zkcomply/internal/registry/models"
)

// Store persists compliance records and transactions.
// Error Contract:
// - FindRecord and FindTransaction return sentinel.ErrNotFound when absent
// - MarkRevoked returns sentinel.ErrNotFound when no record exists
// - Other methods return nil on success or wrapped errors on failure
//
// SaveRecord owns the proof counter: the caller's ProofCount is ignored, the
// stored counter is incremented by one per save (starting at 1), and the
// record as stored is returned. The read-increment-write must be atomic:
// two concurrent saves for the same identity observe distinct counts.
type Store interface {
	SaveRecord(ctx context.Context, record *models.Record) (*models.Record, error)
	FindRecord(ctx context.Context, identity models.Identity) (*models.Record, error)
	MarkRevoked(ctx context.Context, identity models.Identity, revokedAt time.Time) error
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, id string) (*models.Transaction, error)
	CountVerified(ctx context.Context) (int64, error)
	CountTransactions(ctx context.Context) (int64, error)
}

// UsedProofStore is the replay guard. MarkUsed must be an atomic
// check-and-insert: exactly one of two concurrent calls with the same
// fingerprint succeeds, the other gets sentinel.ErrAlreadyUsed.
type UsedProofStore interface {
	MarkUsed(ctx context.Context, fingerprint string) error
}
