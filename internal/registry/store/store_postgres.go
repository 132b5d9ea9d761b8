package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zkcomply/internal/registry/models"
	"zkcomply/internal/sentinel"
)

// PostgresStore persists registry state in PostgreSQL. It implements both
// Store and UsedProofStore; single-node deployments can skip Redis and use
// the used_proofs table's primary key as the replay guard.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveRecord upserts in a single statement; the server-side
// `proof_count + 1` makes the increment atomic under concurrent saves.
func (s *PostgresStore) SaveRecord(ctx context.Context, record *models.Record) (*models.Record, error) {
	if record == nil {
		return nil, fmt.Errorf("compliance record is required")
	}
	query := `
		INSERT INTO compliance_records (identity, is_compliant, commitment_hash, key_version, verified_at, expires_at, revoked_at, proof_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (identity) DO UPDATE
		SET is_compliant    = EXCLUDED.is_compliant,
		    commitment_hash = EXCLUDED.commitment_hash,
		    key_version     = EXCLUDED.key_version,
		    verified_at     = EXCLUDED.verified_at,
		    expires_at      = EXCLUDED.expires_at,
		    revoked_at      = EXCLUDED.revoked_at,
		    proof_count     = compliance_records.proof_count + 1
		RETURNING proof_count
	`
	stored := *record
	err := s.db.QueryRowContext(ctx, query,
		string(record.Identity),
		record.IsCompliant,
		record.CommitmentHash,
		record.KeyVersion,
		record.VerifiedAt,
		record.ExpiresAt,
		record.RevokedAt,
	).Scan(&stored.ProofCount)
	if err != nil {
		return nil, fmt.Errorf("save compliance record: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) FindRecord(ctx context.Context, identity models.Identity) (*models.Record, error) {
	query := `
		SELECT identity, is_compliant, commitment_hash, key_version, verified_at, expires_at, revoked_at, proof_count
		FROM compliance_records
		WHERE identity = $1
	`
	var record models.Record
	var id string
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, string(identity)).Scan(
		&id, &record.IsCompliant, &record.CommitmentHash, &record.KeyVersion,
		&record.VerifiedAt, &record.ExpiresAt, &revokedAt, &record.ProofCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find compliance record: %w", err)
	}
	record.Identity = models.Identity(id)
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	return &record, nil
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, identity models.Identity, revokedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE compliance_records SET revoked_at = $2 WHERE identity = $1`,
		string(identity), revokedAt,
	)
	if err != nil {
		return fmt.Errorf("revoke compliance record: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke compliance record rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	// A content-hash collision is the same logical event; re-inserting it is
	// a no-op, not an error.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, sender, recipient, amount, authorized_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`,
		tx.ID, string(tx.Sender), string(tx.Recipient), tx.Amount, tx.AuthorizedAt,
	)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	var sender, recipient string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender, recipient, amount, authorized_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &sender, &recipient, &tx.Amount, &tx.AuthorizedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	tx.Sender = models.Identity(sender)
	tx.Recipient = models.Identity(recipient)
	return &tx, nil
}

func (s *PostgresStore) CountVerified(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compliance_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verified identities: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// MarkUsed inserts the fingerprint; a primary-key conflict means the proof
// was already consumed.
func (s *PostgresStore) MarkUsed(ctx context.Context, fingerprint string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO used_proofs (fingerprint, used_at)
		VALUES ($1, NOW())
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING fingerprint
	`, fingerprint).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("mark proof used: %w", err)
	}
	return nil
}
