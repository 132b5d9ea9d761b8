package store

import (
	"context"
	"sync"
	"time"

	"zkcomply/internal/registry/models"
	"zkcomply/internal/sentinel"
)

// InMemoryStore keeps registry state in process memory. It implements both
// Store and UsedProofStore.
type InMemoryStore struct {
	mu           sync.RWMutex
	records      map[models.Identity]*models.Record
	transactions map[string]*models.Transaction
	usedProofs   map[string]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:      make(map[models.Identity]*models.Record),
		transactions: make(map[string]*models.Transaction),
		usedProofs:   make(map[string]struct{}),
	}
}

// SaveRecord upserts under the store mutex; the counter increment and the
// write are one critical section, so concurrent saves never lose a count.
func (s *InMemoryStore) SaveRecord(_ context.Context, record *models.Record) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyRecord := *record
	copyRecord.ProofCount = 1
	if existing, ok := s.records[record.Identity]; ok {
		copyRecord.ProofCount = existing.ProofCount + 1
	}
	s.records[record.Identity] = &copyRecord
	stored := copyRecord
	return &stored, nil
}

func (s *InMemoryStore) FindRecord(_ context.Context, identity models.Identity) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) MarkRevoked(_ context.Context, identity models.Identity, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identity]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.RevokedAt = &revokedAt
	return nil
}

func (s *InMemoryStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyTx := *tx
	s.transactions[tx.ID] = &copyTx
	return nil
}

func (s *InMemoryStore) FindTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyTx := *tx
	return &copyTx, nil
}

func (s *InMemoryStore) CountVerified(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *InMemoryStore) CountTransactions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.transactions)), nil
}

// MarkUsed implements the replay guard under the store mutex.
func (s *InMemoryStore) MarkUsed(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usedProofs[fingerprint]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.usedProofs[fingerprint] = struct{}{}
	return nil
}
