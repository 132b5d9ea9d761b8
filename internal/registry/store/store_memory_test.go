package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"zkcomply/internal/registry/models"
	"zkcomply/internal/sentinel"
)

func TestInMemoryStoreMarkUsedIsAtomic(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.MarkUsed(ctx, "fp-contended"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	if got := len(wins); got != 1 {
		t.Fatalf("want exactly one winner for a contended fingerprint, got %d", got)
	}
	if err := s.MarkUsed(ctx, "fp-contended"); !errors.Is(err, sentinel.ErrAlreadyUsed) {
		t.Fatalf("want ErrAlreadyUsed on reuse, got %v", err)
	}
	if err := s.MarkUsed(ctx, "fp-other"); err != nil {
		t.Fatalf("distinct fingerprint must succeed: %v", err)
	}
}

func TestInMemoryStoreSaveRecordCountsEverySave(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	const workers = 32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveRecord(ctx, &models.Record{
				Identity:       "0xalice",
				IsCompliant:    true,
				CommitmentHash: "42",
				VerifiedAt:     now,
				ExpiresAt:      now.Add(time.Hour),
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := s.FindRecord(ctx, "0xalice")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProofCount != workers {
		t.Fatalf("want proof count %d after %d concurrent saves, got %d", workers, workers, got.ProofCount)
	}
}

func TestInMemoryStoreRecords(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now()

	if _, err := s.FindRecord(ctx, "0xalice"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown identity, got %v", err)
	}
	if err := s.MarkRevoked(ctx, "0xalice", now); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("want ErrNotFound revoking unknown identity, got %v", err)
	}

	record := &models.Record{
		Identity:       "0xalice",
		IsCompliant:    true,
		CommitmentHash: "42",
		VerifiedAt:     now,
		ExpiresAt:      now.Add(time.Hour),
	}
	stored, err := s.SaveRecord(ctx, record)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ProofCount != 1 {
		t.Fatalf("first save must start the counter at 1, got %d", stored.ProofCount)
	}

	// Mutating the caller's copy must not leak into the store.
	record.CommitmentHash = "tampered"
	got, err := s.FindRecord(ctx, "0xalice")
	if err != nil {
		t.Fatal(err)
	}
	if got.CommitmentHash != "42" {
		t.Fatalf("store leaked caller mutation: %q", got.CommitmentHash)
	}

	if err := s.MarkRevoked(ctx, "0xalice", now); err != nil {
		t.Fatal(err)
	}
	got, err = s.FindRecord(ctx, "0xalice")
	if err != nil {
		t.Fatal(err)
	}
	if got.RevokedAt == nil {
		t.Fatal("record not marked revoked")
	}
}
