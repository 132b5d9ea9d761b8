package sanctions

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"zkcomply/internal/circuit"
	"zkcomply/internal/identity"
	"zkcomply/internal/sentinel"
)

// Set is the interface proof generation consumes: a snapshot of sanctioned
// commitments padded to the circuit capacity. Implementations must return a
// consistent snapshot per call; a half-updated list would make commitment
// hashes and membership checks disagree mid-proof.
type Set interface {
	SanctionedHashes(ctx context.Context, capacity int) ([]*big.Int, error)
	Total(ctx context.Context) (int, error)
}

// Provider serves sanctioned commitments from an in-process entry list.
// Commitments are derived once per Replace, not per request.
type Provider struct {
	mu      sync.RWMutex
	entries []Entry
	hashes  []*big.Int
}

// NewProvider derives commitments for the given entries.
func NewProvider(entries []Entry) *Provider {
	p := &Provider{}
	p.Replace(entries)
	return p
}

// Replace swaps the dataset atomically, e.g. on a feed refresh.
func (p *Provider) Replace(entries []Entry) {
	hashes := make([]*big.Int, len(entries))
	for i, e := range entries {
		hashes[i] = identity.EntityCommitment(e.Name, e.DateOfBirth)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append([]Entry(nil), entries...)
	p.hashes = hashes
}

// Entries returns a copy of the current dataset.
func (p *Provider) Entries() []Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Entry(nil), p.entries...)
}

// SanctionedHashes returns the commitment snapshot padded to capacity. A
// dataset larger than the capacity is refused outright: silently truncating
// would let the overflow entries prove compliance.
func (p *Provider) SanctionedHashes(_ context.Context, capacity int) ([]*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.hashes) > capacity {
		return nil, fmt.Errorf("%d sanctioned entries exceed circuit capacity %d: %w",
			len(p.hashes), capacity, sentinel.ErrInvalidState)
	}
	return circuit.PadSet(p.hashes, capacity), nil
}

// Total returns the unpadded entry count.
func (p *Provider) Total(_ context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hashes), nil
}
