package audit

import "context"

// Store is the append-only audit persistence contract.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identity string) ([]Event, error)
}
