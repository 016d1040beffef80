package ledger

import "context"

// Repo records ledger events.
type Repo interface {
	Record(ctx context.Context, event Event) error
}

// NopRepo discards events. Used when no database is configured.
type NopRepo struct{}

// Record implements Repo.
func (NopRepo) Record(ctx context.Context, event Event) error {
	return ctx.Err()
}
