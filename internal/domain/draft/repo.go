package draft

import (
	"context"
	"time"
)

// Repository defines the persistence interface for drafts and draft settings.
type Repository interface {
	Put(ctx context.Context, d *Draft) error
	Get(ctx context.Context, k Key) (*Draft, error)
	Delete(ctx context.Context, k Key) error
	// DeleteOlderThan removes drafts saved before cutoff and returns how many
	// were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	GetFlag(ctx context.Context, name string) (value bool, ok bool, err error)
	SetFlag(ctx context.Context, name string, value bool) error
}
