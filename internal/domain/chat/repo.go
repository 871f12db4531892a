package chat

import "context"

// Repository stores conversation transcripts. Get returns (nil, nil) for
// an unknown id so callers can distinguish "missing" from a storage
// failure.
type Repository interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
