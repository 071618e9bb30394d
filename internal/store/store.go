package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has never been written or was deleted.
var ErrNotFound = errors.New("not found")

// Storage is the durable key/value port the cart store mirrors its state into.
// Values are opaque UTF-8 text blobs.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
