// Package sealed encrypts values on their way into another Storage.
package sealed

import (
	"context"

	"foodexplorer/internal/security/secretbox"
	storepkg "foodexplorer/internal/store"
)

type Store struct {
	inner storepkg.Storage
	box   *secretbox.Box
}

func NewStore(inner storepkg.Storage, box *secretbox.Box) *Store {
	return &Store{inner: inner, box: box}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.box.Open(v)
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	sealed, err := s.box.Seal(value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
