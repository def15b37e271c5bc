// Package localstore provides the persistent key/value store the sync engine
// keeps its offline collection and outbox in.
package localstore

import (
	"context"
	"encoding/json"

	"github.com/kimhsiao/feedbacksync/internal/errors"
)

// Well-known keys.
const (
	KeyFeedbacks = "feedbacks"
	KeyPending   = "feedbacks:pending"
	KeyToken     = "auth:token"
)

// Store is a string key/value store. Every call may fail.
type Store interface {
	// Get returns the value under key; ok is false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key succeeds.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}

// LoadJSON decodes the value under key into v. ok is false when the key is
// absent; a present but undecodable value is an ErrLocalStore error.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, errors.Wrap(errors.ErrLocalStore, "failed to read "+key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, errors.Wrap(errors.ErrLocalStore, "corrupt value under "+key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrLocalStore, "failed to encode "+key, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return errors.Wrap(errors.ErrLocalStore, "failed to write "+key, err)
	}
	return nil
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
