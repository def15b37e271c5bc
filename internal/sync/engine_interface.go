// Package sync provides the offline-first feedback sync engine.
package sync

import (
	"context"

	"github.com/kimhsiao/feedbacksync/internal/models"
)

// Remote is the feedback service as seen by the engine. Errors are expected
// to carry the codes of internal/errors: ErrRemoteUnavailable for transport
// failures and timeouts, ErrUnauthorized for refused credentials.
type Remote interface {
	// Ping probes reachability.
	Ping(ctx context.Context) error

	// List fetches the full collection.
	List(ctx context.Context) ([]models.Feedback, error)

	// Add stores rec under its own id. Adding an id the service already
	// holds must succeed without creating a duplicate.
	Add(ctx context.Context, rec models.Feedback) (models.Feedback, error)

	// Delete removes id. An unknown id counts as deleted.
	Delete(ctx context.Context, id string) error

	// Clear removes every record.
	Clear(ctx context.Context) (int, error)
}

// EngineInterface is the subset of the engine driven by the scheduler.
// This interface allows for mocking in tests.
type EngineInterface interface {
	// Resync refetches the remote collection while online.
	Resync(ctx context.Context) (bool, error)

	// Reconnect probes and, on success, drains the outbox and refetches.
	Reconnect(ctx context.Context) error

	// IsOnline reports the connectivity state.
	IsOnline() bool

	// Status returns a snapshot of the engine state.
	Status() Status
}

var _ EngineInterface = (*Engine)(nil)
