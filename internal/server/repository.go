package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/uuid"
)

// CollectionKey is the store key holding the service's collection. With the
// file backend it maps to feedbacks.json in the data directory.
const CollectionKey = "feedbacks"

// Repository is the service's single shared collection. The whole
// collection is read and rewritten on every change; a process-local mutex
// serialises handlers but nothing guards against a second process writing
// the same store.
type Repository struct {
	store localstore.Store
	newID uuid.Generator
	now   func() time.Time

	mu sync.Mutex
}

// NewRepository creates a Repository over store.
func NewRepository(store localstore.Store) *Repository {
	return &Repository{store: store, newID: uuid.New, now: time.Now}
}

func (r *Repository) load(ctx context.Context) ([]models.Feedback, error) {
	var records []models.Feedback
	if _, err := localstore.LoadJSON(ctx, r.store, CollectionKey, &records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Normalize()
	}
	return models.Clone(records), nil
}

// List returns the collection in insertion order.
func (r *Repository) List(ctx context.Context) ([]models.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Add stores rec, assigning an id and timestamp when absent. A record whose
// id is already stored is not added again; the stored copy is returned with
// created set to false.
func (r *Repository) Add(ctx context.Context, rec models.Feedback) (stored models.Feedback, created bool, count int, err error) {
	rec.Text = strings.TrimSpace(rec.Text)
	if rec.Text == "" {
		return models.Feedback{}, false, 0, errors.New(errors.ErrValidation, "text is required")
	}
	if rec.Rating < 1 || rec.Rating > 5 {
		return models.Feedback{}, false, 0, errors.Newf(errors.ErrValidation, "rating must be between 1 and 5, got %d", rec.Rating)
	}
	if _, ok := models.ParseCategory(string(rec.Category)); !ok {
		return models.Feedback{}, false, 0, errors.Newf(errors.ErrValidation, "unknown category %q", rec.Category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return models.Feedback{}, false, 0, err
	}

	if rec.ID != "" {
		for _, existing := range records {
			if existing.ID == rec.ID {
				return existing, false, len(records), nil
			}
		}
	} else {
		rec.ID = r.newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	rec.Normalize()

	records = append(records, rec)
	if err := localstore.SaveJSON(ctx, r.store, CollectionKey, records); err != nil {
		return models.Feedback{}, false, 0, err
	}
	return rec, true, len(records), nil
}

// Delete removes the record with id and returns it. An unknown id is an
// ErrNotFound error.
func (r *Repository) Delete(ctx context.Context, id string) (models.Feedback, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return models.Feedback{}, 0, err
	}

	idx := -1
	for i := range records {
		if records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Feedback{}, len(records), errors.Newf(errors.ErrNotFound, "feedback %s not found", id)
	}

	deleted := records[idx]
	records = append(records[:idx], records[idx+1:]...)
	if err := localstore.SaveJSON(ctx, r.store, CollectionKey, records); err != nil {
		return models.Feedback{}, 0, err
	}
	return deleted, len(records), nil
}

// Clear empties the collection and returns how many records it held.
func (r *Repository) Clear(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	if err := localstore.SaveJSON(ctx, r.store, CollectionKey, []models.Feedback{}); err != nil {
		return 0, err
	}
	return len(records), nil
}
