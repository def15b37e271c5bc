// Package queue provides the persisted outbox of writes made while offline.
// Entries replay in FIFO order with exponential backoff between retries.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/uuid"
)

// Options configures an Outbox. Zero values take the defaults below.
type Options struct {
	Key         string
	MaxSize     int
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Now         func() time.Time
	NewID       uuid.Generator
}

// Defaults.
const (
	DefaultMaxSize     = 1000
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = 5 * time.Second
	DefaultMaxBackoff  = 5 * time.Minute
)

func (o *Options) applyDefaults() {
	if o.Key == "" {
		o.Key = localstore.KeyPending
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.New
	}
}

// Stats counts outbox entries by status.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// Outbox is an ordered list of PendingOps mirrored to a local store. Every
// mutation is persisted before it becomes visible; a failed write leaves
// the outbox unchanged.
type Outbox struct {
	store localstore.Store
	opts  Options

	mu    sync.RWMutex
	items []models.PendingOp
}

// New creates an empty Outbox persisting to store. Call Load to restore a
// previously persisted outbox.
func New(store localstore.Store, opts Options) *Outbox {
	opts.applyDefaults()
	return &Outbox{store: store, opts: opts}
}

// Load replaces the in-memory entries with the persisted ones. A missing key
// yields an empty outbox.
func (q *Outbox) Load(ctx context.Context) error {
	var items []models.PendingOp
	if _, err := localstore.LoadJSON(ctx, q.store, q.opts.Key, &items); err != nil {
		return err
	}
	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	return nil
}

// commit persists next and installs it. Callers hold q.mu.
func (q *Outbox) commit(ctx context.Context, next []models.PendingOp) error {
	var err error
	if len(next) == 0 {
		err = q.store.Remove(ctx, q.opts.Key)
		if err != nil {
			err = errors.Wrap(errors.ErrLocalStore, "failed to erase outbox", err)
		}
	} else {
		err = localstore.SaveJSON(ctx, q.store, q.opts.Key, next)
	}
	if err != nil {
		return err
	}
	q.items = next
	return nil
}

func (q *Outbox) enqueue(ctx context.Context, op models.PendingOp) (models.PendingOp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.opts.MaxSize {
		return models.PendingOp{}, errors.Newf(errors.ErrQueueFull, "outbox is full (max size: %d)", q.opts.MaxSize)
	}

	now := q.opts.Now().Unix()
	op.ID = q.opts.NewID()
	op.MaxRetries = q.opts.MaxRetries
	op.NextRetryAt = now
	op.Status = models.PendingStatusPending
	op.CreatedAt = now
	op.UpdatedAt = now

	next := append(q.snapshot(), op)
	if err := q.commit(ctx, next); err != nil {
		return models.PendingOp{}, err
	}

	logging.Debug("Outbox entry enqueued", map[string]interface{}{
		"op_id":     op.ID,
		"kind":      op.Kind,
		"record_id": op.RecordID,
	})
	return op, nil
}

// EnqueueAdd buffers the upload of rec.
func (q *Outbox) EnqueueAdd(ctx context.Context, rec models.Feedback) (models.PendingOp, error) {
	r := rec
	return q.enqueue(ctx, models.PendingOp{Kind: models.PendingAdd, RecordID: rec.ID, Record: &r})
}

// EnqueueDelete buffers the remote deletion of recordID.
func (q *Outbox) EnqueueDelete(ctx context.Context, recordID string) (models.PendingOp, error) {
	return q.enqueue(ctx, models.PendingOp{Kind: models.PendingDelete, RecordID: recordID})
}

// HasAdd reports whether an add for recordID is still buffered.
func (q *Outbox) HasAdd(recordID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for i := range q.items {
		if q.items[i].Kind == models.PendingAdd && q.items[i].RecordID == recordID {
			return true
		}
	}
	return false
}

// DropAdd removes a buffered add for recordID so a record created and
// deleted while offline never reaches the remote. It reports whether an
// entry was removed.
func (q *Outbox) DropAdd(ctx context.Context, recordID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := make([]models.PendingOp, 0, len(q.items))
	dropped := false
	for _, op := range q.items {
		if op.Kind == models.PendingAdd && op.RecordID == recordID {
			dropped = true
			continue
		}
		next = append(next, op)
	}
	if !dropped {
		return false, nil
	}
	if err := q.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Ready returns, in FIFO order, the pending entries whose retry time has
// come.
func (q *Outbox) Ready() []models.PendingOp {
	q.mu.RLock()
	defer q.mu.RUnlock()

	now := q.opts.Now().Unix()
	var ready []models.PendingOp
	for _, op := range q.items {
		if op.Status == models.PendingStatusPending && op.NextRetryAt <= now {
			ready = append(ready, copyOp(op))
		}
	}
	return ready
}

// Complete removes an acknowledged entry.
func (q *Outbox) Complete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return errors.Newf(errors.ErrNotFound, "outbox entry %s not found", id)
	}
	next := append(q.snapshot()[:idx:idx], q.items[idx+1:]...)
	return q.commit(ctx, next)
}

// Failed records a failed replay and schedules the next retry. Once the
// entry reaches its retry limit it is marked failed and kept; permanent
// reports that transition.
func (q *Outbox) Failed(ctx context.Context, id string, cause error) (permanent bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return false, errors.Newf(errors.ErrNotFound, "outbox entry %s not found", id)
	}

	next := q.snapshot()
	op := &next[idx]
	now := q.opts.Now()
	op.RetryCount++
	op.LastError = cause.Error()
	op.UpdatedAt = now.Unix()

	if op.RetryCount >= op.MaxRetries {
		op.Status = models.PendingStatusFailed
		permanent = true
	} else {
		op.Status = models.PendingStatusPending
		op.NextRetryAt = now.Add(q.backoff(op.RetryCount)).Unix()
	}

	if err := q.commit(ctx, next); err != nil {
		return false, err
	}

	ctxMap := map[string]interface{}{
		"op_id":       id,
		"kind":        op.Kind,
		"retry_count": op.RetryCount,
		"max_retries": op.MaxRetries,
	}
	if permanent {
		logging.Error("Outbox entry failed permanently", cause, ctxMap)
	} else {
		logging.Warn("Outbox entry failed, will retry", ctxMap)
	}
	return permanent, nil
}

// backoff returns 2^retry * base, capped at max.
func (q *Outbox) backoff(retryCount int) time.Duration {
	if retryCount > 30 {
		return q.opts.MaxBackoff
	}
	d := q.opts.BaseBackoff << uint(retryCount)
	if d > q.opts.MaxBackoff || d <= 0 {
		d = q.opts.MaxBackoff
	}
	return d
}

// RetryAll resets failed and backed-off entries so the next drain attempts
// them immediately. It returns the number of entries reset.
func (q *Outbox) RetryAll(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.opts.Now().Unix()
	next := q.snapshot()
	count := 0
	for i := range next {
		op := &next[i]
		if op.Status == models.PendingStatusFailed || op.NextRetryAt > now {
			op.Status = models.PendingStatusPending
			op.RetryCount = 0
			op.NextRetryAt = now
			op.LastError = ""
			op.UpdatedAt = now
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := q.commit(ctx, next); err != nil {
		return 0, err
	}
	logging.Info("Outbox entries reset for retry", map[string]interface{}{"count": count})
	return count, nil
}

// Clear discards every entry and erases the persisted outbox.
func (q *Outbox) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.commit(ctx, nil)
}

// List returns copies of all entries in FIFO order.
func (q *Outbox) List() []models.PendingOp {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]models.PendingOp, len(q.items))
	for i := range q.items {
		out[i] = copyOp(q.items[i])
	}
	return out
}

// Len returns the number of entries.
func (q *Outbox) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Stats returns entry counts by status.
func (q *Outbox) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var s Stats
	for _, op := range q.items {
		s.Total++
		switch op.Status {
		case models.PendingStatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}

func (q *Outbox) indexOf(id string) int {
	for i := range q.items {
		if q.items[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshot copies the entry slice so commit can swap it in atomically.
func (q *Outbox) snapshot() []models.PendingOp {
	out := make([]models.PendingOp, len(q.items))
	copy(out, q.items)
	return out
}

func copyOp(op models.PendingOp) models.PendingOp {
	if op.Record != nil {
		r := *op.Record
		op.Record = &r
	}
	return op
}
