package sync

import (
	"context"
	"sync"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/feedback"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/stats"
	"github.com/kimhsiao/feedbacksync/internal/sync/queue"
	"github.com/kimhsiao/feedbacksync/internal/sync/reconcile"
	"github.com/kimhsiao/feedbacksync/internal/uuid"
)

// Config holds engine configuration. Start from DefaultConfig.
type Config struct {
	// OperationTimeout bounds each remote list/add/delete/clear call.
	OperationTimeout time.Duration
	// ProbeTimeout bounds the reachability probe.
	ProbeTimeout time.Duration
	// Backoff gates re-probing before offline writes.
	Backoff BackoffConfig
	// Divergence selects how Resync detects remote changes.
	Divergence reconcile.Strategy
	// CollectionKey is the local store key of the cached collection.
	CollectionKey string
	// Outbox configures the pending-write outbox.
	Outbox queue.Options

	Now   func() time.Time
	NewID uuid.Generator
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		OperationTimeout: 10 * time.Second,
		ProbeTimeout:     5 * time.Second,
		Backoff:          DefaultBackoffConfig(),
		Divergence:       reconcile.StrategyIDSet,
		CollectionKey:    localstore.KeyFeedbacks,
		Now:              time.Now,
		NewID:            uuid.New,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = def.OperationTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.CollectionKey == "" {
		c.CollectionKey = def.CollectionKey
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.NewID == nil {
		c.NewID = def.NewID
	}
	if c.Outbox.Now == nil {
		c.Outbox.Now = c.Now
	}
}

// Status is a snapshot of the engine state.
type Status struct {
	Online        bool       `json:"online"`
	Records       int        `json:"records"`
	Pending       int        `json:"pending"`
	Failed        int        `json:"failed"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	ProbeFailures int        `json:"probe_failures"`
}

// DrainResult summarises one pass over the outbox.
type DrainResult struct {
	Attempted int `json:"attempted"`
	Pushed    int `json:"pushed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// Engine owns the in-memory feedback collection and keeps it reconciled
// with the remote service, falling back to the local store while the
// service is unreachable.
//
// Operations are serialised by opMu in issue order; readable state sits
// behind mu so reads never wait on network I/O. Events are delivered after
// both locks are released.
type Engine struct {
	remote   Remote
	store    localstore.Store
	outbox   *queue.Outbox
	detector *reconcile.Detector
	builder  *feedback.Builder
	reprobe  *Backoff
	cfg      Config

	opMu     sync.Mutex
	outgoing []Event

	mu       sync.RWMutex
	records  []models.Feedback
	online   bool
	lastSync time.Time
	lastErr  string

	subsMu  sync.RWMutex
	subs    map[SubscriptionID]Handler
	nextSub int
}

// New creates an Engine. Call Bootstrap before anything else.
func New(remote Remote, store localstore.Store, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		remote:   remote,
		store:    store,
		outbox:   queue.New(store, cfg.Outbox),
		detector: reconcile.NewDetector(cfg.Divergence),
		builder:  &feedback.Builder{NewID: cfg.NewID, Now: cfg.Now},
		reprobe:  NewBackoff(cfg.Backoff),
		cfg:      cfg,
		records:  []models.Feedback{},
		subs:     make(map[SubscriptionID]Handler),
	}
}

// run executes fn as one serialised operation and then delivers the events
// it queued.
func (e *Engine) run(fn func()) {
	var events []Event
	func() {
		e.opMu.Lock()
		defer e.opMu.Unlock()
		defer func() {
			events = e.outgoing
			e.outgoing = nil
		}()
		fn()
	}()
	e.dispatch(events)
}

// =====================================================
// Operations
// =====================================================

// Bootstrap establishes the initial collection. When the service answers,
// the remote collection is adopted, buffered writes are drained and the
// result refetched; otherwise the engine starts offline from the local
// store (empty when nothing usable is stored). It only fails on a
// cancelled context.
func (e *Engine) Bootstrap(ctx context.Context) error {
	e.run(func() {
		if err := e.outbox.Load(ctx); err != nil {
			logging.Error("Failed to load outbox, starting empty", err, nil)
		}

		err := e.probe(ctx)
		if err == nil {
			var list []models.Feedback
			if list, err = e.fetch(ctx); err == nil {
				e.setOnline(true)
				e.reprobe.Reset()
				e.adoptRemote(ctx, list)
				if e.outbox.Len() > 0 {
					e.drainAndRefresh(ctx)
				}
				logging.Info("Bootstrapped from remote", map[string]interface{}{
					"records": e.count(),
					"pending": e.outbox.Len(),
				})
				return
			}
		}

		e.recordErr(err)
		e.reprobe.Failure(e.cfg.Now())
		e.setOnline(false)
		e.loadLocal(ctx)
		logging.Info("Bootstrapped offline from local store", map[string]interface{}{
			"records": e.count(),
			"pending": e.outbox.Len(),
			"reason":  err.Error(),
		})
	})
	return ctx.Err()
}

// CheckConnectivity probes the service and updates the online state. A
// probe that brings the engine back online also drains the outbox and
// refetches. It never fails.
func (e *Engine) CheckConnectivity(ctx context.Context) bool {
	var online bool
	e.run(func() {
		if e.IsOnline() {
			if err := e.probe(ctx); err != nil {
				e.goOffline(err)
			}
		} else {
			e.reconnectLocked(ctx)
		}
		online = e.IsOnline()
	})
	return online
}

// Reconnect probes the service and, on success, drains the outbox and
// adopts the remote collection. It returns the probe or fetch failure.
func (e *Engine) Reconnect(ctx context.Context) error {
	var err error
	e.run(func() {
		err = e.reconnectLocked(ctx)
	})
	return err
}

// Submit validates d, builds the record and stores it: remotely when
// online, otherwise in the local store with an outbox entry so the next
// drain uploads it. A validation failure or a failed local write returns
// an error and leaves the collection unchanged.
func (e *Engine) Submit(ctx context.Context, d models.Draft) (models.Feedback, error) {
	var rec models.Feedback
	var opErr error
	e.run(func() {
		if rec, opErr = e.builder.Build(d); opErr != nil {
			return
		}
		e.ensureOnline(ctx)
		if e.IsOnline() {
			err := e.call(ctx, e.cfg.OperationTimeout, func(ctx context.Context) error {
				_, err := e.remote.Add(ctx, rec)
				return err
			})
			if err == nil {
				e.refreshAfterWrite(ctx, func() {
					// The service has the record; cache it locally.
					e.install(ctx, append(e.snapshot(), rec), true)
				})
				return
			}
			if errors.Is(err, errors.ErrUnauthorized) {
				e.recordErr(err)
				opErr = err
				return
			}
			e.goOffline(err)
		}
		opErr = e.submitLocal(ctx, rec)
	})
	if opErr != nil {
		return models.Feedback{}, opErr
	}
	return rec, nil
}

// Remove deletes the record with id. Removing an absent id succeeds.
func (e *Engine) Remove(ctx context.Context, id string) error {
	var opErr error
	e.run(func() {
		e.ensureOnline(ctx)
		if e.IsOnline() {
			err := e.call(ctx, e.cfg.OperationTimeout, func(ctx context.Context) error {
				return e.remote.Delete(ctx, id)
			})
			if err == nil {
				if _, err := e.outbox.DropAdd(ctx, id); err != nil {
					logging.Error("Failed to drop buffered add", err, map[string]interface{}{"record_id": id})
				}
				e.refreshAfterWrite(ctx, func() {
					e.install(ctx, without(e.snapshot(), id), true)
				})
				return
			}
			if errors.Is(err, errors.ErrUnauthorized) {
				e.recordErr(err)
				opErr = err
				return
			}
			e.goOffline(err)
		}
		opErr = e.removeLocal(ctx, id)
	})
	return opErr
}

// Clear empties the collection. Offline, the local copy and the outbox are
// discarded and nothing is sent to the service later. The collection is
// empty afterwards unless the service refused the credentials; a failure to
// erase the local copy is reported.
func (e *Engine) Clear(ctx context.Context) error {
	var opErr error
	e.run(func() {
		e.ensureOnline(ctx)
		if e.IsOnline() {
			err := e.call(ctx, e.cfg.OperationTimeout, func(ctx context.Context) error {
				_, err := e.remote.Clear(ctx)
				return err
			})
			if err == nil {
				if err := e.outbox.Clear(ctx); err != nil {
					logging.Error("Failed to discard outbox", err, nil)
				}
				e.install(ctx, nil, false)
				if err := e.store.Remove(ctx, e.cfg.CollectionKey); err != nil {
					logging.Error("Failed to erase local collection", err, nil)
				}
				e.markSynced()
				return
			}
			if errors.Is(err, errors.ErrUnauthorized) {
				e.recordErr(err)
				opErr = err
				return
			}
			e.goOffline(err)
		}

		e.install(ctx, nil, false)
		if err := e.outbox.Clear(ctx); err != nil {
			opErr = err
		}
		if err := e.store.Remove(ctx, e.cfg.CollectionKey); err != nil {
			opErr = errors.Wrap(errors.ErrLocalStore, "failed to erase local collection", err)
		}
		if opErr != nil {
			logging.Error("Offline clear not fully persisted", opErr, nil)
		}
	})
	return opErr
}

// Resync refetches the remote collection while online and adopts it when
// the divergence detector reports a difference. Ready outbox entries are
// drained first. A failed fetch takes the engine offline; resyncs then do
// nothing until a probe succeeds. changed reports whether the collection
// was replaced.
func (e *Engine) Resync(ctx context.Context) (changed bool, err error) {
	e.run(func() {
		if !e.IsOnline() {
			return
		}
		if len(e.outbox.Ready()) > 0 {
			e.drainLocked(ctx)
			if !e.IsOnline() {
				err = errors.New(errors.ErrRemoteUnavailable, "remote lost during drain")
				return
			}
		}

		list, ferr := e.fetch(ctx)
		if ferr != nil {
			e.goOffline(ferr)
			err = ferr
			return
		}
		remote := e.overlay(list)
		e.markSynced()
		if e.detector.Diverged(e.snapshot(), remote) {
			e.install(ctx, remote, true)
			changed = true
		}
	})
	return changed, err
}

// Drain pushes ready outbox entries in FIFO order. Each acknowledged entry
// is removed at once; a rejected entry stays buffered with backoff and is
// marked failed, never dropped, after its retry limit. An unreachable
// service stops the pass and takes the engine offline.
func (e *Engine) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	var err error
	e.run(func() {
		if !e.IsOnline() {
			res.Remaining = e.outbox.Len()
			err = errors.New(errors.ErrRemoteUnavailable, "engine is offline")
			return
		}
		res, err = e.drainAndRefresh(ctx)
	})
	return res, err
}

// RetryFailed makes failed and backed-off outbox entries ready again and,
// when online, drains them. It returns the number of entries reset.
func (e *Engine) RetryFailed(ctx context.Context) (int, error) {
	var n int
	var err error
	e.run(func() {
		if n, err = e.outbox.RetryAll(ctx); err != nil || n == 0 {
			return
		}
		if e.IsOnline() {
			_, err = e.drainAndRefresh(ctx)
		}
	})
	return n, err
}

// ReloadLocal rereads the collection and outbox from the local store while
// offline, picking up writes made by another process sharing the store.
// It is a no-op while online.
func (e *Engine) ReloadLocal(ctx context.Context) {
	e.run(func() {
		if e.IsOnline() {
			return
		}
		if err := e.outbox.Load(ctx); err != nil {
			logging.Error("Failed to reload outbox", err, nil)
		}
		e.loadLocal(ctx)
	})
}

// =====================================================
// Reads
// =====================================================

// Feedbacks returns a copy of the collection in order.
func (e *Engine) Feedbacks() []models.Feedback {
	return e.snapshot()
}

// Recent returns up to n of the most recently added records, newest first.
func (e *Engine) Recent(n int) []models.Feedback {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n > len(e.records) {
		n = len(e.records)
	}
	if n <= 0 {
		return []models.Feedback{}
	}
	out := make([]models.Feedback, 0, n)
	for i := len(e.records) - 1; i >= len(e.records)-n; i-- {
		out = append(out, e.records[i])
	}
	return out
}

// Stats projects the current collection.
func (e *Engine) Stats() stats.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return stats.Project(e.records)
}

// IsOnline reports whether the service is currently the source of truth.
func (e *Engine) IsOnline() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.online
}

// PendingOps returns the buffered writes in FIFO order.
func (e *Engine) PendingOps() []models.PendingOp {
	return e.outbox.List()
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.RLock()
	s := Status{
		Online:    e.online,
		Records:   len(e.records),
		LastError: e.lastErr,
	}
	if !e.lastSync.IsZero() {
		t := e.lastSync
		s.LastSync = &t
	}
	e.mu.RUnlock()

	qs := e.outbox.Stats()
	s.Pending = qs.Pending
	s.Failed = qs.Failed
	s.ProbeFailures = e.reprobe.Attempts()
	return s
}

// =====================================================
// Internals (callers hold opMu)
// =====================================================

// call runs fn bounded by timeout. A call cut short by the timeout is a
// connectivity failure even when fn returns an uncoded error.
func (e *Engine) call(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil &&
		!errors.Is(err, errors.ErrRemoteUnavailable) {
		return errors.Wrap(errors.ErrSyncTimeout, "remote call timed out", err)
	}
	return err
}

func (e *Engine) probe(ctx context.Context) error {
	return e.call(ctx, e.cfg.ProbeTimeout, e.remote.Ping)
}

func (e *Engine) fetch(ctx context.Context) ([]models.Feedback, error) {
	var list []models.Feedback
	err := e.call(ctx, e.cfg.OperationTimeout, func(ctx context.Context) error {
		var err error
		list, err = e.remote.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

// ensureOnline re-probes before an offline write when the backoff allows.
func (e *Engine) ensureOnline(ctx context.Context) {
	if e.IsOnline() || !e.reprobe.Allow(e.cfg.Now()) {
		return
	}
	e.reconnectLocked(ctx)
}

func (e *Engine) reconnectLocked(ctx context.Context) error {
	if err := e.probe(ctx); err != nil {
		next := e.reprobe.Failure(e.cfg.Now())
		e.setOnline(false)
		e.recordErr(err)
		logging.Debug("Remote still unreachable", map[string]interface{}{
			"next_probe_in": next.String(),
			"error":         err.Error(),
		})
		return err
	}

	e.reprobe.Reset()
	e.setOnline(true)
	if e.outbox.Len() > 0 {
		e.drainLocked(ctx)
		if !e.IsOnline() {
			return errors.New(errors.ErrRemoteUnavailable, "remote lost during drain")
		}
	}

	list, err := e.fetch(ctx)
	if err != nil {
		e.goOffline(err)
		return err
	}
	e.adoptRemote(ctx, list)
	return nil
}

// drainAndRefresh drains and, if anything reached the service, adopts the
// refetched remote collection.
func (e *Engine) drainAndRefresh(ctx context.Context) (DrainResult, error) {
	res, err := e.drainLocked(ctx)
	if res.Pushed > 0 && e.IsOnline() {
		list, ferr := e.fetch(ctx)
		if ferr != nil {
			e.goOffline(ferr)
			return res, ferr
		}
		e.adoptRemote(ctx, list)
	}
	return res, err
}

func (e *Engine) drainLocked(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	var drainErr error

	for _, op := range e.outbox.Ready() {
		if err := ctx.Err(); err != nil {
			drainErr = err
			break
		}
		res.Attempted++

		err := e.replay(ctx, op)
		if err == nil {
			if err := e.outbox.Complete(ctx, op.ID); err != nil {
				// Stays buffered; the service treats the replay as a no-op.
				logging.Error("Failed to remove drained entry", err, map[string]interface{}{"op_id": op.ID})
			}
			res.Pushed++
			continue
		}

		if errors.Is(err, errors.ErrUnauthorized) {
			e.recordErr(err)
			drainErr = err
			break
		}
		if !rejected(err) {
			e.goOffline(err)
			drainErr = err
			break
		}

		if _, ferr := e.outbox.Failed(ctx, op.ID, err); ferr != nil {
			logging.Error("Failed to record drain failure", ferr, map[string]interface{}{"op_id": op.ID})
		}
		res.Failed++
		if drainErr == nil {
			drainErr = errors.Wrap(errors.ErrSyncFailed, "outbox entries were rejected", err)
		}
	}

	res.Remaining = e.outbox.Len()
	if res.Attempted > 0 {
		r := res
		e.queueEvent(Event{Type: EventDrainCompleted, Online: e.IsOnline(), Count: e.count(), Drain: &r})
		logging.Info("Outbox drained", map[string]interface{}{
			"attempted": res.Attempted,
			"pushed":    res.Pushed,
			"failed":    res.Failed,
			"remaining": res.Remaining,
		})
	}
	return res, drainErr
}

func (e *Engine) replay(ctx context.Context, op models.PendingOp) error {
	return e.call(ctx, e.cfg.OperationTimeout, func(ctx context.Context) error {
		switch op.Kind {
		case models.PendingAdd:
			if op.Record == nil {
				return errors.Newf(errors.ErrInvalid, "outbox entry %s has no record", op.ID)
			}
			_, err := e.remote.Add(ctx, *op.Record)
			return err
		case models.PendingDelete:
			return e.remote.Delete(ctx, op.RecordID)
		default:
			return errors.Newf(errors.ErrInvalid, "unknown outbox entry kind %q", op.Kind)
		}
	})
}

// rejected reports failures the service answered deliberately. Anything
// else is treated as lost connectivity.
func rejected(err error) bool {
	return errors.Is(err, errors.ErrRemoteRejected) ||
		errors.Is(err, errors.ErrNotFound) ||
		errors.Is(err, errors.ErrInvalid)
}

// refreshAfterWrite adopts the remote collection after a successful remote
// write. If the refetch fails the engine goes offline and fallback applies
// the write to the cached copy instead.
func (e *Engine) refreshAfterWrite(ctx context.Context, fallback func()) {
	list, err := e.fetch(ctx)
	if err != nil {
		e.goOffline(err)
		fallback()
		return
	}
	e.adoptRemote(ctx, list)
}

func (e *Engine) submitLocal(ctx context.Context, rec models.Feedback) error {
	prev := e.snapshot()
	next := append(models.Clone(prev), rec)

	if err := localstore.SaveJSON(ctx, e.store, e.cfg.CollectionKey, next); err != nil {
		return err
	}
	if _, err := e.outbox.EnqueueAdd(ctx, rec); err != nil {
		e.restoreLocal(ctx, prev)
		return err
	}
	e.install(ctx, next, false)
	logging.Info("Feedback buffered offline", map[string]interface{}{
		"record_id": rec.ID,
		"pending":   e.outbox.Len(),
	})
	return nil
}

func (e *Engine) removeLocal(ctx context.Context, id string) error {
	prev := e.snapshot()
	next := without(prev, id)
	if len(next) == len(prev) {
		return nil
	}

	if err := localstore.SaveJSON(ctx, e.store, e.cfg.CollectionKey, next); err != nil {
		return err
	}

	var err error
	if e.outbox.HasAdd(id) {
		// Never reached the service; forget it entirely.
		_, err = e.outbox.DropAdd(ctx, id)
	} else {
		_, err = e.outbox.EnqueueDelete(ctx, id)
	}
	if err != nil {
		e.restoreLocal(ctx, prev)
		return err
	}
	e.install(ctx, next, false)
	return nil
}

func (e *Engine) restoreLocal(ctx context.Context, prev []models.Feedback) {
	if err := localstore.SaveJSON(ctx, e.store, e.cfg.CollectionKey, prev); err != nil {
		logging.Error("Failed to restore local collection", err, nil)
	}
}

func (e *Engine) loadLocal(ctx context.Context) {
	var records []models.Feedback
	if _, err := localstore.LoadJSON(ctx, e.store, e.cfg.CollectionKey, &records); err != nil {
		logging.Error("Failed to load local collection, starting empty", err, nil)
		records = nil
	}
	for i := range records {
		records[i].Normalize()
	}
	e.install(ctx, records, false)
}

// overlay applies buffered writes to a fetched remote collection so records
// created offline stay visible until they are drained.
func (e *Engine) overlay(list []models.Feedback) []models.Feedback {
	pending := e.outbox.List()
	if len(pending) == 0 {
		return list
	}

	deleted := make(map[string]bool)
	for _, op := range pending {
		if op.Kind == models.PendingDelete {
			deleted[op.RecordID] = true
		}
	}
	present := make(map[string]bool, len(list))
	out := make([]models.Feedback, 0, len(list))
	for _, r := range list {
		present[r.ID] = true
		if !deleted[r.ID] {
			out = append(out, r)
		}
	}
	for _, op := range pending {
		if op.Kind == models.PendingAdd && op.Record != nil && !present[op.RecordID] && !deleted[op.RecordID] {
			out = append(out, *op.Record)
			present[op.RecordID] = true
		}
	}
	return out
}

// adoptRemote installs the remote collection and writes it through to the
// local store.
func (e *Engine) adoptRemote(ctx context.Context, list []models.Feedback) {
	e.install(ctx, e.overlay(list), true)
	e.markSynced()
}

// install replaces the collection and queues a change event. With persist
// set the collection is also written to the local store; failures are only
// logged because the service holds the data.
func (e *Engine) install(ctx context.Context, records []models.Feedback, persist bool) {
	next := models.Clone(records)

	e.mu.Lock()
	e.records = next
	online := e.online
	e.mu.Unlock()

	e.queueEvent(Event{Type: EventCollectionChanged, Online: online, Count: len(next)})

	if persist {
		if err := localstore.SaveJSON(ctx, e.store, e.cfg.CollectionKey, next); err != nil {
			logging.Error("Failed to refresh local cache", err, nil)
		}
	}
}

func (e *Engine) setOnline(online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	count := len(e.records)
	e.mu.Unlock()

	if !changed {
		return
	}
	e.queueEvent(Event{Type: EventConnectivityChanged, Online: online, Count: count})
	logging.Info("Connectivity changed", map[string]interface{}{"online": online})
}

func (e *Engine) goOffline(cause error) {
	e.recordErr(cause)
	e.reprobe.Failure(e.cfg.Now())
	if e.IsOnline() {
		logging.Warn("Remote failure, switching to offline mode", map[string]interface{}{
			"error": cause.Error(),
			"code":  errors.CodeOf(cause),
		})
	}
	e.setOnline(false)
}

func (e *Engine) recordErr(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
}

func (e *Engine) markSynced() {
	e.mu.Lock()
	e.lastSync = e.cfg.Now()
	e.lastErr = ""
	e.mu.Unlock()
}

func (e *Engine) snapshot() []models.Feedback {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.Clone(e.records)
}

func (e *Engine) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

func without(records []models.Feedback, id string) []models.Feedback {
	out := make([]models.Feedback, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
