package sync

import (
	"time"

	"github.com/kimhsiao/feedbacksync/internal/logging"
)

// EventType names an engine notification.
type EventType string

const (
	EventCollectionChanged   EventType = "collection.changed"
	EventConnectivityChanged EventType = "connectivity.changed"
	EventDrainCompleted      EventType = "drain.completed"
)

// Event is delivered to subscribers after the engine state has changed.
type Event struct {
	Type      EventType
	Online    bool
	Count     int
	Drain     *DrainResult
	Timestamp time.Time
}

// Handler receives engine events. Handlers run on the goroutine that
// finished the operation, after every engine lock is released, so they may
// call back into the engine.
type Handler func(Event)

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID int

// Subscribe registers h for all future events.
func (e *Engine) Subscribe(h Handler) SubscriptionID {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	e.nextSub++
	id := SubscriptionID(e.nextSub)
	e.subs[id] = h
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (e *Engine) Unsubscribe(id SubscriptionID) {
	e.subsMu.Lock()
	delete(e.subs, id)
	e.subsMu.Unlock()
}

// queue records an event for delivery once the running operation ends.
// Callers hold opMu.
func (e *Engine) queueEvent(ev Event) {
	ev.Timestamp = e.cfg.Now()
	e.outgoing = append(e.outgoing, ev)
}

func (e *Engine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	e.subsMu.RLock()
	handlers := make([]Handler, 0, len(e.subs))
	for _, h := range e.subs {
		handlers = append(handlers, h)
	}
	e.subsMu.RUnlock()

	for _, ev := range events {
		for _, h := range handlers {
			e.safeCall(h, ev)
		}
	}
}

func (e *Engine) safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Event handler panicked", map[string]interface{}{
				"event": ev.Type,
				"panic": r,
			})
		}
	}()
	h(ev)
}
