package socket

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/hmbacher/genius-gateway/internal/logging"
	"go.uber.org/zap"
)

// Listener receives the data of every envelope dispatched for its event.
type Listener func(data any)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Registry maps event names to ordered listener lists and mirrors the first
// and last listener of every non-reserved event to the gateway as
// subscribe/unsubscribe control envelopes.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]listenerEntry

	mirror  func(Envelope)
	onPanic func(event string)
}

// NewRegistry creates a registry that hands control envelopes to mirror.
// A nil mirror disables mirroring.
func NewRegistry(mirror func(Envelope)) *Registry {
	if mirror == nil {
		mirror = func(Envelope) {}
	}
	return &Registry{
		topics: make(map[string][]listenerEntry),
		mirror: mirror,
	}
}

// On registers fn for event and returns a function removing exactly this
// registration. The first listener of a non-reserved event sends a
// subscribe envelope.
func (r *Registry) On(event string, fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	listeners, exists := r.topics[event]
	r.topics[event] = append(listeners, listenerEntry{id: id, fn: fn})
	if !exists && !IsReserved(event) {
		logging.Debug("Subscribing to event", zap.String("event", event))
		r.mirror(Envelope{Event: EventSubscribe, Data: event})
	}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(event, id) })
	}
}

// Off removes every listener of event.
func (r *Registry) Off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[event]; !ok {
		return
	}
	r.drop(event)
}

func (r *Registry) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listeners := r.topics[event]
	idx := slices.IndexFunc(listeners, func(l listenerEntry) bool { return l.id == id })
	if idx < 0 {
		return
	}
	listeners = slices.Delete(slices.Clone(listeners), idx, idx+1)
	if len(listeners) > 0 {
		r.topics[event] = listeners
		return
	}
	r.drop(event)
}

// drop discards the entry for event. Callers hold r.mu.
func (r *Registry) drop(event string) {
	delete(r.topics, event)
	if !IsReserved(event) {
		logging.Debug("Unsubscribing from event", zap.String("event", event))
		r.mirror(Envelope{Event: EventUnsubscribe, Data: event})
	}
}

// Len returns the number of listeners registered for event.
func (r *Registry) Len(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[event])
}

// Topics returns the sorted non-reserved events that currently have listeners.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveTopics()
}

// Replay runs publish and, if it reports true, mirrors a subscribe envelope
// for every live topic. No On or Off interleaves with the pair, so a topic
// is subscribed either by Replay or by its first On, never both.
func (r *Registry) Replay(publish func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !publish() {
		return false
	}
	for _, event := range r.liveTopics() {
		r.mirror(Envelope{Event: EventSubscribe, Data: event})
	}
	return true
}

// liveTopics returns the sorted non-reserved topics. Callers hold r.mu.
func (r *Registry) liveTopics() []string {
	topics := make([]string, 0, len(r.topics))
	for event := range r.topics {
		if !IsReserved(event) {
			topics = append(topics, event)
		}
	}
	sort.Strings(topics)
	return topics
}

// Dispatch invokes every listener of event with data, in registration order.
// Listeners registered or removed during dispatch do not affect the
// in-progress delivery. A panicking listener is logged and skipped.
func (r *Registry) Dispatch(event string, data any) int {
	r.mu.Lock()
	listeners := r.topics[event]
	r.mu.Unlock()

	// The slice is never mutated in place, so this is a stable snapshot.
	for _, l := range listeners {
		r.invoke(event, l.fn, data)
	}
	return len(listeners)
}

func (r *Registry) invoke(event string, fn Listener, data any) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Error in listener",
				zap.String("event", event),
				zap.String("panic", fmt.Sprint(rec)),
			)
			if r.onPanic != nil {
				r.onPanic(event)
			}
		}
	}()
	fn(data)
}
