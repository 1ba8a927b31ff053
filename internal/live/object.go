// Package live provides the mutable, observable object the engine binds to a
// stored document.
//
// An Object is a goroutine-safe field map. Every mutation through Set emits
// an event on each active subscription, which is how the session layer keeps
// the backing store in sync without the caller ever issuing a save.
package live

import (
	"sync"
)

// Event is one observed mutation of an object.
type Event struct {
	Field string
	Value any
}

// Object is a live mutable field map bound to a stored document.
type Object struct {
	id string

	mu     sync.RWMutex
	fields map[string]any
	subs   []*Subscription
}

// New creates a live object from an initial field map. The map is copied;
// later changes to the argument do not affect the object.
func New(id string, fields map[string]any) *Object {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Object{id: id, fields: copied}
}

// ID returns the driver-assigned document id. It never changes.
func (o *Object) ID() string {
	return o.id
}

// Get returns the current value of a field, or nil if unset.
func (o *Object) Get(field string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[field]
}

// Set mutates a field and notifies every active subscription. Delivery is
// in-order per subscription but asynchronous with respect to persistence:
// the caller returns as soon as the event is queued.
func (o *Object) Set(field string, value any) {
	o.mu.Lock()
	o.fields[field] = value
	subs := make([]*Subscription, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	ev := Event{Field: field, Value: value}
	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// Snapshot returns a copy of the object's current top-level fields.
func (o *Object) Snapshot() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		out[k] = v
	}
	return out
}

// Watch opens a subscription to the object's mutation stream. A cancelled
// subscription cannot be restarted; open a new one instead.
func (o *Object) Watch() *Subscription {
	sub := newSubscription(o)
	o.mu.Lock()
	o.subs = append(o.subs, sub)
	o.mu.Unlock()
	return sub
}

// drop removes a cancelled subscription from the object.
func (o *Object) drop(sub *Subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s == sub {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			return
		}
	}
}
