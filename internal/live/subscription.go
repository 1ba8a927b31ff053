package live

import "sync"

// Subscription is an active binding to one object's mutation stream. It
// yields events in mutation order, is cancellable, and once cancelled never
// restarts.
type Subscription struct {
	obj *Object

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	events  chan Event
	once    sync.Once
}

func newSubscription(obj *Object) *Subscription {
	s := &Subscription{
		obj:    obj,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		events: make(chan Event),
	}
	go s.pump()
	return s
}

// Events returns the mutation stream. The channel is closed when the
// subscription is cancelled.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel tears the subscription down. Safe to call more than once; events
// not yet consumed are discarded.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.obj.drop(s)
	})
}

// deliver queues an event without ever blocking the mutating goroutine.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		queue := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, ev := range queue {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
