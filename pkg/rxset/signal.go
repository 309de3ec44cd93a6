package rxset

import "sync"

// Handler is a signal listener.
type Handler[T any] func(T)

// Subscription is a cancellable handle returned by Signal.Subscribe.
// Cancelling after dispatch has started but before delivery simply removes
// the listener; it does not interrupt an in-progress Activate.
type Subscription struct {
	id     uint64
	cancel func(uint64)
	once   sync.Once
}

// Cancel revokes the subscription. Calling Cancel more than once is a no-op.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s.id)
		}
	})
}

// Subscriber is the external (observer) view of a Signal: subscribe and
// unsubscribe, but not activate. SignalController hands this view out while
// keeping Activate private to the owner.
type Subscriber[T any] interface {
	Subscribe(Handler[T]) *Subscription
	Unsubscribe(*Subscription)
}

// Signal is a typed broadcast with cancellable subscriptions.
type Signal[T any] struct {
	mu       sync.Mutex
	handlers map[uint64]Handler[T]
	nextID   uint64
}

var _ Subscriber[struct{}] = (*Signal[struct{}])(nil)

// NewSignal creates an empty signal.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{handlers: make(map[uint64]Handler[T])}
}

// Subscribe registers handler and returns a Subscription that cancels it.
func (s *Signal[T]) Subscribe(handler Handler[T]) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers[id] = handler

	return &Subscription{id: id, cancel: s.remove}
}

// Unsubscribe cancels a previously returned subscription. It is equivalent
// to calling sub.Cancel().
func (s *Signal[T]) Unsubscribe(sub *Subscription) {
	sub.Cancel()
}

func (s *Signal[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
}

// Activate emits value to every currently subscribed handler. Handlers are
// snapshotted under the lock and invoked outside it, so a handler may
// subscribe or cancel other subscriptions without deadlocking.
func (s *Signal[T]) Activate(value T) {
	s.mu.Lock()
	snapshot := make([]Handler[T], 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.Unlock()

	for _, h := range snapshot {
		h(value)
	}
}

// Len returns the number of live subscriptions, mostly useful for tests.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// SignalController separates emission from observation: Activate is only
// reachable through the controller, while Signal() hands out a Subscriber
// view that cannot emit.
type SignalController[T any] struct {
	signal *Signal[T]
}

// NewSignalController creates a controller around a fresh signal.
func NewSignalController[T any]() *SignalController[T] {
	return &SignalController[T]{signal: NewSignal[T]()}
}

// Activate emits value on the underlying signal.
func (c *SignalController[T]) Activate(value T) { c.signal.Activate(value) }

// Signal returns the external, emit-less view of the controlled signal.
func (c *SignalController[T]) Signal() Subscriber[T] { return c.signal }
