package bus

import (
	"sync"
	"sync/atomic"
)

// subscription is a single registered listener.
type subscription[T any] struct {
	id uint64
	fn func(T)
}

// pending is a queued message together with the listeners registered at the
// time it was enqueued.
type pending[T any] struct {
	msg  T
	subs []*subscription[T]
}

// Bus is a synchronous multicast channel. Listeners are invoked in
// registration order on the goroutine that flushes the queue.
//
// Thread-safety: All methods are safe for concurrent use.
type Bus[T any] struct {
	mu       sync.Mutex
	subs     []*subscription[T] // copy-on-write, never mutated in place
	queue    []pending[T]
	draining bool
	nextID   uint64
	dropped  atomic.Uint64
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// --------------------------------------------------------------------------
// Subscription
// --------------------------------------------------------------------------

// Subscribe registers fn and returns a function that removes it again. The
// listener only receives messages enqueued after this call.
func (b *Bus[T]) Subscribe(fn func(T)) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	sub := &subscription[T]{id: b.nextID, fn: fn}
	subs := make([]*subscription[T], len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

// SubscribeChan registers a buffered channel tap. Messages that do not fit into
// the buffer are dropped and counted, see Dropped. Cancelling closes the channel.
func (b *Bus[T]) SubscribeChan(buffer int) (<-chan T, func()) {
	var (
		mu     sync.Mutex
		closed bool
		ch     = make(chan T, buffer)
	)

	cancelSub := b.Subscribe(func(msg T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- msg:
		default:
			b.dropped.Add(1)
		}
	})

	return ch, func() {
		cancelSub()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]*subscription[T], 0, len(b.subs))
	for _, s := range b.subs {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	b.subs = subs
}

// Subscribers returns the number of registered listeners.
func (b *Bus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many messages channel taps discarded because their buffer was full.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// --------------------------------------------------------------------------
// Publishing
// --------------------------------------------------------------------------

// Publish enqueues msg and delivers the queue.
func (b *Bus[T]) Publish(msg T) {
	b.Enqueue(msg)
	b.Flush()
}

// Enqueue appends msg to the delivery queue without delivering it. Callers
// that must fix the order of messages while holding their own lock enqueue
// under that lock and Flush after releasing it.
func (b *Bus[T]) Enqueue(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return
	}
	b.queue = append(b.queue, pending[T]{msg: msg, subs: b.subs})
}

// Flush delivers queued messages in order. If another goroutine (or an outer
// frame of the same goroutine) is already delivering, Flush returns at once and
// the active deliverer picks up the queued messages.
func (b *Bus[T]) Flush() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = pending[T]{}
		b.queue = b.queue[1:]
		b.mu.Unlock()

		for _, s := range next.subs {
			s.fn(next.msg)
		}

		b.mu.Lock()
	}

	b.queue = nil
	b.draining = false
	b.mu.Unlock()
}
