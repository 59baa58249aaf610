package server

import (
	"context"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"
)

// hub fans a single update stream out to any number of websocket clients. Each
// subscriber gets a one-slot buffer holding the latest update; a slow subscriber
// simply misses intervening updates, which is fine for idempotent updates.
type hub[T any] struct {
	mu          sync.Mutex
	subscribers map[chan T]struct{}
	last        *T
	closed      bool
}

func newHub[T any]() *hub[T] {
	return &hub[T]{
		subscribers: map[chan T]struct{}{},
	}
}

// run relays the source until it closes or ctx is done, then closes every subscriber.
func (h *hub[T]) run(ctx context.Context, source <-chan T) {
	defer h.close()
	for update := range channerics.OrDone(ctx.Done(), source) {
		h.broadcast(update)
	}
}

func (h *hub[T]) broadcast(update T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &update
	for sub := range h.subscribers {
		offer(sub, update)
	}
}

// offer replaces whatever the subscriber has not consumed yet with the update.
func offer[T any](sub chan T, update T) {
	select {
	case <-sub:
	default:
	}
	select {
	case sub <- update:
	default:
	}
}

// subscribe returns a channel primed with the latest update, if any.
func (h *hub[T]) subscribe() <-chan T {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := make(chan T, 1)
	if h.closed {
		if h.last != nil {
			sub <- *h.last
		}
		close(sub)
		return sub
	}
	if h.last != nil {
		sub <- *h.last
	}
	h.subscribers[sub] = struct{}{}
	return sub
}

func (h *hub[T]) unsubscribe(sub <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		if ch == sub {
			delete(h.subscribers, ch)
			return
		}
	}
}

func (h *hub[T]) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subscribers {
		close(sub)
		delete(h.subscribers, sub)
	}
}
