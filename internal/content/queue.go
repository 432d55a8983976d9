package content

import "sync"

// PendingReload is a prepared shadow and the generation of the record it
// was spawned for.
type PendingReload struct {
	Shadow     Resource
	Generation uint64
}

// PendingQueue hands prepared shadows from the watcher to the pump. It holds
// at most one shadow per key; a newer shadow replaces an unconsumed one.
type PendingQueue struct {
	mu      sync.Mutex
	entries map[Key]PendingReload
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{entries: make(map[Key]PendingReload)}
}

// Put stores shadow for key, tagged with the record generation it was
// prepared against, and returns the shadow it replaced, if any.
func (q *PendingQueue) Put(key Key, shadow Resource, gen uint64) Resource {
	q.mu.Lock()
	replaced := q.entries[key].Shadow
	q.entries[key] = PendingReload{Shadow: shadow, Generation: gen}
	q.mu.Unlock()
	return replaced
}

// Drain takes every pending shadow, leaving the queue empty.
func (q *PendingQueue) Drain() map[Key]PendingReload {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return nil
	}
	out := q.entries
	q.entries = make(map[Key]PendingReload, len(out))
	q.mu.Unlock()
	return out
}

// Len returns the number of pending shadows.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ForcedQueue collects out-of-band reload requests from any goroutine.
type ForcedQueue struct {
	mu   sync.Mutex
	keys []Key
	wake chan struct{}
}

// NewForcedQueue creates an empty queue.
func NewForcedQueue() *ForcedQueue {
	return &ForcedQueue{wake: make(chan struct{}, 1)}
}

// Request appends keys and wakes the watcher.
func (q *ForcedQueue) Request(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	q.mu.Lock()
	q.keys = append(q.keys, keys...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Drain returns the requested keys in order with duplicates removed.
func (q *ForcedQueue) Drain() []Key {
	q.mu.Lock()
	keys := q.keys
	q.keys = nil
	q.mu.Unlock()

	if len(keys) < 2 {
		return keys
	}
	seen := make(map[Key]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Wake is signalled after each Request.
func (q *ForcedQueue) Wake() <-chan struct{} {
	return q.wake
}
