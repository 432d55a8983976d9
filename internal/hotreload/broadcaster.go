package hotreload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome is the terminal state of one pending reload
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeDropped  Outcome = "dropped"
	OutcomeFailed   Outcome = "failed"
)

// ReloadEvent tells dependants that a key finished the reload pipeline
type ReloadEvent struct {
	Key     string
	Path    string
	Outcome Outcome
	At      time.Time
}

// Listener represents a callback function for reload events
type Listener func(ctx context.Context, event ReloadEvent) error

// Broadcaster delivers reload events to named listeners.
// Listeners run synchronously on the caller's goroutine, in name order.
type Broadcaster struct {
	listeners map[string]Listener
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		listeners: make(map[string]Listener),
		logger:    logger,
	}
}

// AddListener adds a listener with a unique name
func (b *Broadcaster) AddListener(name string, listener Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.listeners[name]; exists {
		return fmt.Errorf("listener %s already exists", name)
	}

	b.listeners[name] = listener
	b.logger.Debug("Added event listener", zap.String("name", name))
	return nil
}

// RemoveListener removes a listener by name
func (b *Broadcaster) RemoveListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, name)
	b.logger.Debug("Removed event listener", zap.String("name", name))
}

// Broadcast sends an event to all registered listeners. Every listener runs
// even when an earlier one fails; failures are joined.
func (b *Broadcaster) Broadcast(ctx context.Context, event ReloadEvent) error {
	b.mu.RLock()
	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	listeners := make([]Listener, len(names))
	for i, name := range names {
		listeners[i] = b.listeners[name]
	}
	b.mu.RUnlock()

	var errs []error
	for i, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("listener %s failed: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

// Close removes all listeners
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = make(map[string]Listener)
	b.logger.Debug("Event broadcaster closed")
}

// ListenerCount returns the number of registered listeners
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// HasListener checks if a listener with the given name exists
func (b *Broadcaster) HasListener(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.listeners[name]
	return exists
}
