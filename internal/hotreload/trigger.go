package hotreload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// Trigger produces "something may have changed" wake-ups for the content
// watcher loop. Wake-ups carry no payload; the loop re-diffs the tree.
type Trigger interface {
	// Start establishes the underlying source. A failure means hot reload
	// cannot run.
	Start(ctx context.Context) error
	// Wake delivers at most one pending wake-up at a time.
	Wake() <-chan struct{}
	// Close stops the source and waits for its goroutine.
	Close() error
}

// NewTrigger builds the trigger for the configured mode
func NewTrigger(mode, root string, interval time.Duration, logger *zap.Logger) (Trigger, error) {
	switch mode {
	case constants.HotReloadModePoll, "":
		return NewPollTrigger(interval), nil
	case constants.HotReloadModeNotify:
		return NewNotifyTrigger(root, constants.NotifyCoalesceWindow, logger), nil
	default:
		return nil, fmt.Errorf("unknown hot reload mode %q", mode)
	}
}

// signal performs a non-blocking send on a one-slot channel
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// PollTrigger wakes the loop on a fixed interval
type PollTrigger struct {
	interval time.Duration
	wake     chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPollTrigger creates a ticker based trigger
func NewPollTrigger(interval time.Duration) *PollTrigger {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	return &PollTrigger{
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

func (p *PollTrigger) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				signal(p.wake)
			}
		}
	}()
	return nil
}

func (p *PollTrigger) Wake() <-chan struct{} {
	return p.wake
}

func (p *PollTrigger) Close() error {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
	return nil
}

// NotifyTrigger wakes the loop after file system notifications settle.
// Bursts of events inside the coalesce window produce one wake-up.
type NotifyTrigger struct {
	root    string
	window  time.Duration
	logger  *zap.Logger
	watcher *Watcher
	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewNotifyTrigger creates an fsnotify based trigger rooted at root
func NewNotifyTrigger(root string, window time.Duration, logger *zap.Logger) *NotifyTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyTrigger{
		root:   root,
		window: window,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

func (n *NotifyTrigger) Start(ctx context.Context) error {
	watcher, err := NewWatcher(n.logger)
	if err != nil {
		return err
	}
	if err := watcher.AddRecursive(n.root); err != nil {
		watcher.Stop()
		return fmt.Errorf("failed to watch %s: %w", n.root, err)
	}
	n.watcher = watcher
	watcher.Start()

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.wg.Add(1)
	go n.coalesce(ctx)
	return nil
}

// coalesce groups events with a resettable timer and emits one wake-up per burst
func (n *NotifyTrigger) coalesce(ctx context.Context) {
	defer n.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-n.watcher.Events():
			if !ok {
				return
			}
			pending++
			n.logger.Debug("Change notification", zap.String("path", event.Path), zap.String("operation", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(n.window)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(n.window)
			}
			timerC = timer.C

		case <-timerC:
			n.logger.Debug("Change notifications settled", zap.Int("events", pending))
			pending = 0
			timerC = nil
			signal(n.wake)
		}
	}
}

func (n *NotifyTrigger) Wake() <-chan struct{} {
	return n.wake
}

func (n *NotifyTrigger) Close() error {
	n.once.Do(func() {
		if n.cancel != nil {
			n.cancel()
		}
		n.wg.Wait()
		if n.watcher != nil {
			n.watcher.Stop()
		}
	})
	return nil
}
