package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceWindow  = 50 * time.Millisecond
	pollInterval    = 5 * time.Second
	backoffBase     = 1 * time.Second
	backoffCap      = 30 * time.Second
	maxWatchRetries = 6
)

// Watcher observes one agent's inbox directory and schedules a
// debounced processing pass on any filesystem change, falling back to
// periodic polling if fsnotify is unavailable or the watch target
// disappears (§4.3). The watcher is a hint, never the source of truth:
// every pass does a full directory listing via Mailbox.Drain.
type Watcher struct {
	mailbox   *Mailbox
	deliverer Deliverer

	mu        sync.Mutex
	timer     *time.Timer
	processMu sync.Mutex
	rerun     bool
	started   bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher returns a Watcher draining mailbox and delivering through
// d. Call Start to begin watching.
func NewWatcher(mailbox *Mailbox, d Deliverer) *Watcher {
	return &Watcher{
		mailbox:   mailbox,
		deliverer: d,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the watch loop until ctx is cancelled or Stop is called.
// It blocks, so callers typically invoke it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	defer close(w.doneCh)

	if err := os.MkdirAll(w.mailbox.Dir(), 0755); err != nil {
		w.deliverer.Notify("error", "inbox watcher: cannot create inbox dir: "+err.Error())
	}

	watcher, ok := w.openWithRetry(ctx)
	if ok {
		defer watcher.Close()
		go w.watchLoop(ctx, watcher)
	}

	w.pollLoop(ctx)
}

// Stop signals the watch loop to exit and, if Start has been called,
// waits for it to finish.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.doneCh
	}
}

func (w *Watcher) openWithRetry(ctx context.Context) (*fsnotify.Watcher, bool) {
	delay := backoffBase
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err := watcher.Add(w.mailbox.Dir()); err == nil {
				return watcher, true
			}
			_ = watcher.Close()
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-w.stopCh:
			return nil, false
		case <-time.After(delay):
		}
		delay *= 2
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	w.deliverer.Notify("warn", "inbox watcher: falling back to poll-only after repeated fsnotify failures")
	return nil, false
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.mailbox.Dir()) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleDebounced()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processPass()
		}
	}
}

// scheduleDebounced coalesces bursts of events into one pass 50ms
// after the last observed change.
func (w *Watcher) scheduleDebounced() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, w.processPass)
}

// Flush forces an immediate processing pass, for callers (session turn
// end, UI tick) that want to guarantee delivery without waiting on the
// debounce timer or poll interval.
func (w *Watcher) Flush() {
	w.processPass()
}

// processPass is serialized by a single in-process flag: a call that
// arrives while a pass is in progress is coalesced into one pending
// re-run after the current pass finishes, so watcher events, polls,
// and explicit flushes never overlap (§4.3).
func (w *Watcher) processPass() {
	if !w.processMu.TryLock() {
		w.mu.Lock()
		w.rerun = true
		w.mu.Unlock()
		return
	}
	defer w.processMu.Unlock()

	for {
		if _, err := w.mailbox.Drain(w.deliverer.Deliver); err != nil {
			w.deliverer.Notify("error", "inbox drain failed: "+err.Error())
		}

		w.mu.Lock()
		again := w.rerun
		w.rerun = false
		w.mu.Unlock()
		if !again {
			return
		}
	}
}
