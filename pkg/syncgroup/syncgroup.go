// Package syncgroup wraps sync.WaitGroup so the Add/Done pairing cannot be
// forgotten: callers register functions and Run launches them all.
package syncgroup

import "sync"

type syncGroupFunc func()

// SyncGroup collects functions and runs each in its own goroutine.
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	fns     []syncGroupFunc
	running int
}

// NewSyncGroup creates an empty group.
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add registers a function. Must be called before Run; registrations made
// while a previous batch is still running are dropped.
func (w *SyncGroup) Add(fn syncGroupFunc) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running > 0 {
		return
	}
	w.fns = append(w.fns, fn)
}

// Run launches every registered function and clears the registration list.
func (w *SyncGroup) Run() {
	w.mu.Lock()
	if w.running > 0 {
		w.mu.Unlock()
		return
	}
	fns := w.fns
	w.fns = nil
	w.running = len(fns)
	w.mu.Unlock()

	for _, fn := range fns {
		w.wg.Add(1)
		go func(doFunc syncGroupFunc) {
			defer func() {
				w.wg.Done()
				w.mu.Lock()
				w.running--
				w.mu.Unlock()
			}()
			doFunc()
		}(fn)
	}
}

// Wait blocks until the running batch finishes.
func (w *SyncGroup) Wait() {
	w.wg.Wait()
}
