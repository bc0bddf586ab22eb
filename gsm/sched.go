package gsm

import (
	"sync"
	"time"
)

// worker runs deferred steps one at a time on a dedicated goroutine. A
// session has a single delayable step slot: scheduling replaces any step
// still waiting on its timer, so bring-up stages never pile up.
type worker struct {
	mu    sync.Mutex
	timer *time.Timer
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

func newWorker() *worker {
	w := &worker{
		tasks: make(chan func(), 1),
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		default:
		}
		select {
		case fn := <-w.tasks:
			fn()
		case <-w.done:
			return
		}
	}
}

// schedule queues fn to run after d, displacing a previously scheduled
// step that has not fired yet.
func (w *worker) schedule(d time.Duration, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, func() {
		select {
		case w.tasks <- fn:
		case <-w.done:
		}
	})
}

func (w *worker) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	w.wg.Wait()
}
