package sdk

import (
	"fmt"
	"sync"
)

type dispatchResult struct {
	value any
	err   error
}

// dispatcher serializes work onto a single goroutine.
//
// Views may call SDK methods from multiple goroutines; funneling every state
// mutation through one dispatcher keeps the session, subscription and
// notification state consistent without fine-grained locking across
// components. Listener callbacks run on a second dispatcher so a slow
// listener never blocks SDK work.
type dispatcher struct {
	once sync.Once
	q    chan func()
	wg   sync.WaitGroup

	// mu serializes enqueues against close so a late caller (a forced-logout
	// handler racing Close) gets an error instead of a send on a closed
	// channel.
	mu     sync.Mutex
	closed bool
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &dispatcher{
		q: make(chan func(), queueSize),
	}
	d.once.Do(func() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for fn := range d.q {
				if fn != nil {
					fn()
				}
			}
		}()
	})
	return d
}

// do enqueues fn without waiting for it to run.
func (d *dispatcher) do(fn func()) error {
	if d == nil {
		return fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil
	}
	return d.enqueue(fn)
}

// call runs fn on the dispatcher goroutine and waits for its result.
func (d *dispatcher) call(fn func() (any, error)) (any, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher not initialized")
	}
	if fn == nil {
		return nil, nil
	}
	done := make(chan dispatchResult, 1)
	err := d.enqueue(func() {
		value, err := fn()
		done <- dispatchResult{value: value, err: err}
	})
	if err != nil {
		return nil, err
	}
	res := <-done
	return res.value, res.err
}

// enqueue hands fn to the dispatch goroutine, failing once closed.
func (d *dispatcher) enqueue(fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("dispatcher closed")
	}
	d.q <- fn
	return nil
}

// close drains the queue and stops the goroutine. Safe to call twice.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.q)
	d.mu.Unlock()
	d.wg.Wait()
}
