// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"sync"

	"code.hybscloud.com/iox"
)

// executor is the single-threaded cooperative scheduler: a FIFO run queue
// drained on the driving goroutine. Each queued callback advances a frame
// until it parks or settles; resumption callbacks fired from host goroutines
// (timers, resolvers, signal bridges) enqueue rather than recurse, which
// preserves the install-then-suspend invariant.
type executor struct {
	mu   sync.Mutex
	q    []func()
	head int
}

// enqueue appends fn to the run queue. Safe for concurrent use.
func (e *executor) enqueue(fn func()) {
	e.mu.Lock()
	e.q = append(e.q, fn)
	e.mu.Unlock()
}

// pop removes and returns the front of the run queue.
func (e *executor) pop() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.head == len(e.q) {
		e.q = e.q[:0]
		e.head = 0
		return nil, false
	}
	fn := e.q[e.head]
	e.q[e.head] = nil
	e.head++
	return fn, true
}

// drive drains the run queue until done reports true, waiting out empty
// stretches with adaptive backoff (iox.Backoff) so external events such as
// timer fires and host callbacks can land. Does not spawn goroutines or
// create channels.
func (e *executor) drive(done func() bool) {
	var bo iox.Backoff
	for !done() {
		fn, ok := e.pop()
		if !ok {
			bo.Wait()
			continue
		}
		bo.Reset()
		fn()
	}
}
