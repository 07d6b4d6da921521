// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"sync"

	"code.hybscloud.com/kont"
)

// future is a single-shot resolvable slot: pending, then exactly one of
// resolved or rejected. It bridges callback-driven resolution from arbitrary
// goroutines into suspended frames; watchers are always notified through the
// watching frame's run queue, never on the settling goroutine's stack.
type future struct {
	mu      sync.Mutex
	done    bool
	out     outcome
	waiters []futureWaiter
}

type futureWaiter struct {
	exec *executor
	fn   func(outcome)
}

// settle records the outcome. Further settles are ignored.
func (f *future) settle(out outcome) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.out = out
	ws := f.waiters
	f.waiters = nil
	f.mu.Unlock()
	for _, w := range ws {
		fn := w.fn
		w.exec.enqueue(func() { fn(out) })
	}
}

// watch registers fn to run on e's queue once the future settles.
func (f *future) watch(e *executor, fn func(outcome)) {
	f.mu.Lock()
	if f.done {
		out := f.out
		f.mu.Unlock()
		e.enqueue(func() { fn(out) })
		return
	}
	f.waiters = append(f.waiters, futureWaiter{exec: e, fn: fn})
	f.mu.Unlock()
}

// WithResolvers creates a single-shot future together with its resolution
// callbacks. Awaiting the returned operation suspends the current frame
// until resolve or reject is called; both are one-shot as a pair and safe to
// call from any goroutine, before or after a frame starts awaiting.
func WithResolvers[A any]() (await Op[A], resolve func(A), reject func(error)) {
	fut := &future{}
	await = kont.Map(kont.Perform(futureOp{fut: fut}), unbox[A])
	resolve = func(v A) { fut.settle(valueOutcome(boxed{v: v})) }
	reject = func(err error) { fut.settle(errorOutcome(err)) }
	return await, resolve, reject
}
