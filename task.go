// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
)

// Task is the user-visible handle to a running frame. It observes the frame
// without extending its lifetime.
//
// A task is consumable two ways. As an operation, Await suspends the current
// frame until the task settles: a value resumes the awaiter, a failure
// propagates as if thrown at the await site, and awaiting a halted task
// yields a halt condition to the awaiter. As a host-side handle, Result
// reports the settled outcome with halt surfaced as the ErrHalted sentinel.
type Task[A any] struct {
	f *frame
}

// Await is the operation form of the task: it yields the frame's outcome.
func (t *Task[A]) Await() Op[A] {
	return kont.Map(kont.Perform(awaitOp{fr: t.f}), unbox[A])
}

// Halt requests teardown of the task's frame and completes once the frame's
// exit stack has finished. Halting is idempotent; halting a settled task
// completes immediately.
func (t *Task[A]) Halt() Op[struct{}] {
	return kont.Perform(haltOp{fr: t.f})
}

// Settled reports whether the task's frame has reached a terminal outcome.
// Safe to call from any goroutine.
func (t *Task[A]) Settled() bool {
	return t.f.isSettled.Load() != 0
}

// Result reports the settled outcome: the value on success, the cause on
// failure, ErrHalted for a halted frame, and ErrPending while the frame is
// still live. Safe to call from any goroutine once Settled reports true.
func (t *Task[A]) Result() (A, error) {
	var zero A
	if !t.Settled() {
		return zero, ErrPending
	}
	switch out := t.f.result; out.kind {
	case outcomeValue:
		return unbox[A](out.value), nil
	case outcomeError:
		return zero, out.err
	default:
		return zero, ErrHalted
	}
}
