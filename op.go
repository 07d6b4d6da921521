// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
)

// Op is an operation: an inert, restartable recipe for an asynchronous
// computation yielding a value of type A. An operation is an effectful
// continuation; it composes with [kont.Bind], [kont.Map], [kont.Then] and
// [kont.Pure], and is evaluated only when a frame drives it. Two evaluations
// of the same operation are independent.
type Op[A any] = kont.Eff[A]

// boxed wraps values flowing through the type-erased evaluator so that a
// user-level nil never reaches kont's nil-completion convention.
type boxed struct{ v any }

// erase adapts a typed operation to the evaluator's type-erased world.
func erase[A any](op Op[A]) kont.Eff[any] {
	return kont.Map(op, func(a A) any { return boxed{v: a} })
}

// unbox recovers a typed value from an erased frame outcome.
// A nil payload yields the zero value of A.
func unbox[A any](v any) A {
	if b, ok := v.(boxed); ok {
		a, _ := b.v.(A)
		return a
	}
	a, _ := v.(A)
	return a
}

// Instruction operations. This is the closed set yielded by operation bodies
// and interpreted by the frame evaluator; user-facing operations all lower to
// sequences of these. Operation-calls-operation needs no instruction: it is
// kont.Bind, and a delegated failure fails the shared frame.

// suspendOp parks the frame until its scope ends. Never resumed.
type suspendOp struct {
	kont.Phantom[struct{}]
}

// actionOp runs body as a child frame with resolve/reject callbacks
// fulfilling a single-shot future; the performing frame suspends on the
// future and the child is torn down before the value is delivered.
type actionOp struct {
	kont.Phantom[any]
	body func(resolve func(any), reject func(error)) Op[struct{}]
}

// resourceOp runs body as a long-lived child of the performing frame's
// scope; the body publishes a handle via provideOp and then stays parked
// until the scope terminates.
type resourceOp struct {
	kont.Phantom[any]
	body func(provide func(any) Op[struct{}]) Op[struct{}]
}

// provideOp publishes a resource handle to the acquiring frame and parks the
// resource body at the provide point. Never resumed.
type provideOp struct {
	kont.Phantom[struct{}]
	value any
}

// spawnOp attaches a new frame for op to the performing frame's scope and
// resumes immediately with the frame handle.
type spawnOp struct {
	kont.Phantom[*frame]
	op kont.Eff[any]
}

// scopeOp resumes immediately with the performing frame's scope.
type scopeOp struct {
	kont.Phantom[*Scope]
}

// ensureOp pushes a cleanup operation onto the frame's exit stack and
// resumes immediately.
type ensureOp struct {
	kont.Phantom[struct{}]
	cleanup Op[struct{}]
}

// failOp settles the performing frame with an error. Never resumed.
type failOp struct {
	kont.Phantom[any]
	err error
}

// awaitOp suspends the performing frame until the target frame settles.
// A value resumes the frame; an error or halt propagates to it.
type awaitOp struct {
	kont.Phantom[any]
	fr *frame
}

// haltOp requests teardown of the target frame and resumes once the
// teardown has completed.
type haltOp struct {
	kont.Phantom[struct{}]
	fr *frame
}

// callOp runs op as the main frame of a fresh inner scope owned by the
// performing frame: the error boundary. With trap set, the boundary outcome
// resumes the frame as a trapResult instead of propagating (Try).
type callOp struct {
	kont.Phantom[any]
	op   kont.Eff[any]
	trap bool
}

// trapResult is the resume value of a trapping callOp.
type trapResult struct {
	value any
	err   error
}

// raceOp runs every operation as a frame of a fresh inner scope; the first
// to settle wins, the rest are halted, and the winner's outcome resumes or
// propagates to the performing frame.
type raceOp struct {
	kont.Phantom[any]
	ops []kont.Eff[any]
}

// futureOp suspends the performing frame until the future settles.
type futureOp struct {
	kont.Phantom[any]
	fut *future
}

// Suspend parks the current frame until its enclosing scope terminates,
// at which point the frame's exit stack runs. Suspend is the pivot between
// setup and teardown inside Action and Resource bodies.
func Suspend() Op[struct{}] {
	return kont.Perform(suspendOp{})
}

// Action runs body as a child frame, handing it resolve and reject callbacks
// that may escape to host code. The action settles with the first value
// passed to resolve (or the first error passed to reject); the body frame is
// torn down before the value is delivered to the caller. If the body fails
// before resolving, the action fails with that cause. A body that returns
// without resolving leaves the action pending until its scope ends.
//
// resolve and reject are one-shot as a pair and safe to call from any
// goroutine.
func Action[A any](body func(resolve func(A), reject func(error)) Op[struct{}]) Op[A] {
	op := actionOp{body: func(resolve func(any), reject func(error)) Op[struct{}] {
		return body(func(v A) { resolve(boxed{v: v}) }, reject)
	}}
	return kont.Map(kont.Perform(op), unbox[A])
}

// Resource runs body as a long-lived child of the current scope. The body
// performs setup, registers cleanup with Ensure, and publishes the handle by
// evaluating provide(handle); the caller of Resource resumes with the handle
// while the body stays parked at the provide point until the scope
// terminates, at which time its exit stack runs. A setup failure before
// provide surfaces at the Resource call site.
func Resource[A any](body func(provide func(A) Op[struct{}]) Op[struct{}]) Op[A] {
	op := resourceOp{body: func(provide func(any) Op[struct{}]) Op[struct{}] {
		return body(func(v A) Op[struct{}] { return provide(boxed{v: v}) })
	}}
	return kont.Map(kont.Perform(op), unbox[A])
}

// Spawn starts op as a concurrent frame attached to the current scope and
// resumes immediately with its task handle. The spawning frame is not
// suspended. A failure of the spawned frame promotes to the scope; use Call
// or Try to observe it as a foreground error.
func Spawn[A any](op Op[A]) Op[*Task[A]] {
	return kont.Map(kont.Perform(spawnOp{op: erase(op)}), func(f *frame) *Task[A] {
		return &Task[A]{f: f}
	})
}

// Ensure pushes cleanup onto the current frame's exit stack. Cleanup
// operations run in reverse registration order on every exit path: return,
// failure, and halt.
func Ensure(cleanup Op[struct{}]) Op[struct{}] {
	return kont.Perform(ensureOp{cleanup: cleanup})
}

// EnsureFunc is Ensure for a plain function.
func EnsureFunc(fn func()) Op[struct{}] {
	return Ensure(Lazy(func() Op[struct{}] {
		fn()
		return kont.Pure(struct{}{})
	}))
}

// CurrentScope resumes with the scope the current frame is attached to,
// enabling out-of-band injection into it via RunIn from host callback code.
func CurrentScope() Op[*Scope] {
	return kont.Perform(scopeOp{})
}

// Fail settles the current frame with err. The error propagates exactly as a
// thrown error would: it ascends through delegation and promotes through the
// scope mechanism.
func Fail[A any](err error) Op[A] {
	return kont.Map(kont.Perform(failOp{err: err}), func(any) A {
		var zero A
		return zero
	})
}

// Lazy defers construction of an operation to evaluation time. Side effects
// inside f run once per evaluation, which keeps the resulting operation
// restartable; this is where imperative setup code belongs.
func Lazy[A any](f func() Op[A]) Op[A] {
	return kont.Suspend[kont.Resumed, A](func(k func(A) kont.Resumed) kont.Resumed {
		return f()(k)
	})
}

// provideInstr is the provide callback handed to resource bodies.
func provideInstr(v any) Op[struct{}] {
	return kont.Perform(provideOp{value: v})
}

// awaitFuture suspends the current frame until fut settles.
func awaitFuture(fut *future) Op[struct{}] {
	return kont.Map(kont.Perform(futureOp{fut: fut}), func(any) struct{} {
		return struct{}{}
	})
}
