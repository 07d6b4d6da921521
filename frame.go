// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/kont"
)

// frameState tracks the activation lifecycle of a frame.
type frameState uint8

const (
	stateCreated frameState = iota
	stateRunning
	stateSuspended
	stateExiting
	stateSettled
)

// outcomeKind tags the outcome slot of a frame or scope.
type outcomeKind uint8

const (
	outcomePending outcomeKind = iota
	outcomeValue
	outcomeError
	outcomeHalted
)

// outcome is the terminal result of a frame or scope: a boxed value, an
// error, or a quiet halt.
type outcome struct {
	kind  outcomeKind
	value any
	err   error
}

func valueOutcome(v any) outcome     { return outcome{kind: outcomeValue, value: v} }
func errorOutcome(err error) outcome { return outcome{kind: outcomeError, err: err} }
func haltedOutcome() outcome         { return outcome{kind: outcomeHalted} }

// haltable is anything the teardown sweep can halt: frames and scopes.
// done receives the node's final outcome once its teardown has completed.
type haltable interface {
	requestHalt(done func(outcome))
}

// frame is the run-time activation of an operation. It owns its exit stack,
// its live suspension, and the child frames and inner scopes it created;
// its scope owns the frame itself. All fields except the settled flag are
// touched only on the executor goroutine.
type frame struct {
	serial   Serial
	exec     *executor
	scope    *Scope
	attached bool // true once the scope owns this frame
	body     kont.Eff[any]

	susp  *kont.Suspension[any]
	state frameState

	exits    []Op[struct{}]
	children []haltable

	pending   outcome
	sweepErrs []error

	result    outcome
	isSettled atomix.Uint32
	watchers  []func(outcome)

	// resource linkage: set on resource body frames.
	resourceFor *frame
	provided    bool
}

func newFrame(e *executor, sc *Scope, body kont.Eff[any]) *frame {
	return &frame{serial: nextSerial(), exec: e, scope: sc, body: body}
}

// start schedules the first advance of the frame.
func (f *frame) start() {
	f.exec.enqueue(f.begin)
}

func (f *frame) begin() {
	if f.state != stateCreated {
		// Halted before the first advance; nothing ever ran.
		return
	}
	f.state = stateRunning
	res, next, err := f.pump(func() (any, *kont.Suspension[any]) {
		return kont.Step(f.body)
	})
	f.afterPump(res, next, err)
}

// advance feeds a resume value into the live suspension. Calls that arrive
// after the frame started exiting are absorbed.
func (f *frame) advance(v kont.Resumed) {
	if f.state != stateSuspended || f.susp == nil {
		return
	}
	s := f.susp
	f.susp = nil
	f.state = stateRunning
	res, next, err := f.pump(func() (any, *kont.Suspension[any]) {
		return s.Resume(v)
	})
	f.afterPump(res, next, err)
}

// wake schedules an advance on the run queue.
func (f *frame) wake(v kont.Resumed) {
	f.exec.enqueue(func() { f.advance(v) })
}

// pump runs one stretch of the operation body, converting panics in user
// code into frame failures.
func (f *frame) pump(step func() (any, *kont.Suspension[any])) (res any, next *kont.Suspension[any], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	res, next = step()
	return res, next, nil
}

// afterPump interprets the result of a pump: completion, failure, or the
// next instruction. Synchronous instructions resume inline so that, within a
// frame, instruction order is program order.
func (f *frame) afterPump(res any, next *kont.Suspension[any], err error) {
	for {
		if err != nil {
			f.complete(errorOutcome(err))
			return
		}
		if next == nil {
			f.complete(valueOutcome(res))
			return
		}
		f.susp = next
		v, again := f.dispatch(next.Op())
		if !again {
			return
		}
		// A synchronously settling child may have promoted an error and
		// torn this frame down during dispatch.
		if f.state != stateRunning || f.susp == nil {
			return
		}
		s := f.susp
		f.susp = nil
		res, next, err = f.pump(func() (any, *kont.Suspension[any]) {
			return s.Resume(v)
		})
	}
}

// dispatch interprets one instruction. It returns (v, true) to resume the
// frame inline with v, or (_, false) when the frame parked, settled, or
// delegated its continuation to a watcher.
func (f *frame) dispatch(op kont.Operation) (kont.Resumed, bool) {
	switch o := op.(type) {
	case suspendOp:
		f.park()
		return nil, false
	case ensureOp:
		f.exits = append(f.exits, o.cleanup)
		return struct{}{}, true
	case scopeOp:
		return f.scope, true
	case failOp:
		f.complete(errorOutcome(o.err))
		return nil, false
	case spawnOp:
		if f.scope == nil || f.scope.state != scopeActive {
			f.complete(errorOutcome(ErrScopeClosed))
			return nil, false
		}
		child := newFrame(f.exec, f.scope, o.op)
		f.scope.attach(child)
		// Eager start: the child runs to its first suspension before the
		// spawner resumes.
		child.begin()
		return child, true
	case actionOp:
		f.dispatchAction(o)
		return nil, false
	case resourceOp:
		f.dispatchResource(o)
		return nil, false
	case provideOp:
		f.dispatchProvide(o)
		return nil, false
	case awaitOp:
		f.park()
		o.fr.watch(func(out outcome) { f.deliver(out) })
		return nil, false
	case haltOp:
		f.park()
		o.fr.requestHalt(func(outcome) { f.advance(struct{}{}) })
		return nil, false
	case callOp:
		f.dispatchCall(o)
		return nil, false
	case raceOp:
		f.dispatchRace(o)
		return nil, false
	case futureOp:
		f.park()
		o.fut.watch(f.exec, func(out outcome) { f.deliver(out) })
		return nil, false
	default:
		panic("strand: unhandled instruction in frame dispatch")
	}
}

func (f *frame) park() {
	f.state = stateSuspended
}

// deliver routes a child outcome to a parked frame: a value resumes it, an
// error promotes as if thrown at the suspension point, and a halt condition
// halts the awaiter too.
func (f *frame) deliver(out outcome) {
	switch out.kind {
	case outcomeValue:
		f.advance(out.value)
	case outcomeError:
		f.complete(errorOutcome(out.err))
	case outcomeHalted:
		f.complete(haltedOutcome())
	}
}

// dispatchAction implements the escape-point semantics: the body frame is a
// frame-owned child; resolution settles a single-shot future, the body is
// torn down, and only then is the value released to the waiter.
func (f *frame) dispatchAction(o actionOp) {
	f.park()
	fut := &future{}
	resolve := func(v any) { fut.settle(valueOutcome(v)) }
	reject := func(err error) { fut.settle(errorOutcome(err)) }
	// Construction runs inside the child's pump so a panicking body
	// constructor rejects the action instead of unwinding the scheduler.
	child := newFrame(f.exec, f.scope, erase(Lazy(func() Op[struct{}] {
		return o.body(resolve, reject)
	})))
	f.children = append(f.children, child)
	child.watch(func(out outcome) {
		// Body settled on its own before resolution: a failure rejects the
		// action; a plain return leaves it pending until the scope ends.
		if out.kind == outcomeError {
			fut.settle(out)
		}
	})
	fut.watch(f.exec, func(out outcome) {
		child.requestHalt(func(outcome) {
			f.removeChild(child)
			f.deliver(out)
		})
	})
	child.begin()
}

// dispatchResource attaches the body as a long-lived child of the frame's
// scope. The body hands its handle over via provideOp and stays parked; it
// is halted only when the scope terminates.
func (f *frame) dispatchResource(o resourceOp) {
	f.park()
	sc := f.scope
	if sc == nil || sc.state != scopeActive {
		f.complete(errorOutcome(ErrScopeClosed))
		return
	}
	child := newFrame(f.exec, sc, erase(Lazy(func() Op[struct{}] {
		return o.body(provideInstr)
	})))
	child.resourceFor = f
	sc.attach(child)
	child.watch(func(out outcome) {
		if child.provided {
			return
		}
		// Settled before providing: setup failure is a foreground error at
		// the acquisition site.
		switch out.kind {
		case outcomeError, outcomeHalted:
			f.deliver(out)
		case outcomeValue:
			f.deliver(errorOutcome(errNoProvide))
		}
	})
	child.begin()
}

// dispatchProvide runs on a resource body frame: publish the handle to the
// acquiring frame and park for the rest of the scope's lifetime.
func (f *frame) dispatchProvide(o provideOp) {
	f.park()
	target := f.resourceFor
	if target == nil {
		f.complete(errorOutcome(errNoProvide))
		return
	}
	f.provided = true
	target.wake(o.value)
}

// dispatchCall introduces the error boundary: op runs as the main frame of a
// fresh inner scope owned by this frame, so failures of background children
// started inside op surface here instead of at the enclosing scope.
func (f *frame) dispatchCall(o callOp) {
	f.park()
	inner := newScope(f.exec, f.scope)
	f.children = append(f.children, inner)
	main := newFrame(f.exec, inner, o.op)
	inner.attach(main)
	inner.watch(func(final outcome) {
		f.removeChild(inner)
		if !o.trap {
			f.deliver(final)
			return
		}
		switch final.kind {
		case outcomeValue:
			f.advance(trapResult{value: final.value})
		case outcomeError:
			f.advance(trapResult{err: final.err})
		case outcomeHalted:
			f.complete(haltedOutcome())
		}
	})
	main.watch(func(out outcome) {
		// Error settles promote through the scope on their own.
		if inner.state == scopeActive {
			inner.terminate(out)
		}
	})
	main.begin()
}

// dispatchRace runs every operation under a fresh inner scope; the first
// settle, success or failure, becomes the scope cause and halts the rest in
// reverse attachment order before the winner's outcome is released.
func (f *frame) dispatchRace(o raceOp) {
	f.park()
	inner := newScope(f.exec, f.scope)
	inner.raceMode = true
	f.children = append(f.children, inner)
	inner.watch(func(final outcome) {
		f.removeChild(inner)
		f.deliver(final)
	})
	racers := make([]*frame, 0, len(o.ops))
	for _, op := range o.ops {
		r := newFrame(f.exec, inner, op)
		inner.attach(r)
		racers = append(racers, r)
	}
	for _, r := range racers {
		r.begin()
	}
}

func (f *frame) removeChild(h haltable) {
	for i, c := range f.children {
		if c == h {
			f.children = append(f.children[:i], f.children[i+1:]...)
			return
		}
	}
}

// complete moves the frame into teardown with the given outcome. Completes
// and halts that arrive while the frame is already exiting are absorbed.
func (f *frame) complete(out outcome) {
	if f.state == stateExiting || f.state == stateSettled {
		return
	}
	if f.susp != nil {
		f.susp.Discard()
		f.susp = nil
	}
	f.state = stateExiting
	f.pending = out
	f.sweep()
}

// requestHalt asks the frame to tear down; done runs once teardown has
// completed, immediately for an already settled frame. Halting is
// idempotent: a second halt only observes completion.
func (f *frame) requestHalt(done func(outcome)) {
	if done != nil {
		f.watch(done)
	}
	if f.state == stateExiting || f.state == stateSettled {
		return
	}
	f.complete(haltedOutcome())
}

// sweep is the teardown state machine: halt frame-owned children in reverse
// attachment order, then run the exit stack in reverse registration order,
// each cleanup operation driven to completion as its own frame. Errors never
// abort the sweep; they are collected and merged into the outcome.
func (f *frame) sweep() {
	if n := len(f.children); n > 0 {
		c := f.children[n-1]
		f.children = f.children[:n-1]
		c.requestHalt(func(out outcome) {
			if out.kind == outcomeError {
				f.sweepErrs = append(f.sweepErrs, out.err)
			}
			f.sweep()
		})
		return
	}
	if n := len(f.exits); n > 0 {
		cleanup := f.exits[n-1]
		f.exits = f.exits[:n-1]
		cf := newFrame(f.exec, f.scope, erase(cleanup))
		cf.watch(func(out outcome) {
			if out.kind == outcomeError {
				f.sweepErrs = append(f.sweepErrs, out.err)
			}
			f.sweep()
		})
		cf.start()
		return
	}
	f.settle()
}

// settle records the final outcome, publishes it to watchers via the run
// queue, and notifies the owning scope.
func (f *frame) settle() {
	out := mergeCleanup(f.pending, f.sweepErrs)
	f.result = out
	f.state = stateSettled
	f.isSettled.Add(1)
	ws := f.watchers
	f.watchers = nil
	for _, w := range ws {
		w := w
		f.exec.enqueue(func() { w(out) })
	}
	// Resource bodies never promote: pre-provide failures are delivered to
	// the acquiring frame, post-provide teardown errors to the scope sweep.
	if f.scope != nil && f.attached && f.resourceFor == nil {
		f.scope.childSettled(f, out)
	}
}

// watch registers w to run on the run queue once the frame settles.
func (f *frame) watch(w func(outcome)) {
	if f.state == stateSettled {
		out := f.result
		f.exec.enqueue(func() { w(out) })
		return
	}
	f.watchers = append(f.watchers, w)
}
