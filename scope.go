// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

// scopeState tracks the lifecycle of a scope.
type scopeState uint8

const (
	scopeActive scopeState = iota
	scopeClosing
	scopeDone
)

// Scope is a lifetime node. It exclusively owns its attached frames and
// child scopes; when it terminates, it halts every live child in reverse
// attachment order, awaiting each teardown before halting the next, so
// cleanup never interleaves. A terminal scope accepts no new children.
//
// A scope terminates exactly once, by return, error, or halt. An error in
// any attached frame promotes to the scope: the scope records the cause and
// halts every remaining sibling; siblings halted this way report halt, not
// error. A halted scope completes quietly.
type Scope struct {
	serial   Serial
	exec     *executor
	parent   *Scope
	children []haltable

	state     scopeState
	raceMode  bool // first settle of any kind terminates the scope
	cause     outcome
	sweepErrs []error
	result    outcome
	watchers  []func(outcome)
}

func newScope(e *executor, parent *Scope) *Scope {
	return &Scope{serial: nextSerial(), exec: e, parent: parent}
}

// Serial returns the serial number assigned to this scope.
func (s *Scope) Serial() Serial {
	return s.serial
}

// attach appends a child in attachment order. Attaching to a terminal scope
// is an invariant violation; callers check first.
func (s *Scope) attach(c haltable) {
	if s.state != scopeActive {
		panic("strand: attach to terminal scope")
	}
	if f, ok := c.(*frame); ok {
		f.attached = true
	}
	s.children = append(s.children, c)
}

// childSettled is the promotion hook: an error in an attached frame while
// the scope is active becomes the scope's cause and triggers termination.
// The failing child is detached so the sweep does not collect its error a
// second time.
func (s *Scope) childSettled(child *frame, out outcome) {
	if s.state != scopeActive {
		return
	}
	s.detach(child)
	if s.raceMode || out.kind == outcomeError {
		s.terminate(out)
	}
}

func (s *Scope) detach(c haltable) {
	for i, x := range s.children {
		if x == c {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// terminate marks the scope terminal with cause and begins the halt
// cascade. Only the first cause is recorded; later terminates are absorbed.
func (s *Scope) terminate(cause outcome) {
	if s.state != scopeActive {
		return
	}
	s.state = scopeClosing
	s.cause = cause
	s.sweep()
}

// requestHalt implements haltable for child scopes and external halts.
func (s *Scope) requestHalt(done func(outcome)) {
	if done != nil {
		s.watch(done)
	}
	if s.state != scopeActive {
		return
	}
	s.terminate(haltedOutcome())
}

// sweep halts children in reverse attachment order, frames and child scopes
// interleaved by position, awaiting each teardown before the next. Teardown
// errors are collected, never skipped over.
func (s *Scope) sweep() {
	if n := len(s.children); n > 0 {
		c := s.children[n-1]
		s.children = s.children[:n-1]
		c.requestHalt(func(out outcome) {
			if out.kind == outcomeError {
				s.sweepErrs = append(s.sweepErrs, out.err)
			}
			s.sweep()
		})
		return
	}
	s.settle()
}

func (s *Scope) settle() {
	out := mergeCleanup(s.cause, s.sweepErrs)
	s.result = out
	s.state = scopeDone
	ws := s.watchers
	s.watchers = nil
	for _, w := range ws {
		w := w
		s.exec.enqueue(func() { w(out) })
	}
}

// watch registers w to run on the run queue once the scope settles.
func (s *Scope) watch(w func(outcome)) {
	if s.state == scopeDone {
		out := s.result
		s.exec.enqueue(func() { w(out) })
		return
	}
	s.watchers = append(s.watchers, w)
}

// RunIn injects op into s from outside the runtime: host callback code uses
// it to attach work to a strand-managed lifetime. The returned task settles
// like any other frame; if the scope has already terminated, the frame never
// runs and the task reports halt — injections into a dead scope are dropped
// silently, which is the contract signal bridges rely on.
//
// RunIn is safe to call from any goroutine.
func RunIn[A any](s *Scope, op Op[A]) *Task[A] {
	f := newFrame(s.exec, s, erase(op))
	s.exec.enqueue(func() {
		if s.state != scopeActive {
			f.requestHalt(nil)
			return
		}
		s.attach(f)
		f.begin()
	})
	return &Task[A]{f: f}
}
