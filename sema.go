// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"errors"

	"code.hybscloud.com/kont"
)

// errSemaphoreWeight fails an Acquire whose weight can never be satisfied.
var errSemaphoreWeight = errors.New("strand: semaphore weight exceeds capacity")

// semWaiter tracks one parked Acquire. state moves pending → granted →
// held; a frame halted between grant and resumption returns the weight via
// its exit stack.
type semWaiter struct {
	n     int
	fut   *future
	state uint8 // 0 pending, 1 granted, 2 held
}

const (
	semPending uint8 = iota
	semGranted
	semHeld
)

// Semaphore bounds combined weight held across frames of one runtime.
// Waiters are granted in FIFO order. A Semaphore must not be shared by more
// than one executor; use WithSemaphore for halt-safe bracketing.
type Semaphore struct {
	size    int
	cur     int
	waiters []*semWaiter
}

// NewSemaphore creates a weighted semaphore with the given maximum combined
// weight.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{size: n}
}

// Acquire suspends the current frame until a weight of n is available, then
// holds it. An Acquire that parks registers cleanup on the acquiring frame,
// so a frame halted mid-wait neither blocks the queue nor strands a granted
// weight; a successfully acquired weight is the caller's to Release.
func (s *Semaphore) Acquire(n int) Op[struct{}] {
	return Lazy(func() Op[struct{}] {
		if n > s.size {
			return Fail[struct{}](errSemaphoreWeight)
		}
		if s.size-s.cur >= n && len(s.waiters) == 0 {
			s.cur += n
			return kont.Pure(struct{}{})
		}
		w := &semWaiter{n: n, fut: &future{}}
		s.waiters = append(s.waiters, w)
		return kont.Then(
			EnsureFunc(func() { s.cancel(w) }),
			kont.Map(awaitFuture(w.fut), func(struct{}) struct{} {
				w.state = semHeld
				return struct{}{}
			}),
		)
	})
}

// Release returns a weight of n and grants parked acquires in FIFO order.
func (s *Semaphore) Release(n int) Op[struct{}] {
	return Lazy(func() Op[struct{}] {
		s.release(n)
		return kont.Pure(struct{}{})
	})
}

func (s *Semaphore) release(n int) {
	s.cur -= n
	if s.cur < 0 {
		panic("strand: semaphore released more than held")
	}
	s.grant()
}

// grant hands weight to waiters from the head of the queue while it fits.
func (s *Semaphore) grant() {
	for len(s.waiters) > 0 {
		w := s.waiters[0]
		if s.size-s.cur < w.n {
			return
		}
		s.waiters = s.waiters[1:]
		s.cur += w.n
		w.state = semGranted
		w.fut.settle(valueOutcome(boxed{v: struct{}{}}))
	}
}

// cancel runs on the acquiring frame's exit stack: a still-pending waiter
// leaves the queue; a granted weight the frame never got to hold is
// returned.
func (s *Semaphore) cancel(w *semWaiter) {
	switch w.state {
	case semPending:
		for i, x := range s.waiters {
			if x == w {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				return
			}
		}
	case semGranted:
		s.release(w.n)
	}
}

// WithSemaphore runs op holding a weight of n, releasing it on every exit
// path: return, failure, and halt.
func WithSemaphore[A any](s *Semaphore, n int, op Op[A]) Op[A] {
	return kont.Bind(s.Acquire(n), func(struct{}) Op[A] {
		return Lazy(func() Op[A] {
			held := true
			release := func() {
				if held {
					held = false
					s.release(n)
				}
			}
			return kont.Then(EnsureFunc(release), kont.Bind(op, func(a A) Op[A] {
				release()
				return kont.Pure(a)
			}))
		})
	})
}
