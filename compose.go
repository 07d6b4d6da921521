// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"time"

	"code.hybscloud.com/kont"
)

// Call runs op inside a fresh child scope: the error boundary. Background
// failures from frames spawned inside op (spawns, resources) surface as a
// foreground failure at the Call site instead of promoting to the enclosing
// scope. In every other outcome, Call(op) is equivalent to op.
func Call[A any](op Op[A]) Op[A] {
	return kont.Map(kont.Perform(callOp{op: erase(op)}), unbox[A])
}

// Try is the catching form of the error boundary: it runs op like Call and
// reifies the outcome as Right(value) or Left(cause) instead of propagating
// the failure.
func Try[A any](op Op[A]) Op[kont.Either[error, A]] {
	return kont.Map(kont.Perform(callOp{op: erase(op), trap: true}), func(v any) kont.Either[error, A] {
		r := v.(trapResult)
		if r.err != nil {
			return kont.Left[error, A](r.err)
		}
		return kont.Right[error](unbox[A](r.value))
	})
}

// All spawns every operation under a fresh inner scope, waits for all of
// them, and yields the values in argument order. The first failure halts the
// remaining siblings in reverse attachment order and propagates.
func All[A any](ops ...Op[A]) Op[[]A] {
	if len(ops) == 0 {
		return kont.Pure([]A{})
	}
	return Call(allSpawn(ops, make([]*Task[A], 0, len(ops))))
}

func allSpawn[A any](ops []Op[A], tasks []*Task[A]) Op[[]A] {
	if len(ops) == 0 {
		return allAwait(tasks, make([]A, 0, len(tasks)))
	}
	return kont.Bind(Spawn(ops[0]), func(t *Task[A]) Op[[]A] {
		return allSpawn(ops[1:], append(tasks, t))
	})
}

func allAwait[A any](tasks []*Task[A], acc []A) Op[[]A] {
	if len(tasks) == 0 {
		return kont.Pure(acc)
	}
	return kont.Bind(tasks[0].Await(), func(v A) Op[[]A] {
		return allAwait(tasks[1:], append(acc, v))
	})
}

// Race runs every operation under a fresh inner scope. The first to settle,
// by success or failure, wins: the losers are halted in reverse attachment
// order, their cleanup completes, and only then is the winner's outcome
// delivered. A race of nothing never settles.
func Race[A any](ops ...Op[A]) Op[A] {
	erased := make([]kont.Eff[any], len(ops))
	for i, op := range ops {
		// Each contestant runs behind its own error boundary so background
		// frames it spawns cannot settle the race on its behalf.
		erased[i] = erase(Call(op))
	}
	return kont.Map(kont.Perform(raceOp{ops: erased}), unbox[A])
}

// Sleep suspends the current frame for at least d. The timer is installed
// when the operation runs and cleared on every exit path, so a raced or
// halted sleep leaves no timer behind.
func Sleep(d time.Duration) Op[struct{}] {
	return Action(func(resolve func(struct{}), _ func(error)) Op[struct{}] {
		return Lazy(func() Op[struct{}] {
			t := time.AfterFunc(d, func() { resolve(struct{}{}) })
			return kont.Then(EnsureFunc(func() { t.Stop() }), Suspend())
		})
	})
}

// WithTimeout fails op with *TimeoutError unless it settles within d.
// There is no other timeout machinery: this is Race against Sleep.
func WithTimeout[A any](d time.Duration, op Op[A]) Op[A] {
	return Race(op, kont.Then(Sleep(d), Fail[A](&TimeoutError{After: d})))
}
