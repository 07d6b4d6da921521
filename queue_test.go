// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand_test

import (
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/strand"
)

func TestQueueFIFO(t *testing.T) {
	q := strand.NewQueue[int, struct{}]()
	op := strand.Lazy(func() strand.Op[[]int] {
		q.Add(1)
		q.Add(2)
		q.Add(3)
		q.Close(struct{}{})
		return drainQueue(q)
	})
	got := mustRun(t, op)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("observed %v, want [1 2 3]", got)
	}
}

// drainQueue reads q to the terminal marker and yields the values seen.
func drainQueue[T, C any](q *strand.Queue[T, C]) strand.Op[[]T] {
	return strand.Loop([]T(nil), func(acc []T) strand.Op[kont.Either[[]T, []T]] {
		return kont.Bind(q.Next(), func(e kont.Either[C, T]) strand.Op[kont.Either[[]T, []T]] {
			if v, ok := e.GetRight(); ok {
				return kont.Pure(kont.Left[[]T, []T](append(acc, v)))
			}
			return kont.Pure(kont.Right[[]T](acc))
		})
	})
}

func TestQueueParkedConsumerWoken(t *testing.T) {
	q := strand.NewQueue[string, struct{}]()
	op := kont.Then(
		strand.Spawn(kont.Then(strand.Sleep(time5ms), strand.Lazy(func() strand.Op[struct{}] {
			q.Add("late")
			return unit()
		}))),
		kont.Map(q.Next(), func(e kont.Either[struct{}, string]) string {
			v, _ := e.GetRight()
			return v
		}),
	)
	if got := mustRun(t, op); got != "late" {
		t.Fatalf("got %q, want late", got)
	}
}

func TestQueueTerminalSticky(t *testing.T) {
	q := strand.NewQueue[int, string]()
	op := strand.Lazy(func() strand.Op[[]string] {
		q.Close("done")
		q.Add(9)
		next := func() strand.Op[string] {
			return kont.Map(q.Next(), func(e kont.Either[string, int]) string {
				c, _ := e.GetLeft()
				return c
			})
		}
		return kont.Bind(next(), func(a string) strand.Op[[]string] {
			return kont.Bind(next(), func(b string) strand.Op[[]string] {
				return kont.Pure([]string{a, b})
			})
		})
	})
	got := mustRun(t, op)
	if len(got) != 2 || got[0] != "done" || got[1] != "done" {
		t.Fatalf("terminal reads %v, want [done done]", got)
	}
}

func TestQueueBuffersBeforeConsumption(t *testing.T) {
	q := strand.NewQueue[int, struct{}]()
	for i := range 100 {
		q.Add(i)
	}
	q.Close(struct{}{})
	got := mustRun(t, drainQueue(q))
	if len(got) != 100 {
		t.Fatalf("observed %d items, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d got %d", i, v)
		}
	}
}
