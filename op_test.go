// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand_test

import (
	"errors"
	"strings"
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/strand"
)

func TestActionResolve(t *testing.T) {
	op := strand.Action(func(resolve func(int), _ func(error)) strand.Op[struct{}] {
		return strand.Lazy(func() strand.Op[struct{}] {
			resolve(42)
			return strand.Suspend()
		})
	})
	if got := mustRun(t, op); got != 42 {
		t.Fatalf("action got %d, want 42", got)
	}
}

func TestActionReject(t *testing.T) {
	boom := errors.New("boom")
	op := strand.Action(func(_ func(int), reject func(error)) strand.Op[struct{}] {
		return strand.Lazy(func() strand.Op[struct{}] {
			reject(boom)
			return strand.Suspend()
		})
	})
	if _, err := strand.Run(op); !errors.Is(err, boom) {
		t.Fatalf("action error got %v, want %v", err, boom)
	}
}

func TestActionBodyFailureRejects(t *testing.T) {
	boom := errors.New("boom")
	op := strand.Action(func(func(int), func(error)) strand.Op[struct{}] {
		return strand.Fail[struct{}](boom)
	})
	if _, err := strand.Run(op); !errors.Is(err, boom) {
		t.Fatalf("action error got %v, want %v", err, boom)
	}
}

func TestActionTeardownBeforeDelivery(t *testing.T) {
	var trace []string
	op := kont.Bind(
		strand.Action(func(resolve func(int), _ func(error)) strand.Op[struct{}] {
			return kont.Then(
				strand.EnsureFunc(func() { trace = append(trace, "cleanup") }),
				strand.Lazy(func() strand.Op[struct{}] {
					resolve(7)
					return strand.Suspend()
				}),
			)
		}),
		func(v int) strand.Op[int] {
			trace = append(trace, "resumed")
			return kont.Pure(v)
		},
	)
	if got := mustRun(t, op); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
	if len(trace) != 2 || trace[0] != "cleanup" || trace[1] != "resumed" {
		t.Fatalf("trace %v, want [cleanup resumed]", trace)
	}
}

func TestEnsureReverseOrder(t *testing.T) {
	var trace []int
	op := kont.Then(strand.EnsureFunc(func() { trace = append(trace, 1) }),
		kont.Then(strand.EnsureFunc(func() { trace = append(trace, 2) }),
			kont.Then(strand.EnsureFunc(func() { trace = append(trace, 3) }),
				unit())))
	mustRun(t, op)
	if len(trace) != 3 || trace[0] != 3 || trace[1] != 2 || trace[2] != 1 {
		t.Fatalf("trace %v, want [3 2 1]", trace)
	}
}

func TestEnsureRunsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	op := kont.Then(strand.EnsureFunc(func() { ran = true }), strand.Fail[struct{}](boom))
	if _, err := strand.Run(op); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
	if !ran {
		t.Fatal("cleanup did not run on failure")
	}
}

func TestResourceProvidesAndCleansUp(t *testing.T) {
	counter := 0
	res := strand.Resource(func(provide func(*int) strand.Op[struct{}]) strand.Op[struct{}] {
		return strand.Lazy(func() strand.Op[struct{}] {
			counter++
			return kont.Then(
				strand.EnsureFunc(func() { counter-- }),
				provide(&counter),
			)
		})
	})
	op := kont.Bind(res, func(h *int) strand.Op[int] {
		return kont.Pure(*h)
	})
	if got := mustRun(t, op); got != 1 {
		t.Fatalf("handle got %d, want 1", got)
	}
	if counter != 0 {
		t.Fatalf("counter after run got %d, want 0", counter)
	}
}

func TestResourceSetupFailureSurfacesAtYieldSite(t *testing.T) {
	boom := errors.New("setup failed")
	res := strand.Resource(func(func(int) strand.Op[struct{}]) strand.Op[struct{}] {
		return strand.Fail[struct{}](boom)
	})
	got := mustRun(t, strand.Try(res))
	left, ok := got.GetLeft()
	if !ok || !errors.Is(left, boom) {
		t.Fatalf("got %v, want Left(%v)", got, boom)
	}
}

func TestResourceWithoutProvideFails(t *testing.T) {
	res := strand.Resource(func(func(int) strand.Op[struct{}]) strand.Op[struct{}] {
		return unit()
	})
	_, err := strand.Run(res)
	if err == nil || !strings.Contains(err.Error(), "without providing") {
		t.Fatalf("got %v, want provide error", err)
	}
}

func TestResourceLivesUntilScopeEnd(t *testing.T) {
	var trace []string
	res := strand.Resource(func(provide func(struct{}) strand.Op[struct{}]) strand.Op[struct{}] {
		return kont.Then(
			strand.EnsureFunc(func() { trace = append(trace, "release") }),
			provide(struct{}{}),
		)
	})
	op := kont.Bind(res, func(struct{}) strand.Op[struct{}] {
		return strand.Lazy(func() strand.Op[struct{}] {
			trace = append(trace, "used")
			return unit()
		})
	})
	mustRun(t, op)
	if len(trace) != 2 || trace[0] != "used" || trace[1] != "release" {
		t.Fatalf("trace %v, want [used release]", trace)
	}
}

func TestSpawnAndAwait(t *testing.T) {
	op := kont.Bind(strand.Spawn(kont.Pure(5)), func(task *strand.Task[int]) strand.Op[int] {
		return task.Await()
	})
	if got := mustRun(t, op); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestSpawnErrorPromotesToScope(t *testing.T) {
	boom := errors.New("background boom")
	op := kont.Then(
		strand.Spawn(strand.Fail[struct{}](boom)),
		strand.Suspend(),
	)
	if _, err := strand.Run(op); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestFailPropagatesThroughDelegation(t *testing.T) {
	boom := errors.New("deep boom")
	inner := kont.Bind(kont.Pure(1), func(int) strand.Op[int] {
		return strand.Fail[int](boom)
	})
	outer := kont.Bind(inner, func(v int) strand.Op[int] {
		t.Fatal("continuation after failure must not run")
		return kont.Pure(v)
	})
	if _, err := strand.Run(outer); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestLazyRunsPerEvaluation(t *testing.T) {
	runs := 0
	op := strand.Lazy(func() strand.Op[int] {
		runs++
		return kont.Pure(runs)
	})
	if got := mustRun(t, op); got != 1 {
		t.Fatalf("first evaluation got %d, want 1", got)
	}
	if got := mustRun(t, op); got != 2 {
		t.Fatalf("second evaluation got %d, want 2", got)
	}
}
