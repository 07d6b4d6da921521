// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/strand"
)

func TestRunPure(t *testing.T) {
	if got := mustRun(t, kont.Pure(42)); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestRunZeroValue(t *testing.T) {
	var p *int
	if got := mustRun(t, kont.Pure(p)); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestRunError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := strand.Run(strand.Fail[int](boom)); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestRunPanicBecomesError(t *testing.T) {
	op := strand.Lazy(func() strand.Op[int] {
		panic("kaboom")
	})
	_, err := strand.Run(op)
	var pe *strand.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Fatalf("panic value got %v, want kaboom", pe.Value)
	}
	if len(pe.Stack) == 0 {
		t.Fatal("panic stack not captured")
	}
}

// A root settling while a background frame is still live halts the frame and
// runs its cleanup before Run returns: no frame outlives its scope.
func TestRunHaltsBackgroundOnReturn(t *testing.T) {
	cleaned := false
	op := kont.Then(
		strand.Spawn(forever(func() { cleaned = true })),
		kont.Pure("done"),
	)
	if got := mustRun(t, op); got != "done" {
		t.Fatalf("got %q, want done", got)
	}
	if !cleaned {
		t.Fatal("background frame outlived the root scope")
	}
}

// The dangling-spawn scenario: one background frame runs forever, another
// fails; the root reports the failure and the survivor was halted with its
// cleanup complete before Run returned.
func TestRunDanglingSpawn(t *testing.T) {
	boom := errors.New("b failed")
	var aTask *strand.Task[struct{}]
	aCleaned := false
	op := kont.Bind(strand.Spawn(forever(func() { aCleaned = true })), func(a *strand.Task[struct{}]) strand.Op[struct{}] {
		aTask = a
		return kont.Then(
			strand.Spawn(kont.Then(strand.Sleep(10*time.Millisecond), strand.Fail[struct{}](boom))),
			strand.Suspend(),
		)
	})
	_, err := strand.Run(op)
	if !errors.Is(err, boom) {
		t.Fatalf("root outcome got %v, want %v", err, boom)
	}
	if !aCleaned {
		t.Fatal("sibling cleanup did not run before root settled")
	}
	if _, aErr := aTask.Result(); !errors.Is(aErr, strand.ErrHalted) {
		t.Fatalf("sibling outcome got %v, want ErrHalted", aErr)
	}
}

