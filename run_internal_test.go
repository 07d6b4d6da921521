// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"code.hybscloud.com/kont"
)

func TestMainSuccess(t *testing.T) {
	var stderr strings.Builder
	code := mainWith(kont.Pure(struct{}{}), &stderr, nil)
	if code != 0 {
		t.Fatalf("exit code got %d, want 0", code)
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestMainFailurePrintsCause(t *testing.T) {
	var stderr strings.Builder
	code := mainWith(Fail[struct{}](errors.New("fatal boom")), &stderr, nil)
	if code != 1 {
		t.Fatalf("exit code got %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "fatal boom") {
		t.Fatalf("stderr %q does not name the cause", stderr.String())
	}
}

// A termination signal halts the root: cleanup runs and the process exits
// cleanly. Halt at the root is silent success.
func TestMainSignalHaltsRoot(t *testing.T) {
	cleaned := false
	sigs := make(chan os.Signal, 1)
	go func() {
		time.Sleep(5 * time.Millisecond)
		sigs <- syscall.SIGTERM
	}()
	var stderr strings.Builder
	body := kont.Then(EnsureFunc(func() { cleaned = true }), Suspend())
	code := mainWith(body, &stderr, sigs)
	if code != 0 {
		t.Fatalf("exit code got %d, want 0", code)
	}
	if !cleaned {
		t.Fatal("root cleanup did not run on signal")
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

// Frames halted before their first advance settle quietly without running
// the body.
func TestHaltBeforeFirstAdvance(t *testing.T) {
	e := &executor{}
	root := newScope(e, nil)
	ran := false
	f := newFrame(e, root, erase(Lazy(func() Op[struct{}] {
		ran = true
		return kont.Pure(struct{}{})
	})))
	root.attach(f)
	f.start()
	f.requestHalt(nil)
	e.drive(func() bool { return f.state == stateSettled })
	if ran {
		t.Fatal("halted frame ran its body")
	}
	if f.result.kind != outcomeHalted {
		t.Fatalf("outcome kind got %d, want halted", f.result.kind)
	}
}
