// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Run creates a root scope, drives op to completion in it on the calling
// goroutine, and returns op's outcome. Background frames spawned under the
// root are halted in reverse attachment order once op settles; a failure
// anywhere under the root surfaces as Run's error. A root halted externally
// reports ErrHalted.
//
// Run blocks without spawning goroutines or creating channels, waiting out
// idle stretches with adaptive backoff while external events (timers, host
// callbacks) land on the run queue.
func Run[A any](op Op[A]) (A, error) {
	e := &executor{}
	root := newScope(e, nil)
	out := driveRoot(e, root, erase(op))
	switch out.kind {
	case outcomeValue:
		return unbox[A](out.value), nil
	case outcomeError:
		var zero A
		return zero, out.err
	default:
		var zero A
		return zero, ErrHalted
	}
}

// driveRoot attaches a main frame for body to root, drains the run queue
// until the root settles, and returns the root outcome.
func driveRoot(e *executor, root *Scope, body Op[any]) outcome {
	main := newFrame(e, root, body)
	root.attach(main)
	main.watch(func(out outcome) {
		if root.state == scopeActive {
			root.terminate(out)
		}
	})
	main.start()
	e.drive(func() bool { return root.state == scopeDone })
	return root.result
}

// Main runs op bound to the host process lifecycle: an interrupt or
// termination signal halts the root scope, which unwinds every frame before
// the process exits. A failure is printed to stderr and exits with status 1;
// completion and halt exit cleanly.
func Main(op Op[struct{}]) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	if code := mainWith(op, os.Stderr, sigs); code != 0 {
		os.Exit(code)
	}
}

// mainWith is the testable core of Main: sigs halts the root, failures are
// printed to stderr, and the exit status is returned.
func mainWith(op Op[struct{}], stderr io.Writer, sigs <-chan os.Signal) int {
	e := &executor{}
	root := newScope(e, nil)
	stop := make(chan struct{})
	defer close(stop)
	if sigs != nil {
		go func() {
			select {
			case <-sigs:
				e.enqueue(func() { root.requestHalt(nil) })
			case <-stop:
			}
		}()
	}
	out := driveRoot(e, root, erase(op))
	if out.kind == outcomeError {
		fmt.Fprintf(stderr, "%v\n", out.err)
		return 1
	}
	return 0
}
