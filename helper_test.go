// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand_test

import (
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/strand"
)

const time5ms = 5 * time.Millisecond

// mustRun drives op under a fresh root scope and fails the test on error.
func mustRun[A any](t *testing.T, op strand.Op[A]) A {
	t.Helper()
	v, err := strand.Run(op)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

// unit is the trivial operation.
func unit() strand.Op[struct{}] {
	return kont.Pure(struct{}{})
}

// forever parks until the enclosing scope ends, logging via fn on teardown.
func forever(fn func()) strand.Op[struct{}] {
	return kont.Then(strand.EnsureFunc(fn), strand.Suspend())
}
