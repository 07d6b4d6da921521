// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive operation as an iterative trampoline.
// step returns Left(nextState) to continue or Right(result) to finish.
// This is the looping form for operation bodies, which have no native
// iteration construct.
func Loop[S, A any](initial S, step func(S) Op[kont.Either[S, A]]) Op[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) Op[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}
