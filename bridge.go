// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
)

// Signal bridges host event systems into a channel: Send and Close are plain
// callables safe to invoke from any goroutine, routed into the creating
// scope via RunIn. The signal's lifetime is bound to that scope; once the
// scope has terminated, sends are dropped silently.
type Signal[T, C any] struct {
	// Stream subscribes to the values delivered through the signal.
	Stream Stream[T, C]

	scope *Scope
	port  *Port[T, C]
}

// NewSignal creates a signal bound to the current scope. It is a resource:
// the underlying channel lives until the scope terminates.
func NewSignal[T, C any]() Op[*Signal[T, C]] {
	return Resource(func(provide func(*Signal[T, C]) Op[struct{}]) Op[struct{}] {
		return kont.Bind(CurrentScope(), func(sc *Scope) Op[struct{}] {
			port, stream := NewChannel[T, C]()
			return provide(&Signal[T, C]{Stream: stream, scope: sc, port: port})
		})
	})
}

// Send distributes v to the signal's subscribers. Safe to call from any
// goroutine; dropped once the owning scope has terminated.
func (s *Signal[T, C]) Send(v T) {
	RunIn(s.scope, s.port.Send(v))
}

// Close delivers the terminal result c to the signal's subscribers. Safe to
// call from any goroutine; dropped once the owning scope has terminated.
func (s *Signal[T, C]) Close(c C) {
	RunIn(s.scope, s.port.Close(c))
}
