// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
)

// Queue is a single-consumer FIFO decoupling production from consumption.
// Add and Close are plain synchronous calls for use inside operation code;
// Next is an operation that suspends while the queue is empty. Unlike a
// channel subscription, a queue buffers without bound and has exactly one
// consumer; to bridge producers on other goroutines, use a Signal instead.
type Queue[T, C any] struct {
	buf        []streamItem[T, C]
	closed     bool
	terminated bool
	closeVal   C
	consumer   *future
}

// NewQueue creates an empty open queue.
func NewQueue[T, C any]() *Queue[T, C] {
	return &Queue[T, C]{}
}

// Add appends v to the queue, waking a parked consumer. After Close, Add is
// a no-op.
func (q *Queue[T, C]) Add(v T) {
	q.push(streamItem[T, C]{value: v})
}

// Close appends the terminal result c. Further adds are dropped.
func (q *Queue[T, C]) Close(c C) {
	q.push(streamItem[T, C]{closeVal: c, done: true})
	q.closed = true
}

func (q *Queue[T, C]) push(it streamItem[T, C]) {
	if q.closed || q.terminated {
		return
	}
	if fut := q.consumer; fut != nil {
		q.consumer = nil
		fut.settle(valueOutcome(boxed{v: it}))
		return
	}
	q.buf = append(q.buf, it)
}

// Next yields the next item as Right(value), or Left(closeResult) once the
// terminal marker is reached; thereafter it yields the terminal result
// forever. With an empty queue, Next suspends until Add or Close.
func (q *Queue[T, C]) Next() Op[kont.Either[C, T]] {
	return Lazy(func() Op[kont.Either[C, T]] {
		if q.terminated {
			return kont.Pure(kont.Left[C, T](q.closeVal))
		}
		if len(q.buf) > 0 {
			it := q.buf[0]
			q.buf = q.buf[1:]
			return kont.Pure(q.consume(it))
		}
		if q.consumer != nil {
			panic("strand: concurrent Next on queue")
		}
		fut := &future{}
		q.consumer = fut
		return kont.Map(kont.Perform(futureOp{fut: fut}), func(v any) kont.Either[C, T] {
			return q.consume(v.(boxed).v.(streamItem[T, C]))
		})
	})
}

func (q *Queue[T, C]) consume(it streamItem[T, C]) kont.Either[C, T] {
	if it.done {
		q.terminated = true
		q.closeVal = it.closeVal
		return kont.Left[C, T](it.closeVal)
	}
	return kont.Right[C](it.value)
}
