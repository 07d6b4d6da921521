// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package strand

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
)

// queueCapacity is the bounded capacity of each per-subscriber ring.
// 16 absorbs ordinary producer bursts; a full ring parks the sender on the
// subscriber until it drains (back-pressure), so correctness does not depend
// on the size.
const queueCapacity = 16

// streamItem is one slot of a subscriber ring: a value or the terminal
// marker carrying the close result.
type streamItem[T, C any] struct {
	value    T
	closeVal C
	done     bool
}

// channelState is the shared producer side: the set of live subscriber
// queues in registration order, plus the sticky closed flag.
type channelState[T, C any] struct {
	subs     []*Subscription[T, C]
	closed   bool
	closeVal C
}

// Port is the producer half of a channel: Send and Close operations that
// distribute to every live subscription.
type Port[T, C any] struct {
	ch *channelState[T, C]
}

// Stream is the consumer half of a channel: a stateless recipe that, when
// evaluated, produces a fresh Subscription bound to the current scope.
type Stream[T, C any] = Op[*Subscription[T, C]]

// Subscription is a stateful consumer with a private bounded queue of items
// produced after subscription time. Subscriptions are single-consumer and
// owned by the scope that created them; teardown deregisters the queue and
// releases any senders parked on it.
type Subscription[T, C any] struct {
	ch         *channelState[T, C]
	q          lfq.SPSC[streamItem[T, C]]
	dead       bool
	terminated bool
	closeVal   C
	consumer   *future   // parked Next, if any
	space      []*future // senders parked on a full ring
}

// NewChannel creates a multi-subscriber channel and returns its two halves.
// Values sent while the channel has live subscribers are delivered to each
// in send order; no value sent before a subscription existed is ever
// observed by it. Close delivers the terminal marker to every subscription
// at most once; further sends are dropped.
func NewChannel[T, C any]() (*Port[T, C], Stream[T, C]) {
	ch := &channelState[T, C]{}
	stream := Resource(func(provide func(*Subscription[T, C]) Op[struct{}]) Op[struct{}] {
		return Lazy(func() Op[struct{}] {
			sub := &Subscription[T, C]{ch: ch}
			sub.q.Init(queueCapacity)
			if ch.closed {
				sub.terminated = true
				sub.closeVal = ch.closeVal
			} else {
				ch.subs = append(ch.subs, sub)
			}
			return kont.Then(EnsureFunc(sub.drop), provide(sub))
		})
	})
	return &Port[T, C]{ch: ch}, stream
}

// Send enqueues v onto every live subscription in registration order,
// waking parked consumers. A subscriber whose ring is full parks the sender
// until that subscriber dequeues. After Close, Send is a no-op.
func (p *Port[T, C]) Send(v T) Op[struct{}] {
	return Lazy(func() Op[struct{}] {
		if p.ch.closed {
			return kont.Pure(struct{}{})
		}
		return sendEach(snapshot(p.ch.subs), streamItem[T, C]{value: v})
	})
}

// Close enqueues the terminal marker carrying c onto every live
// subscription and marks the channel closed.
func (p *Port[T, C]) Close(c C) Op[struct{}] {
	return Lazy(func() Op[struct{}] {
		if p.ch.closed {
			return kont.Pure(struct{}{})
		}
		p.ch.closed = true
		p.ch.closeVal = c
		return sendEach(snapshot(p.ch.subs), streamItem[T, C]{closeVal: c, done: true})
	})
}

// snapshot pins the subscriber set for one distribution: subscriptions
// created while a send is parked must not observe the in-flight item.
func snapshot[T, C any](subs []*Subscription[T, C]) []*Subscription[T, C] {
	out := make([]*Subscription[T, C], len(subs))
	copy(out, subs)
	return out
}

func sendEach[T, C any](subs []*Subscription[T, C], it streamItem[T, C]) Op[struct{}] {
	if len(subs) == 0 {
		return kont.Pure(struct{}{})
	}
	return kont.Then(subs[0].put(it), Lazy(func() Op[struct{}] {
		return sendEach(subs[1:], it)
	}))
}

// put delivers one item to this subscription: direct handoff to a parked
// consumer, otherwise enqueue; a full ring (the iox.ErrWouldBlock boundary
// of lfq) parks the sender on a space future and retries after the consumer
// makes progress.
func (s *Subscription[T, C]) put(it streamItem[T, C]) Op[struct{}] {
	return Lazy(func() Op[struct{}] {
		if s.dead || s.terminated {
			return kont.Pure(struct{}{})
		}
		if fut := s.consumer; fut != nil {
			s.consumer = nil
			fut.settle(valueOutcome(boxed{v: it}))
			return kont.Pure(struct{}{})
		}
		if err := s.q.Enqueue(&it); err == nil {
			return kont.Pure(struct{}{})
		}
		fut := &future{}
		s.space = append(s.space, fut)
		return kont.Then(awaitFuture(fut), s.put(it))
	})
}

// Next yields the next item as Right(value), or Left(closeResult) once the
// terminal marker is reached; thereafter it yields the terminal result
// forever. With an empty queue, Next suspends until the port produces.
func (s *Subscription[T, C]) Next() Op[kont.Either[C, T]] {
	return Lazy(func() Op[kont.Either[C, T]] {
		if s.terminated {
			return kont.Pure(kont.Left[C, T](s.closeVal))
		}
		if it, err := s.q.Dequeue(); err == nil {
			s.wakeSender()
			return kont.Pure(s.consume(it))
		}
		if s.consumer != nil {
			panic("strand: concurrent Next on subscription")
		}
		fut := &future{}
		s.consumer = fut
		return kont.Map(kont.Perform(futureOp{fut: fut}), func(v any) kont.Either[C, T] {
			return s.consume(v.(boxed).v.(streamItem[T, C]))
		})
	})
}

func (s *Subscription[T, C]) consume(it streamItem[T, C]) kont.Either[C, T] {
	if it.done {
		s.terminated = true
		s.closeVal = it.closeVal
		return kont.Left[C, T](it.closeVal)
	}
	return kont.Right[C](it.value)
}

// wakeSender releases one sender parked on ring space.
func (s *Subscription[T, C]) wakeSender() {
	if len(s.space) == 0 {
		return
	}
	fut := s.space[0]
	s.space = s.space[1:]
	fut.settle(valueOutcome(boxed{v: struct{}{}}))
}

// drop deregisters the subscription on teardown and releases every parked
// sender; a released sender observes the dead flag and skips this queue.
func (s *Subscription[T, C]) drop() {
	if s.dead {
		return
	}
	s.dead = true
	for i, x := range s.ch.subs {
		if x == s {
			s.ch.subs = append(s.ch.subs[:i], s.ch.subs[i+1:]...)
			break
		}
	}
	for _, fut := range s.space {
		fut.settle(valueOutcome(boxed{v: struct{}{}}))
	}
	s.space = nil
	s.consumer = nil
}
