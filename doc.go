// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package strand provides a structured-concurrency runtime on
// [code.hybscloud.com/kont]: a cooperative scheduler whose unit of work is an
// operation — a lazy, restartable effectful computation — and whose unit of
// execution is a frame bound to a hierarchical scope.
//
// Every started operation has a lifetime bounded by its enclosing scope;
// every scope unwinds its children deterministically, in reverse attachment
// order, on completion, failure, and cancellation; and cleanup registered
// inside an operation runs on every exit path.
//
// # Architecture
//
//   - Operations: an [Op] is a [kont.Eff] — compose with [kont.Bind],
//     [kont.Map], [kont.Then], [kont.Pure]; defer imperative setup with [Lazy].
//   - Evaluation: frames drive bodies one instruction at a time via
//     [kont.Step] and one-shot [kont.Suspension] resumption; a halt discards
//     the live suspension and sweeps the exit stack.
//   - Scheduling: single-threaded cooperative FIFO run queue per [Run];
//     host callbacks enqueue and idle stretches wait with adaptive backoff
//     ([code.hybscloud.com/iox]).
//   - Streams: per-subscriber bounded SPSC rings via
//     [code.hybscloud.com/lfq], with sender back-pressure at the
//     [code.hybscloud.com/iox.ErrWouldBlock] boundary.
//
// # API Topologies
//
//   - Primitives: [Suspend], [Action], [Resource], [Spawn], [Ensure],
//     [EnsureFunc], [CurrentScope], [Fail], [Lazy].
//   - Combinators: [All], [Race], [Call], [Try], [WithTimeout], [Sleep],
//     [Loop].
//   - Handles: [Task] (await, halt, host-side result), [Scope] with [RunIn]
//     for out-of-band injection, [WithResolvers] for callback bridging.
//   - Streams: [NewChannel] ([Port], [Stream], [Subscription]), [NewSignal]
//     for host event systems, [NewQueue] for single-consumer buffering.
//   - Coordination: [NewSemaphore] with [WithSemaphore] for halt-safe
//     weight bracketing.
//
// # Lifetimes
//
// Failure in any frame promotes to its scope and halts the remaining
// siblings; halted frames complete quietly. Background failures surface at
// the nearest [Call] or [Try] boundary, never at arbitrary suspension
// points. Halting is idempotent and completes only when the frame's exit
// stack has finished; errors raised during teardown are aggregated into
// [CleanupError] with the first as the cause.
//
// # Entry Points
//
//   - [Run]: drive an operation under a fresh root scope on the calling
//     goroutine, without spawning goroutines or creating channels.
//   - [Main]: as Run, bound to the host process — a termination signal halts
//     the root, failures print to stderr and exit nonzero.
//
// # Example
//
//	result, err := strand.Run(kont.Bind(
//		strand.Spawn(strand.Sleep(time.Millisecond)),
//		func(t *strand.Task[struct{}]) strand.Op[int] {
//			return kont.Then(t.Await(), kont.Pure(42))
//		},
//	))
//	// result == 42, err == nil
package strand
