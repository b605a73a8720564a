/*
Package lockfree provides two single-producer/single-consumer primitives
built on the same discipline: a fixed slot array gated by a pair of
cache-line-padded atomic cursors, with no locks and no blocking.

The primitives are handed out only as bound pairs of role-restricted
handles. Exactly one Sender and one Receiver (or one ValueWriter and one
ValueReader) exist per cell, each safe for exactly one goroutine; the
package offers no way to duplicate a handle, so the one-producer/
one-consumer discipline holds by construction rather than by convention.

Ring channel:

A bounded FIFO. Push fails with ErrFull instead of waiting, Pop fails
with ErrEmpty instead of waiting, and every successfully pushed value is
delivered exactly once, in order. One slot is reserved to tell a full
ring from an empty one, so a ring built with N slots carries at most N-1
values.

	tx, rx := lockfree.NewRingChannel[int](1024)

	go func() {
		for i := 0; ; i++ {
			for tx.Push(i) == lockfree.ErrFull {
				runtime.Gosched() // caller-chosen backoff
			}
		}
	}()

	for {
		if v, err := rx.Pop(); err == nil {
			process(v)
		}
	}

Latest value:

A multi-buffer for state, not events: Publish always succeeds and Take
returns only the most recent value, skipping anything superseded in
between. The writer's slot selection steps over the slot the reader last
claimed, so the value the reader holds is never rewritten under it.
Publish returns the displaced occupant of the slot it wrote, which lets
a fixed set of buffers rotate between the two sides (see
NewLatestValueInit).

	w, r := lockfree.NewLatestValue[Frame](4)

	w.Publish(f1)
	w.Publish(f2)          // f1 may never be seen, by design
	f, err := r.Take()     // f2
	_, err = r.Take()      // ErrEmpty until the next Publish

Polling:

IsFull, IsEmpty, Len, Changed and Unchanged are advisory snapshots: the
answer can be stale by the time the caller acts on it, so they must not
serve as a synchronization mechanism. The authoritative answer is the
error returned by the next Push, Pop or Take. PushContext, PopContext
and TakeContext package the obvious retry loop for callers that want to
poll until cancelled; the primitives themselves never block.
*/
package lockfree
