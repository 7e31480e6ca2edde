// Package sem provides the binary semaphore used by the dining and brewing
// engines. A Binary has capacity one: Release on an already-posted semaphore
// is a programmer error and panics rather than silently dropping the post.
package sem

import "context"

// Binary is a capacity-1 semaphore backed by a buffered channel. The zero
// value is not usable; construct with New or NewPosted.
type Binary struct {
	ch chan struct{}
}

// New returns a Binary in the unavailable state: the first Acquire blocks
// until someone calls Release.
func New() *Binary {
	return &Binary{ch: make(chan struct{}, 1)}
}

// NewPosted returns a Binary that is already available, so the first Acquire
// succeeds immediately. Used for resources that start out free (forks, the
// brewing agent rendezvous).
func NewPosted() *Binary {
	b := New()
	b.ch <- struct{}{}
	return b
}

// Acquire blocks until the semaphore is posted or ctx is cancelled. It
// returns true when the semaphore was acquired, false on cancellation.
func (b *Binary) Acquire(ctx context.Context) bool {
	select {
	case <-b.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// AcquireBlocking waits for the semaphore with no cancellation point.
// A philosopher already reaching for a fork must complete that acquisition
// even during shutdown, so fork waits use this form.
func (b *Binary) AcquireBlocking() {
	<-b.ch
}

// TryAcquire acquires the semaphore if it is available right now.
func (b *Binary) TryAcquire() bool {
	select {
	case <-b.ch:
		return true
	default:
		return false
	}
}

// Release posts the semaphore, waking one waiter. Releasing a semaphore that
// is already posted means two holders thought they owned the same resource;
// that is a corrupted run, so it panics.
func (b *Binary) Release() {
	select {
	case b.ch <- struct{}{}:
	default:
		panic("sem: release of an already-posted binary semaphore")
	}
}
