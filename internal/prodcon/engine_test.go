package prodcon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlour/parlour/internal/config"
)

func fastTiming() config.Timing {
	t := config.Default().Timing
	t.MaxWorkerSleepMS = 2
	return t
}

func TestEngine_RunStopsAfterCancel(t *testing.T) {
	e := NewEngine(3, 2, fastTiming())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	// Every worker must be joined within a few multiples of the sleep cap.
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not shut down after cancellation")
	}

	assert.Positive(t, e.produced.Load())
	assert.Positive(t, e.consumed.Load())
}

func TestEngine_ShutdownWakesParkedConsumers(t *testing.T) {
	// No producers ever push, so every consumer parks on the not-empty
	// condition; shutdown must still complete via the broadcast.
	e := NewEngine(0, 4, fastTiming())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("parked consumers were never woken")
	}
}

func TestEngine_ShutdownWakesParkedProducers(t *testing.T) {
	// Pre-fill the buffer so producers park on the not-full condition.
	e := NewEngine(3, 0, fastTiming())
	e.mu.Lock()
	for i := 0; !e.buf.Full(); i++ {
		e.buf.Push(i)
	}
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("parked producers were never woken")
	}
}

// TestEngine_NoLostOrDuplicatedItems drives the guarded put/take operations
// from concurrent workers, stops the run, drains the backlog in the test
// harness, and checks the multiset pushed equals the multiset popped plus
// the drained remainder.
func TestEngine_NoLostOrDuplicatedItems(t *testing.T) {
	e := NewEngine(0, 0, fastTiming())

	const workers = 4
	const perWorker = 500

	var (
		mu       sync.Mutex
		pushed   = make(map[int]int)
		popped   = make(map[int]int)
		takersWG sync.WaitGroup
		pushWG   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		takersWG.Add(1)
		go func() {
			defer takersWG.Done()
			for {
				v, ok := e.take()
				if !ok {
					return
				}
				mu.Lock()
				popped[v]++
				mu.Unlock()
			}
		}()
	}

	for w := 0; w < workers; w++ {
		pushWG.Add(1)
		go func(id int) {
			defer pushWG.Done()
			for i := 0; i < perWorker; i++ {
				v := id<<20 | i
				if !e.put(v) {
					return
				}
				mu.Lock()
				pushed[v]++
				mu.Unlock()
			}
		}(w)
	}

	pushWG.Wait()

	// Stop the run the same way Engine.Run does, then account for the
	// backlog the consumers never reached.
	e.mu.Lock()
	e.stopping = true
	e.mu.Unlock()
	e.notFull.Broadcast()
	e.notEmpty.Broadcast()
	takersWG.Wait()

	for _, v := range e.drain() {
		popped[v]++
	}

	require.Equal(t, workers*perWorker, len(pushed))
	assert.Equal(t, pushed, popped)
}

func TestEngine_PutBlocksWhenFull(t *testing.T) {
	e := NewEngine(0, 0, fastTiming())

	for i := 0; i < Capacity-1; i++ {
		require.True(t, e.put(i))
	}

	blocked := make(chan bool, 1)
	go func() {
		blocked <- e.put(999)
	}()

	select {
	case <-blocked:
		t.Fatal("put into a full buffer returned without a pop")
	case <-time.After(30 * time.Millisecond):
	}

	v, ok := e.take()
	require.True(t, ok)
	assert.Equal(t, 0, v)

	select {
	case ok := <-blocked:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("put never woke after space was freed")
	}
}
