// Package prodcon implements the bounded-buffer producer/consumer scenario:
// N producers and M consumers share a 100-slot ring buffer guarded by one
// mutex and two condition variables.
package prodcon

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/parlour/parlour/internal/config"
)

// Engine owns the shared buffer and the producer/consumer worker pools.
// Construct with NewEngine; Run blocks until ctx is cancelled and every
// worker has been joined.
type Engine struct {
	producerCount int
	consumerCount int
	timing        config.Timing
	runID         string
	seed          int64

	mu       sync.Mutex
	buf      *RingBuffer
	notFull  *sync.Cond
	notEmpty *sync.Cond
	stopping bool

	produced atomic.Int64
	consumed atomic.Int64
}

// NewEngine creates a producer/consumer engine with the given worker counts.
// Both counts must be positive; the CLI validates this before construction.
func NewEngine(producers, consumers int, timing config.Timing) *Engine {
	e := &Engine{
		producerCount: producers,
		consumerCount: consumers,
		timing:        timing,
		runID:         uuid.New().String()[:8],
		seed:          time.Now().UnixNano(),
		buf:           NewRingBuffer(),
	}
	e.notFull = sync.NewCond(&e.mu)
	e.notEmpty = sync.NewCond(&e.mu)
	return e
}

// Run spawns the workers and blocks until ctx is cancelled, then wakes every
// parked worker and joins producers first, consumers second. Consumers start
// before producers so an eager producer pool cannot choke the queue while
// nothing drains it.
func (e *Engine) Run(ctx context.Context) error {
	e.logEvent("starting", map[string]interface{}{
		"producers": e.producerCount,
		"consumers": e.consumerCount,
	})

	var producerWG, consumerWG sync.WaitGroup

	for i := 0; i < e.consumerCount; i++ {
		consumerWG.Add(1)
		go func(id int) {
			defer consumerWG.Done()
			e.consume(ctx, id)
		}(i)
	}
	for i := 0; i < e.producerCount; i++ {
		producerWG.Add(1)
		go func(id int) {
			defer producerWG.Done()
			e.produce(ctx, id)
		}(i)
	}

	<-ctx.Done()

	// Workers parked in a cond wait cannot observe ctx; flip the stop bit
	// under the lock and broadcast both conditions so none sleeps through
	// shutdown.
	e.mu.Lock()
	e.stopping = true
	e.mu.Unlock()
	e.notFull.Broadcast()
	e.notEmpty.Broadcast()

	producerWG.Wait()
	consumerWG.Wait()

	e.logEvent("stopped", map[string]interface{}{
		"produced": e.produced.Load(),
		"consumed": e.consumed.Load(),
		"backlog":  e.backlog(),
	})
	return nil
}

// produce is the producer worker loop: jittered sleep, then a guarded push,
// until termination is observed.
func (e *Engine) produce(ctx context.Context, id int) {
	log.Printf("[ProdCon] run=%s starting producer %d", e.runID, id)
	rng := rand.New(rand.NewSource(e.seed + int64(id)))

	seq := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("[ProdCon] run=%s producer %d exiting", e.runID, id)
			return
		default:
		}

		time.Sleep(config.SleepJitter(rng, e.timing.MaxWorkerSleepMS))

		// Distinct values per producer so a drained run can account for
		// every item.
		if !e.put(id<<20 | seq) {
			log.Printf("[ProdCon] run=%s producer %d exiting", e.runID, id)
			return
		}
		seq++
		e.produced.Add(1)
	}
}

// consume is the consumer worker loop, the mirror image of produce.
func (e *Engine) consume(ctx context.Context, id int) {
	log.Printf("[ProdCon] run=%s starting consumer %d", e.runID, id)
	rng := rand.New(rand.NewSource(e.seed - int64(id) - 1))

	for {
		select {
		case <-ctx.Done():
			log.Printf("[ProdCon] run=%s consumer %d exiting", e.runID, id)
			return
		default:
		}

		time.Sleep(config.SleepJitter(rng, e.timing.MaxWorkerSleepMS))

		if _, ok := e.take(); !ok {
			log.Printf("[ProdCon] run=%s consumer %d exiting", e.runID, id)
			return
		}
		e.consumed.Add(1)
	}
}

// put blocks while the buffer is full, then pushes v. The fullness re-check
// runs in a loop: with several producers a signaled waiter can lose the race
// to another writer, and cond waits can wake spuriously. Returns false when
// the engine is shutting down.
func (e *Engine) put(v int) bool {
	e.mu.Lock()
	for e.buf.Full() && !e.stopping {
		e.notFull.Wait()
	}
	if e.stopping {
		e.mu.Unlock()
		return false
	}
	e.buf.Push(v)
	e.mu.Unlock()
	e.notEmpty.Signal()
	return true
}

// take blocks while the buffer is empty, then pops the oldest value.
// Returns ok=false when the engine is shutting down.
func (e *Engine) take() (int, bool) {
	e.mu.Lock()
	for e.buf.Empty() && !e.stopping {
		e.notEmpty.Wait()
	}
	if e.stopping {
		e.mu.Unlock()
		return 0, false
	}
	v := e.buf.Pop()
	e.mu.Unlock()
	e.notFull.Signal()
	return v, true
}

// backlog returns how many pushed values were never consumed.
func (e *Engine) backlog() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Len()
}

// drain empties the buffer after shutdown. The engine never drains on its
// own; the accounting tests use this to close the produced/consumed ledger.
func (e *Engine) drain() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	var rest []int
	for !e.buf.Empty() {
		rest = append(rest, e.buf.Pop())
	}
	return rest
}

func (e *Engine) logEvent(event string, data map[string]interface{}) {
	log.Printf("[ProdCon] run=%s event=%s %v", e.runID, event, data)
}
