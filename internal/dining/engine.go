// Package dining implements the dining philosophers scenario: five
// philosophers share five forks, and philosopher 0's swapped fork order
// breaks the circular wait that would otherwise allow deadlock.
package dining

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/parlour/parlour/internal/config"
	"github.com/parlour/parlour/internal/sem"
)

// Seats is the fixed table size: five philosophers, five forks.
const Seats = 5

const noHolder = -1

// Phase is a philosopher's position in the think-eat cycle.
type Phase int32

const (
	Thinking Phase = iota
	Hungry
	Eating
	Exiting
)

func (p Phase) String() string {
	switch p {
	case Thinking:
		return "thinking"
	case Hungry:
		return "hungry"
	case Eating:
		return "eating"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Engine owns the fork set and the five philosopher workers.
type Engine struct {
	timing config.Timing
	runID  string
	seed   int64

	forks   [Seats]*sem.Binary
	holders [Seats]atomic.Int32
	phases  [Seats]atomic.Int32
	meals   [Seats]atomic.Int64
}

// NewEngine creates a dining engine with all forks free.
func NewEngine(timing config.Timing) *Engine {
	e := &Engine{
		timing: timing,
		runID:  uuid.New().String()[:8],
		seed:   time.Now().UnixNano(),
	}
	for i := range e.forks {
		e.forks[i] = sem.NewPosted()
		e.holders[i].Store(noHolder)
	}
	return e
}

// forkPair returns the order philosopher p picks up forks: always the
// assigned right fork first, then the left — except philosopher 0, whose
// left/right assignment is swapped. One seat acquiring in the opposite
// rotation is necessary and sufficient to break the circular wait among
// five seats sharing five forks.
func forkPair(p int) (first, second int) {
	left, right := p, (p+1)%Seats
	if p == 0 {
		left, right = right, left
	}
	return right, left
}

// Run spawns the five philosophers and joins them. Termination is observed
// only at the top of the think-eat cycle, so shutdown latency is bounded by
// one full cycle: a philosopher already reaching for a fork completes the
// acquisition, eats, and releases before exiting.
func (e *Engine) Run(ctx context.Context) error {
	e.logEvent("starting", map[string]interface{}{"philosophers": Seats})

	var wg sync.WaitGroup
	for p := 0; p < Seats; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			e.dine(ctx, p)
		}(p)
	}
	wg.Wait()

	totals := make(map[string]interface{}, Seats)
	for p := 0; p < Seats; p++ {
		totals[fmt.Sprintf("philosopher_%d_meals", p)] = e.meals[p].Load()
	}
	e.logEvent("stopped", totals)
	return nil
}

// dine is the philosopher worker loop: think, acquire both forks, eat,
// release, repeat until termination is observed.
func (e *Engine) dine(ctx context.Context, p int) {
	log.Printf("[Dining] run=%s philosopher %d seated", e.runID, p)
	rng := rand.New(rand.NewSource(e.seed + int64(p)))
	first, second := forkPair(p)

	for {
		if ctx.Err() != nil {
			e.setPhase(p, Exiting)
			log.Printf("[Dining] run=%s philosopher %d leaving after %d meals", e.runID, p, e.meals[p].Load())
			return
		}

		e.setPhase(p, Thinking)
		time.Sleep(config.SleepRange(rng, e.timing.ThinkMinMS, e.timing.ThinkMaxMS))

		e.setPhase(p, Hungry)
		e.acquireFork(first, p)
		e.acquireFork(second, p)

		e.setPhase(p, Eating)
		time.Sleep(config.SleepRange(rng, e.timing.EatMinMS, e.timing.EatMaxMS))
		e.meals[p].Add(1)

		e.releaseFork(first, p)
		e.releaseFork(second, p)
	}
}

// acquireFork blocks until fork f is free and records p as its holder. Fork
// waits have no cancellation point: a blocked philosopher will eventually
// receive the fork because the wait graph is acyclic, so this is correct
// behavior, not a fault. A fork that already has a holder when the wait
// returns means mutual exclusion broke; that is a corrupted run.
func (e *Engine) acquireFork(f, p int) {
	e.forks[f].AcquireBlocking()
	if !e.holders[f].CompareAndSwap(noHolder, int32(p)) {
		panic(fmt.Sprintf("dining: fork %d acquired by philosopher %d while held by %d", f, p, e.holders[f].Load()))
	}
}

func (e *Engine) releaseFork(f, p int) {
	if !e.holders[f].CompareAndSwap(int32(p), noHolder) {
		panic(fmt.Sprintf("dining: fork %d released by philosopher %d who does not hold it", f, p))
	}
	e.forks[f].Release()
}

func (e *Engine) setPhase(p int, ph Phase) {
	e.phases[p].Store(int32(ph))
}

// phase returns philosopher p's current phase.
func (e *Engine) phase(p int) Phase {
	return Phase(e.phases[p].Load())
}

func (e *Engine) logEvent(event string, data map[string]interface{}) {
	log.Printf("[Dining] run=%s event=%s %v", e.runID, event, data)
}
