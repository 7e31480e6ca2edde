// Package brewing implements the potion brewer scenario, a three-way
// rendezvous in the cigarette-smokers family: for each ingredient type there
// is an agent that supplies the other two ingredients, a broker that pairs
// ingredients on the shared table, and a brewer that proceeds once both of
// its missing ingredients have been supplied.
package brewing

import (
	"context"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parlour/parlour/internal/config"
)

// Engine owns the station and the nine role workers. Unlike the other
// engines its workers can fail — a corrupt table aborts the whole run — so
// the roles run under an errgroup and the first error cancels the rest.
type Engine struct {
	timing  config.Timing
	runID   string
	seed    int64
	station *Station

	supplies [Types]atomic.Int64
	brews    [Types]atomic.Int64
}

// NewEngine creates a brewing engine with an empty table.
func NewEngine(timing config.Timing) *Engine {
	return &Engine{
		timing:  timing,
		runID:   uuid.New().String()[:8],
		seed:    time.Now().UnixNano(),
		station: NewStation(),
	}
}

// Run spawns one agent, one broker, and one brewer per ingredient type and
// blocks until ctx is cancelled or a role reports an invariant violation.
// Every role wait is context-aware, so cancellation never strands a parked
// worker.
func (e *Engine) Run(ctx context.Context) error {
	e.logEvent("starting", map[string]interface{}{
		"agents": Types, "brokers": Types, "brewers": Types,
	})

	g, ctx := errgroup.WithContext(ctx)
	for t := 0; t < Types; t++ {
		t := t
		g.Go(func() error { return e.agent(ctx, t) })
		g.Go(func() error { return e.broker(ctx, t) })
		g.Go(func() error { return e.brewer(ctx, t) })
	}
	err := g.Wait()

	totals := make(map[string]interface{}, 2*Types)
	for t := 0; t < Types; t++ {
		totals["supplies_"+ingredientNames[t]] = e.supplies[t].Load()
		totals["brews_"+ingredientNames[t]] = e.brews[t].Load()
	}
	e.logEvent("stopped", totals)
	return err
}

// agent waits its turn on the shared rendezvous semaphore, then supplies the
// two ingredients its type's brewer lacks. Which of the three agents wins a
// given turn is deliberately unspecified.
func (e *Engine) agent(ctx context.Context, t int) error {
	log.Printf("[Brewing] run=%s agent %s starting", e.runID, ingredientNames[t])
	for {
		if !e.station.agentTurn.Acquire(ctx) {
			log.Printf("[Brewing] run=%s agent %s exiting", e.runID, ingredientNames[t])
			return nil
		}
		e.station.supply(t)
		e.supplies[t].Add(1)
	}
}

// broker waits for its own ingredient to appear on the table, then runs one
// pairing step under the station lock.
func (e *Engine) broker(ctx context.Context, t int) error {
	log.Printf("[Brewing] run=%s broker %s starting", e.runID, ingredientNames[t])
	for {
		if !e.station.ingredients[t].avail.Acquire(ctx) {
			log.Printf("[Brewing] run=%s broker %s exiting", e.runID, ingredientNames[t])
			return nil
		}
		if err := e.station.match(t); err != nil {
			log.Printf("[Brewing] run=%s broker %s aborting: %v", e.runID, ingredientNames[t], err)
			return err
		}
	}
}

// brewer waits until both of its missing ingredients have been paired, brews,
// and hands the turn back to the agents.
func (e *Engine) brewer(ctx context.Context, t int) error {
	log.Printf("[Brewing] run=%s brewer %s starting", e.runID, ingredientNames[t])
	rng := rand.New(rand.NewSource(e.seed + int64(t)))
	for {
		if !e.station.brewSignal[t].Acquire(ctx) {
			log.Printf("[Brewing] run=%s brewer %s exiting", e.runID, ingredientNames[t])
			return nil
		}
		time.Sleep(config.SleepRange(rng, e.timing.BrewMinMS, e.timing.BrewMaxMS))
		e.brews[t].Add(1)
		e.station.agentTurn.Release()
	}
}

func (e *Engine) logEvent(event string, data map[string]interface{}) {
	log.Printf("[Brewing] run=%s event=%s %v", e.runID, event, data)
}
