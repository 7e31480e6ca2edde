package brewing

import (
	"fmt"
	"sync"

	"github.com/parlour/parlour/internal/sem"
)

// Types is the number of ingredient types, and with it the number of agents,
// brokers and brewers.
const Types = 3

// ingredientNames indexes the three ingredient types.
var ingredientNames = [Types]string{"wormwood", "asphodel", "valerian"}

// ErrTableCorrupt reports an impossible station state: both of a broker's
// complement ingredients flagged as awaiting pairing at once. Correct
// protocol keeps at most one ingredient on the table, so this is a
// programmer error and aborts the run rather than being papered over.
var ErrTableCorrupt = fmt.Errorf("brewing: ingredient table corrupt")

// Ingredient is one slot of the shared table: its availability semaphore is
// posted by an agent when the ingredient is supplied, and the flag marks an
// ingredient that a broker has seen but not yet paired.
type Ingredient struct {
	name    string
	avail   *sem.Binary
	flagged bool // guarded by Station.mu
}

// Station owns every shared primitive of the brewing scenario: the three
// ingredients, the brew signal per type, the shared agent rendezvous
// semaphore, and the single lock serializing all broker flag checks. It is
// built once per run and shared by reference with the role loops.
type Station struct {
	mu          sync.Mutex
	ingredients [Types]*Ingredient
	brewSignal  [Types]*sem.Binary
	agentTurn   *sem.Binary
}

// NewStation returns a station with an empty table and the agent semaphore
// posted, so exactly one supply cycle can start.
func NewStation() *Station {
	s := &Station{agentTurn: sem.NewPosted()}
	for i := range s.ingredients {
		s.ingredients[i] = &Ingredient{
			name:  ingredientNames[i],
			avail: sem.New(),
		}
		s.brewSignal[i] = sem.New()
	}
	return s
}

// supply puts the two complements of type t on the table, posting each
// ingredient's availability semaphore. This is the agent's action after it
// wins the rendezvous: the agent for a type provides everything that type's
// brewer is missing.
func (s *Station) supply(t int) {
	s.ingredients[(t+1)%Types].avail.Release()
	s.ingredients[(t+2)%Types].avail.Release()
}

// match runs one broker step for ingredient t, after t's availability
// semaphore has been consumed. Under the station lock it pairs t with a
// flagged complement if one exists — waking the brewer of the third type —
// or flags t as the pending table state otherwise.
func (s *Station) match(t int) error {
	first := (t + 1) % Types
	second := (t + 2) % Types

	s.mu.Lock()
	defer s.mu.Unlock()

	firstFlagged := s.ingredients[first].flagged
	secondFlagged := s.ingredients[second].flagged

	switch {
	case firstFlagged && secondFlagged:
		return fmt.Errorf("%w: %s and %s both awaiting pairing",
			ErrTableCorrupt, s.ingredients[first].name, s.ingredients[second].name)
	case firstFlagged:
		s.ingredients[first].flagged = false
		s.brewSignal[third(t, first)].Release()
	case secondFlagged:
		s.ingredients[second].flagged = false
		s.brewSignal[third(t, second)].Release()
	default:
		s.ingredients[t].flagged = true
	}
	return nil
}

// third returns the type that is neither a nor b. When ingredients a and b
// are both on the table, the brewer of the third type can proceed.
func third(a, b int) int {
	return Types - a - b
}
