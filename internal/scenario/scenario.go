// Package scenario resolves which of the three concurrency problems a
// command line selects and validates its parameters before any engine runs.
package scenario

import (
	"errors"
	"fmt"
)

// Scenario identifies one of the selectable concurrency problems.
type Scenario int

const (
	// None means no valid scenario was selected.
	None Scenario = iota
	// ProdCon is the bounded-buffer producer/consumer problem.
	ProdCon
	// Diners is the dining philosophers problem, fixed at five seats.
	Diners
	// Brewers is the potion brewer rendezvous problem, fixed at three of
	// each role.
	Brewers
)

func (s Scenario) String() string {
	switch s {
	case ProdCon:
		return "Producers/Consumers"
	case Diners:
		return "Dining Philosophers"
	case Brewers:
		return "Potion Brewers"
	default:
		return "Invalid"
	}
}

// ErrNoScenario is returned when validation runs without any scenario flag.
var ErrNoScenario = errors.New("no scenario selected")

// Select scans the raw argument list and returns the scenario named by the
// last scenario flag present. Flag parsing libraries report final values,
// not argument order, so last-one-wins has to be resolved on the raw args.
func Select(args []string) Scenario {
	s := None
	for _, arg := range args {
		switch arg {
		case "-p", "--prodcon":
			s = ProdCon
		case "-d", "--diners":
			s = Diners
		case "-b", "--brewers":
			s = Brewers
		}
	}
	return s
}

// Params is a resolved selection: the scenario plus the producer and
// consumer counts, which only the ProdCon scenario reads.
type Params struct {
	Scenario  Scenario
	Producers int
	Consumers int
}

// Validate checks the selection before any worker starts. Producer/consumer
// requires both counts present and positive; the fixed-shape scenarios
// accept (and ignore) whatever counts were passed.
func (p Params) Validate() error {
	switch p.Scenario {
	case None:
		return ErrNoScenario
	case ProdCon:
		if p.Producers <= 0 || p.Consumers <= 0 {
			return fmt.Errorf("for %s, both -n and -c must be present and each greater than zero (got -n %d -c %d)",
				p.Scenario, p.Producers, p.Consumers)
		}
	}
	return nil
}

// IgnoresCounts reports whether the selected scenario discards the -n/-c
// arguments, so the CLI can print the extra-parameters notice.
func (p Params) IgnoresCounts() bool {
	return p.Scenario != ProdCon && p.Scenario != None && (p.Producers != 0 || p.Consumers != 0)
}
