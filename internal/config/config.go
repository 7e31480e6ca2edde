package config

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional parlour.yml timing profile. It only shapes how long
// workers sleep between operations; scenario structure (queue size, the five
// philosophers, the three brewing roles) is fixed and not configurable.
type Config struct {
	Timing Timing `yaml:"timing,omitempty"`
}

// Timing holds the randomized sleep ranges used by the three engines, in
// milliseconds. Zero values are replaced by defaults at load time.
type Timing struct {
	// MaxWorkerSleepMS caps the random jitter a producer or consumer sleeps
	// before each push/pop attempt.
	MaxWorkerSleepMS int `yaml:"max_worker_sleep_ms,omitempty"`

	ThinkMinMS int `yaml:"think_min_ms,omitempty"`
	ThinkMaxMS int `yaml:"think_max_ms,omitempty"`
	EatMinMS   int `yaml:"eat_min_ms,omitempty"`
	EatMaxMS   int `yaml:"eat_max_ms,omitempty"`

	BrewMinMS int `yaml:"brew_min_ms,omitempty"`
	BrewMaxMS int `yaml:"brew_max_ms,omitempty"`
}

// Default returns the built-in timing profile. The 120ms worker sleep cap
// matches the harness's historical behavior.
func Default() *Config {
	return &Config{
		Timing: Timing{
			MaxWorkerSleepMS: 120,
			ThinkMinMS:       50,
			ThinkMaxMS:       150,
			EatMinMS:         50,
			EatMaxMS:         150,
			BrewMinMS:        20,
			BrewMaxMS:        80,
		},
	}
}

// Load reads and validates a timing profile from path. Missing fields fall
// back to the defaults from Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate performs strict validation on the timing profile.
func (c *Config) Validate() error {
	t := c.Timing

	if t.MaxWorkerSleepMS <= 0 {
		return fmt.Errorf("max_worker_sleep_ms must be greater than zero, got %d", t.MaxWorkerSleepMS)
	}

	ranges := []struct {
		name     string
		min, max int
	}{
		{"think", t.ThinkMinMS, t.ThinkMaxMS},
		{"eat", t.EatMinMS, t.EatMaxMS},
		{"brew", t.BrewMinMS, t.BrewMaxMS},
	}
	for _, r := range ranges {
		if r.min < 0 {
			return fmt.Errorf("%s_min_ms must not be negative, got %d", r.name, r.min)
		}
		if r.max < r.min {
			return fmt.Errorf("%s_max_ms (%d) must not be less than %s_min_ms (%d)", r.name, r.max, r.name, r.min)
		}
		if r.max == 0 {
			return fmt.Errorf("%s_max_ms must be greater than zero", r.name)
		}
	}

	return nil
}

// SleepRange returns a random duration in [min, max] milliseconds, drawn from
// rng. Engines pass their own rand.Rand so tests can seed deterministically.
func SleepRange(rng *rand.Rand, minMS, maxMS int) time.Duration {
	span := maxMS - minMS
	ms := minMS
	if span > 0 {
		ms += rng.Intn(span + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

// SleepJitter returns a random duration in [0, maxMS) milliseconds, the
// producer/consumer pre-operation jitter.
func SleepJitter(rng *rand.Rand, maxMS int) time.Duration {
	return time.Duration(rng.Intn(maxMS)) * time.Millisecond
}
