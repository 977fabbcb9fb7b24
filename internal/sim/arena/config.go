package arena

import (
	"errors"
	"fmt"

	"dilemmarena.ai/internal/sim/rating"
	"dilemmarena.ai/internal/sim/strategy"
)

const DefaultRoundsPerMatch = 100

var ErrInvalidConfig = errors.New("invalid tournament config")

type Config struct {
	Roster         []strategy.Kind
	IncludeHuman   bool
	MatchesPerPair int
	RoundsPerMatch int

	// Seed drives every randomized strategy; each agent derives its own stream.
	Seed int64

	KFactor    float64
	BaseRating float64

	// Workers > 1 plays disjoint pairs concurrently. Forced to 1 when a human plays.
	Workers int
}

func (c *Config) applyDefaults() {
	if c.RoundsPerMatch == 0 {
		c.RoundsPerMatch = DefaultRoundsPerMatch
	}
	if c.KFactor == 0 {
		c.KFactor = rating.DefaultK
	}
	if c.BaseRating == 0 {
		c.BaseRating = rating.DefaultRating
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.IncludeHuman {
		c.Workers = 1
	}
}

// Players is the number of agents the config creates.
func (c Config) Players() int {
	n := len(c.Roster)
	if c.IncludeHuman {
		n++
	}
	return n
}

// TotalMatches is C(n,2) * MatchesPerPair. A lone player plays nothing.
func (c Config) TotalMatches() int {
	n := c.Players()
	return n * (n - 1) / 2 * c.MatchesPerPair
}

func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if len(c.Roster) == 0 {
		return bad("roster must not be empty")
	}
	for i, k := range c.Roster {
		if k == strategy.KindHuman {
			return bad("roster[%d]: use include_human to add a human player", i)
		}
		if _, err := strategy.ParseKind(string(k)); err != nil {
			return bad("roster[%d]: %v", i, err)
		}
	}
	if c.MatchesPerPair <= 0 {
		return bad("matches_per_pair must be > 0, got %d", c.MatchesPerPair)
	}
	if c.RoundsPerMatch < 1 {
		return bad("rounds_per_match must be >= 1, got %d", c.RoundsPerMatch)
	}
	if c.KFactor < 0 {
		return bad("k_factor must be >= 0, got %v", c.KFactor)
	}
	if c.Workers < 0 {
		return bad("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}
