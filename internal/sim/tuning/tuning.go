package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/rating"
	"dilemmarena.ai/internal/sim/strategy"
)

type Tuning struct {
	Roster         []string `yaml:"roster" json:"roster"`
	IncludeHuman   bool     `yaml:"include_human" json:"include_human"`
	MatchesPerPair int      `yaml:"matches_per_pair" json:"matches_per_pair"`
	RoundsPerMatch int      `yaml:"rounds_per_match" json:"rounds_per_match"`
	Seed           int64    `yaml:"seed" json:"seed"`
	Workers        int      `yaml:"workers" json:"workers"`

	Elo Elo `yaml:"elo" json:"elo"`
}

type Elo struct {
	KFactor    float64 `yaml:"k_factor" json:"k_factor"`
	BaseRating float64 `yaml:"base_rating" json:"base_rating"`
}

func Defaults() Tuning {
	roster := make([]string, 0, len(strategy.Kinds()))
	for _, k := range strategy.Kinds() {
		roster = append(roster, string(k))
	}
	return Tuning{
		Roster:         roster,
		MatchesPerPair: 5,
		RoundsPerMatch: arena.DefaultRoundsPerMatch,
		Seed:           1337,
		Workers:        1,
		Elo: Elo{
			KFactor:    rating.DefaultK,
			BaseRating: rating.DefaultRating,
		},
	}
}

// Load reads a tournament.yaml on top of Defaults. An empty path yields the
// defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tournament.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tournament.yaml: %w", err)
	}
	return t, nil
}

// Normalize canonicalizes roster spellings and fills zero values. Names it
// cannot resolve are left for Validate to report.
func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	for i, name := range t.Roster {
		name = strings.TrimSpace(name)
		if k, err := strategy.ParseKind(name); err == nil {
			name = string(k)
		}
		t.Roster[i] = name
	}
	if t.RoundsPerMatch == 0 {
		t.RoundsPerMatch = arena.DefaultRoundsPerMatch
	}
	if t.Workers == 0 {
		t.Workers = 1
	}
	if t.Elo.KFactor == 0 {
		t.Elo.KFactor = rating.DefaultK
	}
	if t.Elo.BaseRating == 0 {
		t.Elo.BaseRating = rating.DefaultRating
	}
}

func (t Tuning) Validate() error {
	if t.Elo.KFactor <= 0 {
		return fmt.Errorf("%w: elo.k_factor must be > 0", arena.ErrInvalidConfig)
	}
	if t.Elo.BaseRating <= 0 {
		return fmt.Errorf("%w: elo.base_rating must be > 0", arena.ErrInvalidConfig)
	}
	return t.ArenaConfig().Validate()
}

func (t Tuning) ArenaConfig() arena.Config {
	roster := make([]strategy.Kind, 0, len(t.Roster))
	for _, name := range t.Roster {
		roster = append(roster, strategy.Kind(name))
	}
	return arena.Config{
		Roster:         roster,
		IncludeHuman:   t.IncludeHuman,
		MatchesPerPair: t.MatchesPerPair,
		RoundsPerMatch: t.RoundsPerMatch,
		Seed:           t.Seed,
		KFactor:        t.Elo.KFactor,
		BaseRating:     t.Elo.BaseRating,
		Workers:        t.Workers,
	}
}

// IsInvalid reports whether err came from a rejected configuration rather
// than from reading the file.
func IsInvalid(err error) bool {
	return errors.Is(err, arena.ErrInvalidConfig)
}
