// Package strategy holds the decision policies that play the iterated
// Prisoner's Dilemma. Every policy sees only the last action of each opponent
// it currently faces and may keep private memory that lasts for one match.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"dilemmarena.ai/internal/sim/game"
)

type Kind string

const (
	KindTitForTat          Kind = "TitForTat"
	KindTitForTatMixed     Kind = "TitForTatMixed"
	KindRandom             Kind = "Random"
	KindGrimTrigger        Kind = "GrimTrigger"
	KindGrimTriggerMix     Kind = "GrimTriggerMix"
	KindForgivingTitForTat Kind = "ForgivingTitForTat"
	KindRuthlessTitForTat  Kind = "RuthlessTitForTat"
	KindSuperForgiving     Kind = "SuperForgiving"
	KindSuperUnforgiving   Kind = "SuperUnforgiving"
	KindHuman              Kind = "Human"
)

// builtin is the default roster, in the order the tournament lists it.
var builtin = []Kind{
	KindTitForTat,
	KindTitForTatMixed,
	KindRandom,
	KindGrimTrigger,
	KindGrimTriggerMix,
	KindForgivingTitForTat,
	KindRuthlessTitForTat,
	KindSuperForgiving,
	KindSuperUnforgiving,
}

var ErrUnknownKind = errors.New("unknown strategy kind")

// Kinds returns the non-interactive strategies in canonical order.
func Kinds() []Kind {
	out := make([]Kind, len(builtin))
	copy(out, builtin)
	return out
}

// ParseKind resolves a roster entry. Matching is case-insensitive and the
// "...Player" class-style spellings are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "player")
	if key == "titfortatplayemixed" {
		return KindTitForTatMixed, nil
	}
	for _, k := range append(Kinds(), KindHuman) {
		if strings.ToLower(string(k)) == key {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Randomized reports whether the kind draws from a rand source.
func (k Kind) Randomized() bool {
	return k == KindRandom || k == KindRuthlessTitForTat
}

// Opponent is what a strategy may observe about another player.
type Opponent interface {
	Name() string
	LastAction() game.Action
}

// View is everything handed to a strategy for one decision. Round and Score
// are informational; only Human surfaces them.
type View struct {
	Round     int
	Score     int
	Opponents []Opponent
}

type Strategy interface {
	Kind() Kind
	// ChooseAction returns the move for the current round. Only strategies
	// that wait on an outside collaborator can fail.
	ChooseAction(ctx context.Context, v View) (game.Action, error)
	// ResetForMatch restores the private memory to its initial state.
	ResetForMatch()
}

// Options carries the collaborators some strategies need.
type Options struct {
	Rand  *rand.Rand // Random, RuthlessTitForTat
	Input Input      // Human
}

func New(kind Kind, opts Options) (Strategy, error) {
	switch kind {
	case KindTitForTat:
		return &TitForTat{}, nil
	case KindTitForTatMixed:
		return &TitForTatMixed{}, nil
	case KindRandom:
		if opts.Rand == nil {
			return nil, fmt.Errorf("%s: rand source required", kind)
		}
		return &Random{rng: opts.Rand}, nil
	case KindGrimTrigger:
		return &GrimTrigger{}, nil
	case KindGrimTriggerMix:
		return NewGrimTriggerMix(DefaultDefectLimit), nil
	case KindForgivingTitForTat:
		return &ForgivingTitForTat{}, nil
	case KindRuthlessTitForTat:
		if opts.Rand == nil {
			return nil, fmt.Errorf("%s: rand source required", kind)
		}
		return &RuthlessTitForTat{rng: opts.Rand}, nil
	case KindSuperForgiving:
		return SuperForgiving{}, nil
	case KindSuperUnforgiving:
		return SuperUnforgiving{}, nil
	case KindHuman:
		if opts.Input == nil {
			return nil, fmt.Errorf("%s: input collaborator required", kind)
		}
		return NewHuman(opts.Input), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
}

func anyDefected(opps []Opponent) bool {
	for _, o := range opps {
		if o.LastAction() == game.Defect {
			return true
		}
	}
	return false
}

func countLast(opps []Opponent) (cooperators, defectors int) {
	for _, o := range opps {
		switch o.LastAction() {
		case game.Cooperate:
			cooperators++
		case game.Defect:
			defectors++
		}
	}
	return cooperators, defectors
}

func coinFlip(rng *rand.Rand) game.Action {
	if rng.Intn(2) == 0 {
		return game.Cooperate
	}
	return game.Defect
}
