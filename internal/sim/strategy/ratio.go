package strategy

import (
	"context"
	"math/rand"

	"dilemmarena.ai/internal/sim/game"
)

// cooperativeMajority reports whether more than a fifth of the opponents
// cooperated last round. With no opponents there is no majority.
func cooperativeMajority(opps []Opponent) bool {
	n := len(opps)
	if n == 0 {
		return false
	}
	c, _ := countLast(opps)
	return 5*c > n
}

type ForgivingTitForTat struct{}

func (*ForgivingTitForTat) Kind() Kind     { return KindForgivingTitForTat }
func (*ForgivingTitForTat) ResetForMatch() {}

func (*ForgivingTitForTat) ChooseAction(_ context.Context, v View) (game.Action, error) {
	if cooperativeMajority(v.Opponents) {
		return game.Cooperate, nil
	}
	if anyDefected(v.Opponents) {
		return game.Defect, nil
	}
	return game.Cooperate, nil
}

// RuthlessTitForTat exploits cooperative opponents, punishes defectors and
// flips a coin when it has nothing to go on.
type RuthlessTitForTat struct {
	rng *rand.Rand
}

func (*RuthlessTitForTat) Kind() Kind     { return KindRuthlessTitForTat }
func (*RuthlessTitForTat) ResetForMatch() {}

func (r *RuthlessTitForTat) ChooseAction(_ context.Context, v View) (game.Action, error) {
	if cooperativeMajority(v.Opponents) {
		return game.Defect, nil
	}
	if anyDefected(v.Opponents) {
		return game.Defect, nil
	}
	return coinFlip(r.rng), nil
}
