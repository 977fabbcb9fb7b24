package strategy

import (
	"context"
	"math/rand"

	"dilemmarena.ai/internal/sim/game"
)

// TitForTat defects as soon as any opponent defected last round.
type TitForTat struct{}

func (*TitForTat) Kind() Kind     { return KindTitForTat }
func (*TitForTat) ResetForMatch() {}

func (*TitForTat) ChooseAction(_ context.Context, v View) (game.Action, error) {
	if anyDefected(v.Opponents) {
		return game.Defect, nil
	}
	return game.Cooperate, nil
}

// TitForTatMixed follows the majority of the opponents' last moves; a tie
// goes to cooperation. Opponents that have not moved yet are not counted.
type TitForTatMixed struct{}

func (*TitForTatMixed) Kind() Kind     { return KindTitForTatMixed }
func (*TitForTatMixed) ResetForMatch() {}

func (*TitForTatMixed) ChooseAction(_ context.Context, v View) (game.Action, error) {
	c, d := countLast(v.Opponents)
	if c >= d {
		return game.Cooperate, nil
	}
	return game.Defect, nil
}

type Random struct {
	rng *rand.Rand
}

func (*Random) Kind() Kind     { return KindRandom }
func (*Random) ResetForMatch() {}

func (r *Random) ChooseAction(_ context.Context, _ View) (game.Action, error) {
	return coinFlip(r.rng), nil
}

type SuperForgiving struct{}

func (SuperForgiving) Kind() Kind     { return KindSuperForgiving }
func (SuperForgiving) ResetForMatch() {}

func (SuperForgiving) ChooseAction(context.Context, View) (game.Action, error) {
	return game.Cooperate, nil
}

type SuperUnforgiving struct{}

func (SuperUnforgiving) Kind() Kind     { return KindSuperUnforgiving }
func (SuperUnforgiving) ResetForMatch() {}

func (SuperUnforgiving) ChooseAction(context.Context, View) (game.Action, error) {
	return game.Defect, nil
}
