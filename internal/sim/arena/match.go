package arena

import (
	"context"
	"errors"
	"fmt"

	"dilemmarena.ai/internal/sim/game"
	"dilemmarena.ai/internal/sim/rating"
	"dilemmarena.ai/internal/sim/strategy"
)

// Outcome is agent A's match result: 1 win, 0.5 tie, 0 loss.
type Outcome float64

const (
	BWins Outcome = 0
	Tie   Outcome = 0.5
	AWins Outcome = 1
)

func OutcomeOf(scoreA, scoreB int) Outcome {
	switch {
	case scoreA > scoreB:
		return AWins
	case scoreA < scoreB:
		return BWins
	default:
		return Tie
	}
}

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "A"
	case BWins:
		return "B"
	default:
		return "tie"
	}
}

var (
	ErrInvalidRounds = errors.New("rounds must be >= 1")
	ErrIllegalAction = errors.New("strategy returned an illegal action")
)

// Match is the record of one completed match.
type Match struct {
	Seq  int // position in the tournament, 1-based
	Game int // position within the pair, 1-based

	A, B           *Agent
	Rounds         int
	ScoreA, ScoreB int
	MovesA, MovesB string
	Outcome        Outcome

	// Ratings right after this match's update.
	RatingA, RatingB float64
	Digest           string
}

// RoundEvent describes one finished round.
type RoundEvent struct {
	Round          int
	A, B           *Agent
	ActA, ActB     game.Action
	ScoreA, ScoreB int
}

type RoundFunc func(RoundEvent)

// PlayMatch plays rounds simultaneous-move rounds between a and b. Each side
// sees the other's action from the previous round. onRound may be nil.
func PlayMatch(ctx context.Context, a, b *Agent, rounds int, onRound RoundFunc) (Match, error) {
	if rounds < 1 {
		return Match{}, fmt.Errorf("%w: got %d", ErrInvalidRounds, rounds)
	}
	a.resetForMatch()
	b.resetForMatch()

	movesA := make([]game.Action, 0, rounds)
	movesB := make([]game.Action, 0, rounds)
	for r := 1; r <= rounds; r++ {
		actA, err := decide(ctx, a, b, r)
		if err != nil {
			return Match{}, err
		}
		actB, err := decide(ctx, b, a, r)
		if err != nil {
			return Match{}, err
		}

		ra, rb := game.Rewards(actA, actB)
		a.score += ra
		b.score += rb
		a.last = actA
		b.last = actB
		movesA = append(movesA, actA)
		movesB = append(movesB, actB)

		if onRound != nil {
			onRound(RoundEvent{Round: r, A: a, B: b, ActA: actA, ActB: actB, ScoreA: a.score, ScoreB: b.score})
		}
	}

	return Match{
		A:       a,
		B:       b,
		Rounds:  rounds,
		ScoreA:  a.score,
		ScoreB:  b.score,
		MovesA:  game.Moves(movesA),
		MovesB:  game.Moves(movesB),
		Outcome: OutcomeOf(a.score, b.score),
	}, nil
}

func decide(ctx context.Context, self, opp *Agent, round int) (game.Action, error) {
	act, err := self.strat.ChooseAction(ctx, strategy.View{
		Round:     round,
		Score:     self.score,
		Opponents: []strategy.Opponent{opp},
	})
	if err != nil {
		return game.None, fmt.Errorf("%s (%s) round %d: %w", self.id, self.name, round, err)
	}
	if !act.Valid() {
		return game.None, fmt.Errorf("%s (%s) round %d: %w", self.id, self.name, round, ErrIllegalAction)
	}
	return act, nil
}

// UpdateRatings applies one match outcome to both agents at once.
func UpdateRatings(e rating.Elo, a, b *Agent, o Outcome) {
	a.rating, b.rating = e.Update(a.rating, b.rating, float64(o))
}
