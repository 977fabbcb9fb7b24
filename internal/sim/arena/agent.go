package arena

import (
	"fmt"
	"sync"

	"dilemmarena.ai/internal/sim/game"
	"dilemmarena.ai/internal/sim/strategy"
)

// Agent is one tournament participant. Score is scoped to the current match;
// rating, kind and identity last for the whole run.
type Agent struct {
	id    string
	index int
	name  string
	kind  strategy.Kind
	strat strategy.Strategy

	score  int
	last   game.Action
	rating float64

	// Held by the match that currently owns the agent.
	busy sync.Mutex
}

func NewAgent(index int, s strategy.Strategy, baseRating float64) *Agent {
	return &Agent{
		id:     fmt.Sprintf("A%d", index+1),
		index:  index,
		name:   string(s.Kind()),
		kind:   s.Kind(),
		strat:  s,
		rating: baseRating,
	}
}

func (a *Agent) ID() string                  { return a.id }
func (a *Agent) Index() int                  { return a.index }
func (a *Agent) Name() string                { return a.name }
func (a *Agent) Kind() strategy.Kind         { return a.kind }
func (a *Agent) Strategy() strategy.Strategy { return a.strat }
func (a *Agent) Score() int                  { return a.score }
func (a *Agent) LastAction() game.Action     { return a.last }
func (a *Agent) Rating() float64             { return a.rating }

// resetForMatch clears the match-scoped state. The last action is kept: it is
// what the next opponent sees in round one.
func (a *Agent) resetForMatch() {
	a.score = 0
	a.strat.ResetForMatch()
}

// lockPair takes both agents' ownership locks in index order.
func lockPair(a, b *Agent) (unlock func()) {
	first, second := a, b
	if second.index < first.index {
		first, second = second, first
	}
	first.busy.Lock()
	second.busy.Lock()
	return func() {
		second.busy.Unlock()
		first.busy.Unlock()
	}
}
