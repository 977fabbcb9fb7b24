package arena

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"

	"dilemmarena.ai/internal/sim/rating"
	"dilemmarena.ai/internal/sim/strategy"
)

// MatchLogEntry is the serialized form of a finished match handed to every
// MatchLogger.
type MatchLogEntry struct {
	Seq     int     `json:"seq"`
	Game    int     `json:"game"`
	AgentA  string  `json:"agent_a"`
	AgentB  string  `json:"agent_b"`
	NameA   string  `json:"name_a"`
	NameB   string  `json:"name_b"`
	Rounds  int     `json:"rounds"`
	ScoreA  int     `json:"score_a"`
	ScoreB  int     `json:"score_b"`
	MovesA  string  `json:"moves_a"`
	MovesB  string  `json:"moves_b"`
	Outcome float64 `json:"outcome"`
	RatingA float64 `json:"rating_a"`
	RatingB float64 `json:"rating_b"`
	Digest  string  `json:"digest"`
}

func (m Match) LogEntry() MatchLogEntry {
	return MatchLogEntry{
		Seq:     m.Seq,
		Game:    m.Game,
		AgentA:  m.A.id,
		AgentB:  m.B.id,
		NameA:   m.A.name,
		NameB:   m.B.name,
		Rounds:  m.Rounds,
		ScoreA:  m.ScoreA,
		ScoreB:  m.ScoreB,
		MovesA:  m.MovesA,
		MovesB:  m.MovesB,
		Outcome: float64(m.Outcome),
		RatingA: m.RatingA,
		RatingB: m.RatingB,
		Digest:  m.Digest,
	}
}

type AgentInfo struct {
	ID     string        `json:"id"`
	Index  int           `json:"index"`
	Name   string        `json:"name"`
	Kind   strategy.Kind `json:"kind"`
	Rating float64       `json:"rating"`
}

func (a *Agent) Info() AgentInfo {
	return AgentInfo{ID: a.id, Index: a.index, Name: a.name, Kind: a.kind, Rating: a.rating}
}

type StandingEntry struct {
	Rank int `json:"rank"`
	AgentInfo
	Stats
}

// Standings is Ranking flattened into plain values.
func (r *Results) Standings(agents []*Agent) []StandingEntry {
	rk := r.Ranking(agents)
	out := make([]StandingEntry, 0, len(rk))
	for _, s := range rk {
		out = append(out, StandingEntry{Rank: s.Rank, AgentInfo: s.Agent.Info(), Stats: s.Stats})
	}
	return out
}

type MatchLogger interface {
	WriteMatch(entry MatchLogEntry) error
}

// RunObserver is implemented by match loggers that also want the start and
// the end of a run.
type RunObserver interface {
	StartRun(agents []AgentInfo, totalMatches int)
	FinishRun(standings []StandingEntry)
}

// Hooks are the collaborators around the engine. All fields are optional
// except Input when a human plays.
type Hooks struct {
	Input   strategy.Input
	Loggers []MatchLogger
	Logger  *log.Logger
	OnRound RoundFunc
}

type tournament struct {
	cfg     Config
	hooks   Hooks
	elo     rating.Elo
	agents  []*Agent
	results *Results
	total   int
}

// RunTournament plays the full round robin described by cfg. It either
// completes and returns every agent with the aggregated results, or returns
// an error and nothing else.
func RunTournament(ctx context.Context, cfg Config, hooks Hooks) ([]*Agent, *Results, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.IncludeHuman && hooks.Input == nil {
		return nil, nil, fmt.Errorf("%w: human player needs an input source", ErrInvalidConfig)
	}
	agents, err := newAgents(cfg, hooks.Input)
	if err != nil {
		return nil, nil, err
	}

	t := &tournament{
		cfg:     cfg,
		hooks:   hooks,
		elo:     rating.New(cfg.KFactor),
		agents:  agents,
		results: NewResults(),
		total:   cfg.TotalMatches(),
	}

	infos := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, a.Info())
	}
	t.logf("tournament start: players=%d matches_per_pair=%d rounds=%d total=%d workers=%d",
		len(agents), cfg.MatchesPerPair, cfg.RoundsPerMatch, t.total, cfg.Workers)
	for _, l := range hooks.Loggers {
		if ro, ok := l.(RunObserver); ok {
			ro.StartRun(infos, t.total)
		}
	}

	if cfg.Workers <= 1 {
		err = t.runSequential(ctx)
	} else {
		err = t.runParallel(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	standings := t.results.Standings(agents)
	for _, l := range hooks.Loggers {
		if ro, ok := l.(RunObserver); ok {
			ro.FinishRun(standings)
		}
	}
	return agents, t.results, nil
}

func newAgents(cfg Config, in strategy.Input) ([]*Agent, error) {
	kinds := make([]strategy.Kind, 0, cfg.Players())
	if cfg.IncludeHuman {
		kinds = append(kinds, strategy.KindHuman)
	}
	for _, k := range cfg.Roster {
		pk, err := strategy.ParseKind(string(k))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		kinds = append(kinds, pk)
	}

	agents := make([]*Agent, 0, len(kinds))
	for i, k := range kinds {
		opts := strategy.Options{Input: in}
		if k.Randomized() {
			opts.Rand = rand.New(rand.NewSource(agentSeed(cfg.Seed, i)))
		}
		s, err := strategy.New(k, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		agents = append(agents, NewAgent(i, s, cfg.BaseRating))
	}
	return agents, nil
}

func (t *tournament) runSequential(ctx context.Context) error {
	seq := 0
	for _, p := range Pairs(len(t.agents)) {
		a, b := t.agents[p[0]], t.agents[p[1]]
		for g := 1; g <= t.cfg.MatchesPerPair; g++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			seq++
			m, err := t.play(ctx, seq, g, a, b)
			if err != nil {
				return err
			}
			t.emit(m)
		}
	}
	return nil
}

// runParallel plays one circle round at a time. Pairs inside a round share
// no agent, so their rating updates commute; matches are emitted in pair
// order once the round is done.
func (t *tournament) runParallel(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	per := t.cfg.MatchesPerPair
	sem := make(chan struct{}, t.cfg.Workers)
	seq := 0
	for _, round := range CircleRounds(len(t.agents)) {
		batches := make([][]Match, len(round))
		errs := make([]error, len(round))

		var wg sync.WaitGroup
		for k, p := range round {
			wg.Add(1)
			go func(k int, a, b *Agent, base int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				for g := 1; g <= per; g++ {
					if err := ctx.Err(); err != nil {
						errs[k] = err
						return
					}
					m, err := t.play(ctx, base+g, g, a, b)
					if err != nil {
						errs[k] = err
						cancel()
						return
					}
					batches[k] = append(batches[k], m)
				}
			}(k, t.agents[p[0]], t.agents[p[1]], seq+k*per)
		}
		wg.Wait()
		seq += len(round) * per

		if err := firstError(errs); err != nil {
			return err
		}
		for _, batch := range batches {
			for _, m := range batch {
				t.emit(m)
			}
		}
	}
	return nil
}

// firstError prefers a real failure over the cancellation it caused.
func firstError(errs []error) error {
	var cancelled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if cancelled == nil {
				cancelled = err
			}
			continue
		}
		return err
	}
	return cancelled
}

func (t *tournament) play(ctx context.Context, seq, gameNo int, a, b *Agent) (Match, error) {
	unlock := lockPair(a, b)
	defer unlock()

	t.logf("match %d/%d: %s vs %s (game %d)", seq, t.total, a.name, b.name, gameNo)
	m, err := PlayMatch(ctx, a, b, t.cfg.RoundsPerMatch, t.hooks.OnRound)
	if err != nil {
		return Match{}, fmt.Errorf("match %d (%s vs %s): %w", seq, a.id, b.id, err)
	}
	UpdateRatings(t.elo, a, b, m.Outcome)

	m.Seq = seq
	m.Game = gameNo
	m.RatingA = a.rating
	m.RatingB = b.rating
	m.Digest = matchDigest(&m)
	t.results.Record(m)

	t.logf("result: %s %d - %d %s", a.name, m.ScoreA, m.ScoreB, b.name)
	t.logf("ratings: %s %.1f, %s %.1f", a.name, a.rating, b.name, b.rating)
	return m, nil
}

func (t *tournament) emit(m Match) {
	if len(t.hooks.Loggers) == 0 {
		return
	}
	entry := m.LogEntry()
	for _, l := range t.hooks.Loggers {
		if err := l.WriteMatch(entry); err != nil {
			t.logf("match log: seq=%d: %v", m.Seq, err)
		}
	}
}

func (t *tournament) logf(format string, args ...any) {
	if t.hooks.Logger != nil {
		t.hooks.Logger.Printf(format, args...)
	}
}
