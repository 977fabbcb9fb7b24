package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	persistlog "dilemmarena.ai/internal/persistence/log"
	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/strategy"
)

type report struct {
	RunID      string
	Players    int
	Seed       int64
	Checked    int
	Mismatches []string
}

// replayRun re-plays a recorded tournament from its manifest and compares
// every match digest with the log.
func replayRun(ctx context.Context, runDir string) (report, error) {
	var rep report
	m, err := persistlog.ReadManifest(runDir)
	if err != nil {
		return rep, err
	}
	entries, err := persistlog.ReadMatches(runDir)
	if err != nil {
		return rep, err
	}
	tune := m.Tuning
	tune.Normalize()
	if err := tune.Validate(); err != nil {
		return rep, fmt.Errorf("manifest tuning: %w", err)
	}
	cfg := tune.ArenaConfig()
	rep.RunID, rep.Players, rep.Seed = m.RunID, cfg.Players(), cfg.Seed

	if len(entries) != cfg.TotalMatches() {
		return rep, fmt.Errorf("log has %d matches, tuning implies %d", len(entries), cfg.TotalMatches())
	}

	v := newVerifier(entries)
	hooks := arena.Hooks{Loggers: []arena.MatchLogger{v}}
	if cfg.IncludeHuman {
		hooks.Input = humanScript(m.Agents, entries)
	}
	agents, _, err := arena.RunTournament(ctx, cfg, hooks)
	if err != nil {
		return rep, err
	}
	if err := checkAgents(m.Agents, agents); err != nil {
		return rep, err
	}
	rep.Checked, rep.Mismatches = v.result()
	return rep, nil
}

// humanScript lists the recorded human moves in the order the human made
// them. Human runs are sequential, so log order is play order.
func humanScript(agents []arena.AgentInfo, entries []arena.MatchLogEntry) *strategy.Script {
	var humanID string
	for _, a := range agents {
		if a.Kind == strategy.KindHuman {
			humanID = a.ID
			break
		}
	}
	var lines []string
	for _, e := range entries {
		var moves string
		switch humanID {
		case e.AgentA:
			moves = e.MovesA
		case e.AgentB:
			moves = e.MovesB
		default:
			continue
		}
		for _, c := range moves {
			lines = append(lines, string(c))
		}
	}
	return strategy.NewScript(lines...)
}

func checkAgents(want []arena.AgentInfo, got []*arena.Agent) error {
	if len(want) != len(got) {
		return fmt.Errorf("manifest lists %d agents, replay built %d", len(want), len(got))
	}
	for i, a := range got {
		if want[i].ID != a.ID() || want[i].Kind != a.Kind() {
			return fmt.Errorf("agent %d: manifest %s/%s, replay %s/%s", i, want[i].ID, want[i].Kind, a.ID(), a.Kind())
		}
	}
	return nil
}

// verifier compares replayed matches with the recorded ones by seq.
type verifier struct {
	mu         sync.Mutex
	want       map[int]arena.MatchLogEntry
	checked    int
	mismatches []string
}

func newVerifier(entries []arena.MatchLogEntry) *verifier {
	v := &verifier{want: make(map[int]arena.MatchLogEntry, len(entries))}
	for _, e := range entries {
		v.want[e.Seq] = e
	}
	return v
}

func (v *verifier) WriteMatch(got arena.MatchLogEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checked++
	want, ok := v.want[got.Seq]
	switch {
	case !ok:
		v.mismatches = append(v.mismatches, fmt.Sprintf("seq %d: not in log", got.Seq))
	case want.Digest != got.Digest:
		v.mismatches = append(v.mismatches, fmt.Sprintf("seq %d (%s vs %s): digest %s, recorded %s%s",
			got.Seq, got.NameA, got.NameB, short(got.Digest), short(want.Digest), diffMoves(want, got)))
	}
	return nil
}

func (v *verifier) result() (int, []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checked, append([]string(nil), v.mismatches...)
}

func diffMoves(want, got arena.MatchLogEntry) string {
	var parts []string
	if want.MovesA != got.MovesA {
		parts = append(parts, fmt.Sprintf("moves_a %q != %q", got.MovesA, want.MovesA))
	}
	if want.MovesB != got.MovesB {
		parts = append(parts, fmt.Sprintf("moves_b %q != %q", got.MovesB, want.MovesB))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
