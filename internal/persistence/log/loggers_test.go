package log

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/strategy"
	"dilemmarena.ai/internal/sim/tuning"
)

func TestMatchLogger_RotatesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewMatchLogger(dir, 3)
	var closed []string
	l.OnPartClosed(func(p string) { closed = append(closed, filepath.Base(p)) })
	for i := 1; i <= 7; i++ {
		if err := l.WriteMatch(arena.MatchLogEntry{Seq: i, Game: 1, AgentA: "A1", AgentB: "A2", MovesA: "CD", MovesB: "DD"}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if l.Written() != 7 {
		t.Fatalf("written: %d", l.Written())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Idempotent.
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if len(closed) != 3 || closed[0] != "matches-000001.jsonl.zst" || closed[2] != "matches-000003.jsonl.zst" {
		t.Fatalf("closed parts: %v", closed)
	}

	parts, _ := filepath.Glob(filepath.Join(dir, "matches", "*.jsonl.zst"))
	if len(parts) != 3 {
		t.Fatalf("parts: got %d want 3 (%v)", len(parts), parts)
	}
	entries, err := ReadMatches(dir)
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if len(entries) != 7 {
		t.Fatalf("entries: got %d want 7", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i+1 || e.MovesA != "CD" {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
}

func TestReadMatches_EmptyRun(t *testing.T) {
	entries, err := ReadMatches(t.TempDir())
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestManifest_RoundTripWithTournament(t *testing.T) {
	dir := t.TempDir()
	tu := tuning.Defaults()
	tu.Roster = []string{"TitForTat", "Random", "SuperUnforgiving"}
	tu.MatchesPerPair = 2
	tu.RoundsPerMatch = 10

	ml := NewMatchLogger(dir, 0)
	agents, _, err := arena.RunTournament(context.Background(), tu.ArenaConfig(), arena.Hooks{Loggers: []arena.MatchLogger{ml}})
	if err != nil {
		t.Fatalf("RunTournament: %v", err)
	}
	if err := ml.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	infos := make([]arena.AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, a.Info())
	}
	want := Manifest{RunID: "run-1", CreatedAt: time.Unix(1700000000, 0).UTC(), Tuning: tu, Agents: infos}
	if err := WriteManifest(dir, want); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	got, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.RunID != want.RunID || !got.CreatedAt.Equal(want.CreatedAt) || len(got.Agents) != 3 {
		t.Fatalf("manifest: %+v", got)
	}
	if got.Agents[1].Kind != strategy.KindRandom || got.Tuning.Seed != tu.Seed {
		t.Fatalf("manifest content: %+v", got)
	}

	entries, err := ReadMatches(dir)
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("entries: got %d want 6", len(entries))
	}
	for _, e := range entries {
		if len(e.Digest) != 64 || len(e.MovesA) != 10 {
			t.Fatalf("entry: %+v", e)
		}
	}
}
