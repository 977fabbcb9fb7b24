package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/tuning"
)

func TestSQLiteIndex_RecordsTournament(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.sqlite")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	tu := tuning.Defaults()
	tu.Roster = []string{"TitForTat", "SuperUnforgiving", "SuperForgiving"}
	tu.MatchesPerPair = 2
	tu.RoundsPerMatch = 10
	if err := idx.RecordRun("run-42", tu); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	agents, _, err := arena.RunTournament(context.Background(), tu.ArenaConfig(), arena.Hooks{Loggers: []arena.MatchLogger{idx}})
	if err != nil {
		t.Fatalf("RunTournament: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var runID string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='run_id'`).Scan(&runID); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if runID != "run-42" {
		t.Fatalf("run_id=%q", runID)
	}

	count := func(q string) int {
		t.Helper()
		var n int
		if err := db.QueryRow(q).Scan(&n); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		return n
	}
	if n := count(`SELECT COUNT(*) FROM agents`); n != len(agents) {
		t.Fatalf("agents rows=%d want %d", n, len(agents))
	}
	if n := count(`SELECT COUNT(*) FROM matches`); n != 6 {
		t.Fatalf("matches rows=%d want 6", n)
	}
	if n := count(`SELECT COUNT(*) FROM standings`); n != len(agents) {
		t.Fatalf("standings rows=%d want %d", n, len(agents))
	}

	var (
		scoreA, scoreB int
		moves          string
	)
	// Pair (TitForTat, SuperUnforgiving) plays first.
	row := db.QueryRow(`SELECT score_a, score_b, moves_b FROM matches WHERE seq=1`)
	if err := row.Scan(&scoreA, &scoreB, &moves); err != nil {
		t.Fatalf("match row: %v", err)
	}
	if scoreA != 9 || scoreB != 14 || moves != "DDDDDDDDDD" {
		t.Fatalf("match row mismatch: %d-%d %q", scoreA, scoreB, moves)
	}

	var top string
	if err := db.QueryRow(`SELECT name FROM standings WHERE rank=1`).Scan(&top); err != nil {
		t.Fatalf("standings: %v", err)
	}
	if top != "SuperUnforgiving" {
		t.Fatalf("rank 1: %q", top)
	}
}

func TestSQLiteIndex_CountsRolledBackRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for seq := 1; seq <= 5; seq++ {
		e := arena.MatchLogEntry{Seq: seq, Game: 1, AgentA: "A1", AgentB: "A2", Rounds: 1, MovesA: "C", MovesB: "C", ScoreA: 3, ScoreB: 3, Outcome: 0.5}
		if seq == 4 {
			e.Outcome = 0.75 // rejected by the outcome CHECK
		}
		if err := idx.WriteMatch(e); err != nil {
			t.Fatalf("WriteMatch: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	st := idx.Stats()
	if st.WriteErrTotal != 1 {
		t.Fatalf("write errors: %d", st.WriteErrTotal)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var stored, bad int
	if err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(seq=4),0) FROM matches`).Scan(&stored, &bad); err != nil {
		t.Fatalf("count: %v", err)
	}
	if bad != 0 {
		t.Fatalf("invalid row was stored")
	}
	// Rows 1-3 share the failed row's transaction unless a timed commit
	// split them off; either way every row is stored or counted as lost.
	if st.LostRowTotal < 1 || uint64(stored)+st.LostRowTotal != 5 {
		t.Fatalf("stored=%d lost=%d", stored, st.LostRowTotal)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
