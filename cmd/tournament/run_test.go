package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	persistlog "dilemmarena.ai/internal/persistence/log"
	"dilemmarena.ai/internal/sim/strategy"
	"dilemmarena.ai/internal/sim/tuning"
)

func humanTuning() tuning.Tuning {
	tune := tuning.Defaults()
	tune.Roster = []string{string(strategy.KindTitForTat), string(strategy.KindSuperUnforgiving)}
	tune.IncludeHuman = true
	tune.MatchesPerPair = 2
	tune.RoundsPerMatch = 2
	tune.Normalize()
	return tune
}

func TestRunTournament_FailureKeepsPlayedMatches(t *testing.T) {
	t.Setenv("ARENA_MIRROR", "")
	rc := runConfig{
		dataDir:   t.TempDir(),
		runID:     "run-script-out",
		tune:      humanTuning(),
		disableDB: true,
		partSize:  persistlog.DefaultPartSize,
		// Two matches against TitForTat, then one round against SuperUnforgiving.
		input:  strategy.NewScript("C", "C", "D", "C", "C"),
		logger: log.New(io.Discard, "", 0),
	}

	standings, err := runTournament(context.Background(), rc)
	if err == nil {
		t.Fatalf("expected error when the script runs out")
	}
	if !errors.Is(err, strategy.ErrScriptExhausted) {
		t.Fatalf("err=%v, want ErrScriptExhausted", err)
	}
	if standings != nil {
		t.Fatalf("standings=%v, want nil on failure", standings)
	}

	entries, err := persistlog.ReadMatches(rc.runDir())
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Fatalf("entry %d seq=%d want %d", i, e.Seq, i+1)
		}
	}
	if _, err := persistlog.ReadManifest(rc.runDir()); err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
}

func TestRunTournament_WritesLogAndIndex(t *testing.T) {
	t.Setenv("ARENA_MIRROR", "")
	t.Setenv("ARENA_INDEX_BACKEND", "sqlite")
	rc := runConfig{
		dataDir:  t.TempDir(),
		runID:    "run-complete",
		tune:     humanTuning(),
		partSize: persistlog.DefaultPartSize,
		input:    strategy.NewScript("C", "C", "D", "C", "C", "D", "D", "D"),
		logger:   log.New(io.Discard, "", 0),
	}

	standings, err := runTournament(context.Background(), rc)
	if err != nil {
		t.Fatalf("runTournament: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("standings=%d want 3", len(standings))
	}

	entries, err := persistlog.ReadMatches(rc.runDir())
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if len(entries) != rc.tune.ArenaConfig().TotalMatches() {
		t.Fatalf("entries=%d want %d", len(entries), rc.tune.ArenaConfig().TotalMatches())
	}
	if _, err := os.Stat(filepath.Join(rc.runDir(), "index", "results.sqlite")); err != nil {
		t.Fatalf("index file: %v", err)
	}
}

func TestRunTournament_Cancelled(t *testing.T) {
	t.Setenv("ARENA_MIRROR", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tune := tuning.Defaults()
	tune.MatchesPerPair = 1
	tune.RoundsPerMatch = 3
	tune.Normalize()
	rc := runConfig{
		dataDir:   t.TempDir(),
		runID:     "run-cancelled",
		tune:      tune,
		disableDB: true,
		partSize:  persistlog.DefaultPartSize,
		logger:    log.New(io.Discard, "", 0),
	}
	if _, err := runTournament(ctx, rc); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
