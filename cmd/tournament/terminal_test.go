package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/game"
	"dilemmarena.ai/internal/sim/strategy"
	"dilemmarena.ai/internal/sim/tuning"
)

func TestAskSetup_RetriesUntilValid(t *testing.T) {
	in := newLineReader(strings.NewReader("maybe\nY\n0\nabc\n7\n"))
	var out bytes.Buffer
	tu := tuning.Defaults()
	if err := askSetup(in, &out, &tu); err != nil {
		t.Fatalf("askSetup: %v", err)
	}
	if !tu.IncludeHuman || tu.MatchesPerPair != 7 {
		t.Fatalf("tuning: human=%v matches=%d", tu.IncludeHuman, tu.MatchesPerPair)
	}
	if got := strings.Count(out.String(), "Please answer 'y' or 'n'."); got != 1 {
		t.Fatalf("yes/no retries: %d", got)
	}
	if got := strings.Count(out.String(), "Please enter a positive whole number."); got != 2 {
		t.Fatalf("int retries: %d", got)
	}
}

func TestAskSetup_EmptyKeepsDefault(t *testing.T) {
	in := newLineReader(strings.NewReader("n\n\n"))
	tu := tuning.Defaults()
	if err := askSetup(in, io.Discard, &tu); err != nil {
		t.Fatalf("askSetup: %v", err)
	}
	if tu.IncludeHuman || tu.MatchesPerPair != tuning.Defaults().MatchesPerPair {
		t.Fatalf("tuning: %+v", tu)
	}
}

func TestAskSetup_EOF(t *testing.T) {
	in := newLineReader(strings.NewReader("y\n"))
	tu := tuning.Defaults()
	if err := askSetup(in, io.Discard, &tu); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestLineReader_CancelWhileBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	in := newLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := in.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestFormatPrompt(t *testing.T) {
	p := strategy.Prompt{Round: 1, Score: 0, Opponents: []strategy.OpponentInfo{{Name: "TitForTat"}}}
	s := formatPrompt(p)
	if !strings.Contains(s, "Round 1. Your score: 0") || !strings.Contains(s, "TitForTat's last action: None (first round)") {
		t.Fatalf("prompt: %q", s)
	}
	p = strategy.Prompt{Round: 4, Score: 9, Opponents: []strategy.OpponentInfo{{Name: "Random", Last: game.Defect}}}
	if s := formatPrompt(p); !strings.Contains(s, "Random's last action: defect") {
		t.Fatalf("prompt: %q", s)
	}
}

func TestTerminalInput_DrivesHumanMatch(t *testing.T) {
	in := newLineReader(strings.NewReader("x\nc\nd\n"))
	var out bytes.Buffer
	cfg := arena.Config{
		Roster:         []strategy.Kind{strategy.KindSuperUnforgiving},
		IncludeHuman:   true,
		MatchesPerPair: 1,
		RoundsPerMatch: 2,
	}
	hooks := arena.Hooks{Input: newTerminalInput(in, &out), OnRound: roundPrinter(&out)}
	agents, results, err := arena.RunTournament(context.Background(), cfg, hooks)
	if err != nil {
		t.Fatalf("RunTournament: %v", err)
	}
	if got := results.Get(agents[0].Name()).TotalScore; got != 1 {
		t.Fatalf("human score: got %d want 1", got)
	}
	s := out.String()
	if !strings.Contains(s, "Invalid input. Please enter 'c' or 'd'.") {
		t.Fatalf("missing reject message:\n%s", s)
	}
	if strings.Count(s, "Round 1:") != 1 || strings.Count(s, "Round 2:") != 1 {
		t.Fatalf("round lines:\n%s", s)
	}
}
