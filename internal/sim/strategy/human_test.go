package strategy

import (
	"context"
	"errors"
	"testing"

	"dilemmarena.ai/internal/sim/game"
)

type recordingInput struct {
	*Script
	prompts []Prompt
}

func (r *recordingInput) ReadMove(ctx context.Context, p Prompt) (string, error) {
	r.prompts = append(r.prompts, p)
	return r.Script.ReadMove(ctx, p)
}

func TestHuman_RetriesUntilValid(t *testing.T) {
	in := &recordingInput{Script: NewScript("maybe", "", "D")}
	h := NewHuman(in)

	v := View{Round: 4, Score: 9, Opponents: []Opponent{fakeOpp{name: "TitForTat", last: game.Cooperate}}}
	act, err := h.ChooseAction(context.Background(), v)
	if err != nil {
		t.Fatalf("ChooseAction: %v", err)
	}
	if act != game.Defect {
		t.Fatalf("got %v want defect", act)
	}
	rej := in.Rejected()
	if len(rej) != 2 || rej[0] != "maybe" || rej[1] != "" {
		t.Fatalf("rejected=%q", rej)
	}
	if len(in.prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(in.prompts))
	}
	p := in.prompts[0]
	if p.Round != 4 || p.Score != 9 || len(p.Opponents) != 1 || p.Opponents[0].Name != "TitForTat" || p.Opponents[0].Last != game.Cooperate {
		t.Fatalf("unexpected prompt: %+v", p)
	}
}

func TestHuman_ExhaustedScriptFails(t *testing.T) {
	h := NewHuman(NewScript("x"))
	_, err := h.ChooseAction(context.Background(), View{Opponents: opps(N)})
	if !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("expected ErrScriptExhausted, got %v", err)
	}
}

func TestHuman_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHuman(NewScript("c"))
	if _, err := h.ChooseAction(ctx, View{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScript_Append(t *testing.T) {
	s := NewScript("c")
	s.Append("d", "c")
	if s.Remaining() != 3 {
		t.Fatalf("remaining=%d", s.Remaining())
	}
	for _, want := range []string{"c", "d", "c"} {
		got, err := s.ReadMove(context.Background(), Prompt{})
		if err != nil || got != want {
			t.Fatalf("ReadMove=(%q,%v) want %q", got, err, want)
		}
	}
}
