package strategy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"dilemmarena.ai/internal/sim/game"
)

type fakeOpp struct {
	name string
	last game.Action
}

func (f fakeOpp) Name() string            { return f.name }
func (f fakeOpp) LastAction() game.Action { return f.last }

func opps(acts ...game.Action) []Opponent {
	out := make([]Opponent, 0, len(acts))
	for _, a := range acts {
		out = append(out, fakeOpp{name: "opp", last: a})
	}
	return out
}

func choose(t *testing.T, s Strategy, o []Opponent) game.Action {
	t.Helper()
	a, err := s.ChooseAction(context.Background(), View{Round: 1, Opponents: o})
	if err != nil {
		t.Fatalf("%s: ChooseAction: %v", s.Kind(), err)
	}
	return a
}

const (
	C = game.Cooperate
	D = game.Defect
	N = game.None
)

func TestDecisionTables(t *testing.T) {
	cases := []struct {
		name string
		s    Strategy
		opps []Opponent
		want game.Action
	}{
		{"tft first round", &TitForTat{}, opps(N), C},
		{"tft after coop", &TitForTat{}, opps(C), C},
		{"tft after defect", &TitForTat{}, opps(D), D},
		{"tft any defector", &TitForTat{}, opps(C, C, D), D},

		{"mixed first round", &TitForTatMixed{}, opps(N), C},
		{"mixed tie cooperates", &TitForTatMixed{}, opps(C, D), C},
		{"mixed majority defect", &TitForTatMixed{}, opps(C, D, D), D},
		{"mixed none counts as neither", &TitForTatMixed{}, opps(N, N, D), D},
		{"mixed no opponents", &TitForTatMixed{}, nil, C},

		{"forgiving first round", &ForgivingTitForTat{}, opps(N), C},
		{"forgiving after coop", &ForgivingTitForTat{}, opps(C), C},
		{"forgiving after defect", &ForgivingTitForTat{}, opps(D), D},
		{"forgiving one fifth is not enough", &ForgivingTitForTat{}, opps(C, D, D, D, D), D},
		{"forgiving two of five", &ForgivingTitForTat{}, opps(C, C, D, D, D), C},
		{"forgiving no opponents", &ForgivingTitForTat{}, nil, C},

		{"ruthless exploits coop", &RuthlessTitForTat{rng: rand.New(rand.NewSource(1))}, opps(C), D},
		{"ruthless punishes defect", &RuthlessTitForTat{rng: rand.New(rand.NewSource(1))}, opps(D), D},

		{"super forgiving", SuperForgiving{}, opps(D), C},
		{"super unforgiving", SuperUnforgiving{}, opps(C), D},
	}
	for _, tc := range cases {
		if got := choose(t, tc.s, tc.opps); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestDeterministicStrategies_PureFunctionsOfHistory(t *testing.T) {
	histories := [][]Opponent{opps(N), opps(C), opps(D), opps(C, D), opps(D, D, C)}
	for _, kind := range []Kind{KindTitForTat, KindGrimTrigger, KindSuperForgiving, KindSuperUnforgiving} {
		for _, h := range histories {
			var first game.Action
			for run := 0; run < 5; run++ {
				s, err := New(kind, Options{})
				if err != nil {
					t.Fatalf("New(%s): %v", kind, err)
				}
				got := choose(t, s, h)
				if run == 0 {
					first = got
				} else if got != first {
					t.Fatalf("%s not deterministic: run %d got %v want %v", kind, run, got, first)
				}
			}
		}
	}
}

func TestGrimTrigger_StaysTriggeredUntilReset(t *testing.T) {
	g := &GrimTrigger{}
	if choose(t, g, opps(N)) != C {
		t.Fatalf("expected cooperation before any defection")
	}
	if choose(t, g, opps(D)) != D || !g.Triggered() {
		t.Fatalf("expected trigger on defection")
	}
	for i := 0; i < 3; i++ {
		if choose(t, g, opps(C)) != D {
			t.Fatalf("triggered grim must keep defecting")
		}
	}
	g.ResetForMatch()
	if g.Triggered() || choose(t, g, opps(N)) != C {
		t.Fatalf("reset should clear the trigger")
	}
}

func TestGrimTriggerMix_SaturatingCounter(t *testing.T) {
	g := NewGrimTriggerMix(DefaultDefectLimit)
	seq := []struct {
		obs  game.Action
		want game.Action
	}{
		{N, C}, {D, C}, {C, C}, {D, C}, {D, D}, {C, D}, {C, D},
	}
	for i, st := range seq {
		if got := choose(t, g, opps(st.obs)); got != st.want {
			t.Fatalf("step %d: got %v want %v (count=%d)", i, got, st.want, g.DefectCount())
		}
	}
	if g.DefectCount() != 3 || !g.Triggered() {
		t.Fatalf("count=%d triggered=%v", g.DefectCount(), g.Triggered())
	}
	g.ResetForMatch()
	if g.DefectCount() != 0 || g.Triggered() {
		t.Fatalf("reset should clear memory")
	}
}

func TestGrimTriggerMix_CountsEveryDefectingOpponent(t *testing.T) {
	g := NewGrimTriggerMix(3)
	if got := choose(t, g, opps(D, D, D)); got != D {
		t.Fatalf("three defectors in one round should trigger, got %v", got)
	}
}

func TestKind_Randomized(t *testing.T) {
	for _, k := range append(Kinds(), KindHuman) {
		want := k == KindRandom || k == KindRuthlessTitForTat
		if k.Randomized() != want {
			t.Fatalf("%s: Randomized=%v", k, k.Randomized())
		}
		// Every deterministic kind must build without a rand source.
		if !want && k != KindHuman {
			if _, err := New(k, Options{}); err != nil {
				t.Fatalf("%s without rand: %v", k, err)
			}
		}
	}
}

func TestRandomizedStrategies_SeededStreams(t *testing.T) {
	for _, kind := range []Kind{KindRandom, KindRuthlessTitForTat} {
		s1, _ := New(kind, Options{Rand: rand.New(rand.NewSource(7))})
		s2, _ := New(kind, Options{Rand: rand.New(rand.NewSource(7))})
		seen := map[game.Action]bool{}
		for i := 0; i < 64; i++ {
			a1 := choose(t, s1, opps(N))
			a2 := choose(t, s2, opps(N))
			if a1 != a2 {
				t.Fatalf("%s: same seed diverged at %d", kind, i)
			}
			seen[a1] = true
		}
		if !seen[C] || !seen[D] {
			t.Fatalf("%s: expected both actions over 64 draws, got %v", kind, seen)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(KindRandom, Options{}); err == nil {
		t.Fatalf("Random without rand should fail")
	}
	if _, err := New(KindHuman, Options{}); err == nil {
		t.Fatalf("Human without input should fail")
	}
	if _, err := New(Kind("Nope"), Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	for _, k := range Kinds() {
		s, err := New(k, Options{Rand: rand.New(rand.NewSource(1))})
		if err != nil {
			t.Fatalf("New(%s): %v", k, err)
		}
		if s.Kind() != k {
			t.Fatalf("kind mismatch: %s vs %s", s.Kind(), k)
		}
	}
}

func TestParseKind(t *testing.T) {
	ok := map[string]Kind{
		"TitForTat":              KindTitForTat,
		"titfortatplayer":        KindTitForTat,
		" GrimTriggerMix ":       KindGrimTriggerMix,
		"TitForTatPlayeMixed":    KindTitForTatMixed,
		"SuperUnForgivingPlayer": KindSuperUnforgiving,
		"human":                  KindHuman,
	}
	for in, want := range ok {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=(%q,%v) want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("Copycat"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
