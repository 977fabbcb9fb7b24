package game

import "testing"

var both = []Action{Cooperate, Defect}

func TestRewards_Matrix(t *testing.T) {
	cases := []struct {
		a, b   Action
		ra, rb int
	}{
		{Cooperate, Cooperate, 3, 3},
		{Cooperate, Defect, 0, 5},
		{Defect, Cooperate, 5, 0},
		{Defect, Defect, 1, 1},
	}
	for _, c := range cases {
		ra, rb := Rewards(c.a, c.b)
		if ra != c.ra || rb != c.rb {
			t.Fatalf("Rewards(%v,%v)=(%d,%d) want (%d,%d)", c.a, c.b, ra, rb, c.ra, c.rb)
		}
	}
}

func TestRewards_SymmetricUnderRoleSwap(t *testing.T) {
	for _, x := range both {
		for _, y := range both {
			ra, _ := Rewards(x, y)
			_, rb := Rewards(y, x)
			if ra != rb {
				t.Fatalf("asymmetric payoff for (%v,%v): %d vs %d", x, y, ra, rb)
			}
		}
	}
}

func TestRewards_RoundSumClasses(t *testing.T) {
	for _, x := range both {
		for _, y := range both {
			ra, rb := Rewards(x, y)
			sum := ra + rb
			var want int
			switch {
			case x == Cooperate && y == Cooperate:
				want = 6
			case x == Defect && y == Defect:
				want = 2
			default:
				want = 5
			}
			if sum != want {
				t.Fatalf("(%v,%v) sum=%d want %d", x, y, sum, want)
			}
		}
	}
}

func TestRewards_DilemmaOrdering(t *testing.T) {
	if !(Temptation > Reward && Reward > Punishment && Punishment > Sucker) {
		t.Fatalf("payoffs are not a prisoner's dilemma")
	}
	if 2*Reward <= Temptation+Sucker {
		t.Fatalf("alternating exploitation should not beat mutual cooperation")
	}
}

func TestRewards_NoneScoresNothing(t *testing.T) {
	if ra, rb := Rewards(None, Defect); ra != 0 || rb != 0 {
		t.Fatalf("expected zero rewards for None, got (%d,%d)", ra, rb)
	}
}

func TestParseAction(t *testing.T) {
	ok := map[string]Action{
		"c": Cooperate, "C": Cooperate, " cooperate ": Cooperate, "COOPERATE": Cooperate,
		"d": Defect, "defect": Defect, "D\n": Defect,
	}
	for in, want := range ok {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Fatalf("ParseAction(%q)=(%v,%v) want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "x", "coop", "yes", "none"} {
		if _, err := ParseAction(in); err == nil {
			t.Fatalf("ParseAction(%q) should fail", in)
		}
	}
}

func TestMoves_RoundTrip(t *testing.T) {
	acts := []Action{Cooperate, Defect, Defect, Cooperate}
	s := Moves(acts)
	if s != "CDDC" {
		t.Fatalf("Moves=%q", s)
	}
	back, err := ParseMoves(s)
	if err != nil {
		t.Fatalf("ParseMoves: %v", err)
	}
	for i := range acts {
		if back[i] != acts[i] {
			t.Fatalf("move %d: got %v want %v", i, back[i], acts[i])
		}
	}
	if _, err := ParseMoves("CX"); err == nil {
		t.Fatalf("expected error for bad move string")
	}
}
