package game

// Canonical Prisoner's Dilemma payoffs: T > R > P > S.
const (
	Reward     = 3 // mutual cooperation
	Sucker     = 0 // cooperated against a defector
	Temptation = 5 // defected against a cooperator
	Punishment = 1 // mutual defection
)

// payoffs[a][b] is the reward pair for the first and second mover.
var payoffs = [3][3][2]int{
	Cooperate: {
		Cooperate: {Reward, Reward},
		Defect:    {Sucker, Temptation},
	},
	Defect: {
		Cooperate: {Temptation, Sucker},
		Defect:    {Punishment, Punishment},
	},
}

// Rewards returns the round rewards for the two players. Both actions must be
// valid; anything else scores zero for both sides.
func Rewards(a, b Action) (ra, rb int) {
	if !a.Valid() || !b.Valid() {
		return 0, 0
	}
	p := payoffs[a][b]
	return p[0], p[1]
}
