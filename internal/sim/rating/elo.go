// Package rating implements the logistic ELO update used to rank strategies.
//
// Ratings are a relative skill estimate only. They have no floor or ceiling,
// and across more than two players their sum is not guaranteed to stay
// constant.
package rating

import "math"

const (
	DefaultK      = 32.0
	DefaultRating = 1200.0

	scale = 400.0
)

// Expected returns the expected score of a player rated ra against one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/scale))
}

type Elo struct {
	K float64
}

func New(k float64) Elo {
	if k <= 0 {
		k = DefaultK
	}
	return Elo{K: k}
}

// Update returns both new ratings after a game in which A scored scoreA
// (1 win, 0.5 draw, 0 loss). Both expectations are taken from the ratings
// before the game.
func (e Elo) Update(ra, rb, scoreA float64) (newA, newB float64) {
	ea := Expected(ra, rb)
	eb := Expected(rb, ra)
	newA = ra + e.K*(scoreA-ea)
	newB = rb + e.K*((1-scoreA)-eb)
	return newA, newB
}
