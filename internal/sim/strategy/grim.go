package strategy

import (
	"context"

	"dilemmarena.ai/internal/sim/game"
)

// GrimTrigger cooperates until the first defection it sees, then defects for
// the rest of the match.
type GrimTrigger struct {
	triggered bool
}

func (*GrimTrigger) Kind() Kind        { return KindGrimTrigger }
func (g *GrimTrigger) ResetForMatch()  { g.triggered = false }
func (g *GrimTrigger) Triggered() bool { return g.triggered }

func (g *GrimTrigger) ChooseAction(_ context.Context, v View) (game.Action, error) {
	if anyDefected(v.Opponents) {
		g.triggered = true
	}
	if g.triggered {
		return game.Defect, nil
	}
	return game.Cooperate, nil
}

const DefaultDefectLimit = 3

// GrimTriggerMix tolerates defections until it has observed limit of them in
// one match. The counter saturates into a permanent trigger.
type GrimTriggerMix struct {
	limit       int
	defectCount int
	triggered   bool
}

func NewGrimTriggerMix(limit int) *GrimTriggerMix {
	if limit <= 0 {
		limit = DefaultDefectLimit
	}
	return &GrimTriggerMix{limit: limit}
}

func (*GrimTriggerMix) Kind() Kind { return KindGrimTriggerMix }

func (g *GrimTriggerMix) ResetForMatch() {
	g.defectCount = 0
	g.triggered = false
}

func (g *GrimTriggerMix) DefectCount() int { return g.defectCount }
func (g *GrimTriggerMix) Triggered() bool  { return g.triggered }

func (g *GrimTriggerMix) ChooseAction(_ context.Context, v View) (game.Action, error) {
	for _, o := range v.Opponents {
		if o.LastAction() != game.Defect {
			continue
		}
		g.defectCount++
		if g.defectCount >= g.limit {
			g.triggered = true
		}
	}
	if g.triggered {
		return game.Defect, nil
	}
	return game.Cooperate, nil
}
