package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"dilemmarena.ai/internal/sim/game"
)

// Prompt describes the decision a human is asked to make.
type Prompt struct {
	Round     int
	Score     int
	Opponents []OpponentInfo
}

type OpponentInfo struct {
	Name string
	Last game.Action // game.None before the first round
}

// Input is the collaborator that supplies a human's moves. ReadMove blocks
// until a line is available; Reject is told about a line that did not name
// an action, right before ReadMove is asked again.
type Input interface {
	ReadMove(ctx context.Context, p Prompt) (string, error)
	Reject(line string)
}

// Human asks its Input for every move and keeps asking until the answer
// parses.
type Human struct {
	in Input
}

func NewHuman(in Input) *Human { return &Human{in: in} }

func (*Human) Kind() Kind     { return KindHuman }
func (*Human) ResetForMatch() {}

func (h *Human) ChooseAction(ctx context.Context, v View) (game.Action, error) {
	p := Prompt{Round: v.Round, Score: v.Score}
	for _, o := range v.Opponents {
		p.Opponents = append(p.Opponents, OpponentInfo{Name: o.Name(), Last: o.LastAction()})
	}
	for {
		if err := ctx.Err(); err != nil {
			return game.None, err
		}
		line, err := h.in.ReadMove(ctx, p)
		if err != nil {
			return game.None, fmt.Errorf("human input: %w", err)
		}
		act, err := game.ParseAction(line)
		if err == nil {
			return act, nil
		}
		h.in.Reject(line)
	}
}

// ErrScriptExhausted is returned by a Script with no lines left.
var ErrScriptExhausted = errors.New("script exhausted")

// Script is an Input that replays a fixed sequence of lines. It stands in for
// the terminal in tests and when re-running a recorded tournament.
type Script struct {
	mu       sync.Mutex
	lines    []string
	pos      int
	rejected []string
}

func NewScript(lines ...string) *Script {
	return &Script{lines: append([]string(nil), lines...)}
}

// Append queues more lines after the current ones.
func (s *Script) Append(lines ...string) {
	s.mu.Lock()
	s.lines = append(s.lines, lines...)
	s.mu.Unlock()
}

func (s *Script) ReadMove(ctx context.Context, _ Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.lines) {
		return "", fmt.Errorf("%w after %d lines: %w", ErrScriptExhausted, s.pos, io.EOF)
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

func (s *Script) Reject(line string) {
	s.mu.Lock()
	s.rejected = append(s.rejected, line)
	s.mu.Unlock()
}

// Rejected returns the lines that did not parse, in order.
func (s *Script) Rejected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rejected...)
}

// Remaining reports how many lines have not been read yet.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) - s.pos
}
