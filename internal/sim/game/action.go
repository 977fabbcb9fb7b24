package game

import (
	"errors"
	"fmt"
	"strings"
)

// Action is one round's move. The zero value None means "no move yet" and is
// only ever observed, never played.
type Action uint8

const (
	None Action = iota
	Cooperate
	Defect
)

var ErrInvalidAction = errors.New("invalid action")

func (a Action) Valid() bool { return a == Cooperate || a == Defect }

func (a Action) String() string {
	switch a {
	case Cooperate:
		return "cooperate"
	case Defect:
		return "defect"
	default:
		return "none"
	}
}

// Short is the one-letter form used in move strings ("C", "D", "-").
func (a Action) Short() byte {
	switch a {
	case Cooperate:
		return 'C'
	case Defect:
		return 'D'
	default:
		return '-'
	}
}

// ParseAction maps a free-form line to an action. Accepted spellings are
// "c"/"cooperate" and "d"/"defect", case-insensitive.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "cooperate":
		return Cooperate, nil
	case "d", "defect":
		return Defect, nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Moves encodes a sequence of actions as a compact "CDDC..." string.
func Moves(acts []Action) string {
	b := make([]byte, len(acts))
	for i, a := range acts {
		b[i] = a.Short()
	}
	return string(b)
}

// ParseMoves is the inverse of Moves.
func ParseMoves(s string) ([]Action, error) {
	out := make([]Action, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'C':
			out = append(out, Cooperate)
		case 'D':
			out = append(out, Defect)
		default:
			return nil, fmt.Errorf("%w: move %d is %q", ErrInvalidAction, i, s[i])
		}
	}
	return out, nil
}
