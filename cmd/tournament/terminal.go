package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dilemmarena.ai/internal/sim/game"
	"dilemmarena.ai/internal/sim/strategy"
	"dilemmarena.ai/internal/sim/tuning"
)

// lineReader owns stdin. A single goroutine scans lines so that a blocked
// read never outlives a cancelled tournament.
type lineReader struct {
	lines chan string
	err   error // set before lines is closed
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lr.lines <- sc.Text()
		}
		lr.err = sc.Err()
		if lr.err == nil {
			lr.err = io.EOF
		}
		close(lr.lines)
	}()
	return lr
}

func (lr *lineReader) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			return "", lr.err
		}
		return strings.TrimSpace(line), nil
	}
}

// terminalInput feeds the human player from the terminal.
type terminalInput struct {
	in  *lineReader
	out io.Writer
}

func newTerminalInput(in *lineReader, out io.Writer) *terminalInput {
	return &terminalInput{in: in, out: out}
}

func (t *terminalInput) ReadMove(ctx context.Context, p strategy.Prompt) (string, error) {
	fmt.Fprint(t.out, formatPrompt(p))
	return t.in.Next(ctx)
}

func (t *terminalInput) Reject(string) {
	fmt.Fprintln(t.out, "Invalid input. Please enter 'c' or 'd'.")
}

func formatPrompt(p strategy.Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nRound %d. Your score: %d\n", p.Round, p.Score)
	for _, o := range p.Opponents {
		last := "None (first round)"
		if o.Last != game.None {
			last = o.Last.String()
		}
		fmt.Fprintf(&b, "  %s's last action: %s\n", o.Name, last)
	}
	b.WriteString("Enter your action (c = cooperate, d = defect): ")
	return b.String()
}

// askSetup asks whether the user wants to play and how many matches each
// pair plays. It keeps asking until the answers parse.
func askSetup(in *lineReader, out io.Writer, tune *tuning.Tuning) error {
	ctx := context.Background()
	play, err := askYesNo(ctx, in, out, "Do you want to play? (y/n): ")
	if err != nil {
		return err
	}
	n, err := askPositiveInt(ctx, in, out, fmt.Sprintf("Matches per pair [%d]: ", tune.MatchesPerPair), tune.MatchesPerPair)
	if err != nil {
		return err
	}
	tune.IncludeHuman = play
	tune.MatchesPerPair = n
	return nil
}

func askYesNo(ctx context.Context, in *lineReader, out io.Writer, question string) (bool, error) {
	for {
		fmt.Fprint(out, question)
		line, err := in.Next(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(out, "Please answer 'y' or 'n'.")
	}
}

// askPositiveInt accepts an empty line as def.
func askPositiveInt(ctx context.Context, in *lineReader, out io.Writer, question string, def int) (int, error) {
	for {
		fmt.Fprint(out, question)
		line, err := in.Next(ctx)
		if err != nil {
			return 0, err
		}
		if line == "" && def > 0 {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintln(out, "Please enter a positive whole number.")
	}
}
