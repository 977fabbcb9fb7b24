// Package report renders a finished tournament for a terminal: a ranking
// table and a horizontal ELO bar chart.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/ttacon/chalk"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/rating"
	"dilemmarena.ai/internal/sim/strategy"
)

const DefaultChartWidth = 50

type Options struct {
	// Color paints the human player's rows red and everyone else blue.
	Color bool
	// Width is the length in cells of the longest bar.
	Width int
	// Baseline is marked on every bar; the starting rating by default.
	Baseline float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultChartWidth
	}
	if o.Baseline <= 0 {
		o.Baseline = rating.DefaultRating
	}
	return o
}

func paint(o Options, kind strategy.Kind, s string) string {
	if !o.Color {
		return s
	}
	if kind == strategy.KindHuman {
		return chalk.Red.Color(s)
	}
	return chalk.Blue.Color(s)
}

// WriteRankings prints the final table in ranking order.
func WriteRankings(w io.Writer, standings []arena.StandingEntry, opts Options) error {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tPlayer\tELO\tW-L-T\tTotal Score")
	for _, s := range standings {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%d-%d-%d\t%s\n",
			s.Rank, label(s, standings), s.Rating, s.Wins, s.Losses, s.Ties, humanize.Comma(int64(s.TotalScore)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Colour whole lines after alignment; tabwriter counts escape bytes as width.
	out := bufio.NewWriter(w)
	sc := bufio.NewScanner(&buf)
	for i := 0; sc.Scan(); i++ {
		line := sc.Text()
		if i > 0 {
			line = paint(opts, standings[i-1].Kind, line)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteEloChart prints one bar per player scaled to the highest rating, with
// the baseline rating marked by '|'.
func WriteEloChart(w io.Writer, standings []arena.StandingEntry, opts Options) error {
	opts = opts.withDefaults()
	if len(standings) == 0 {
		return nil
	}

	maxRating := opts.Baseline
	nameWidth := 0
	for _, s := range standings {
		maxRating = math.Max(maxRating, s.Rating)
		if n := len(label(s, standings)); n > nameWidth {
			nameWidth = n
		}
	}
	scale := float64(opts.Width) / maxRating
	mark := int(math.Round(opts.Baseline * scale))

	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "ELO ratings (| = %.0f)\n", opts.Baseline)
	for _, s := range standings {
		bar := Bar(int(math.Round(math.Max(s.Rating, 0)*scale)), mark)
		fmt.Fprintf(out, "%-*s %s %.1f\n", nameWidth, label(s, standings), paint(opts, s.Kind, bar), s.Rating)
	}
	return out.Flush()
}

// Bar draws n filled cells with a marker at column mark. The result is
// always at least mark+1 cells wide so bars line up on the marker.
func Bar(n, mark int) string {
	width := n
	if mark+1 > width {
		width = mark + 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == mark:
			b.WriteByte('|')
		case i < n:
			b.WriteString("█")
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// label is the display name, qualified by agent id when several agents share
// it.
func label(s arena.StandingEntry, all []arena.StandingEntry) string {
	n := 0
	for _, o := range all {
		if o.Name == s.Name {
			n++
		}
	}
	if n > 1 {
		return fmt.Sprintf("%s (%s)", s.Name, s.ID)
	}
	return s.Name
}
