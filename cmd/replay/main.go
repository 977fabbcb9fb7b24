package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	runDir := flag.String("run", "", "run directory containing manifest.json and matches/")
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	rep, err := replayRun(context.Background(), *runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("run %s: players=%d seed=%d\n", rep.RunID, rep.Players, rep.Seed)
	if len(rep.Mismatches) > 0 {
		for _, m := range rep.Mismatches {
			fmt.Fprintln(os.Stderr, "mismatch:", m)
		}
		fmt.Fprintf(os.Stderr, "replay failed: %d of %d matches differ\n", len(rep.Mismatches), rep.Checked)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d matches\n", rep.Checked)
}
