package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	persistlog "dilemmarena.ai/internal/persistence/log"
	"dilemmarena.ai/internal/persistence/s3mirror"
	"dilemmarena.ai/internal/report"
	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/strategy"
	"dilemmarena.ai/internal/sim/tuning"
	"dilemmarena.ai/internal/transport/observer"
)

func main() {
	var (
		configPath  = flag.String("config", "./configs/tournament.yaml", "path to tournament.yaml (empty: built-in defaults)")
		seed        = flag.Int64("seed", 0, "random seed (overrides config)")
		matches     = flag.Int("matches", 0, "matches per pair (overrides config)")
		rounds      = flag.Int("rounds", 0, "rounds per match (overrides config)")
		workers     = flag.Int("workers", 0, "concurrent pairs; ignored when a human plays (overrides config)")
		human       = flag.Bool("human", false, "add a human player reading moves from stdin (overrides config)")
		interactive = flag.Bool("interactive", false, "ask whether to play and how many matches per pair before starting")
		dataDir     = flag.String("data", "./data", "runtime data directory; each run writes to <data>/runs/<run_id>")
		disableDB   = flag.Bool("disable_db", false, "disable the results index")
		disableLog  = flag.Bool("disable_log", false, "disable the match log and manifest (the run cannot be replayed)")
		observe     = flag.String("observe", "", "serve the spectator feed on this address, e.g. 127.0.0.1:8081")
		color       = flag.Bool("color", true, "colour the ranking table and chart")
		chartWidth  = flag.Int("chart_width", report.DefaultChartWidth, "width of the ELO chart in cells")
		partSize    = flag.Int("part_size", persistlog.DefaultPartSize, "matches per match log part")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[tournament] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		tune = tuning.Defaults()
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["seed"] {
		tune.Seed = *seed
	}
	if set["matches"] {
		tune.MatchesPerPair = *matches
	}
	if set["rounds"] {
		tune.RoundsPerMatch = *rounds
	}
	if set["workers"] {
		tune.Workers = *workers
	}
	if set["human"] {
		tune.IncludeHuman = *human
	}

	var stdin *lineReader
	if *interactive || tune.IncludeHuman {
		stdin = newLineReader(os.Stdin)
	}
	if *interactive {
		if err := askSetup(stdin, os.Stdout, &tune); err != nil {
			logger.Fatalf("setup: %v", err)
		}
	}
	tune.Normalize()
	if err := tune.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rc := runConfig{
		dataDir:    *dataDir,
		runID:      uuid.NewString(),
		tune:       tune,
		disableLog: *disableLog,
		disableDB:  *disableDB,
		partSize:   *partSize,
		observe:    strings.TrimSpace(*observe),
		logger:     logger,
	}
	if tune.IncludeHuman {
		rc.input = newTerminalInput(stdin, os.Stdout)
		rc.onRound = roundPrinter(os.Stdout)
	}

	start := time.Now()
	standings, err := runTournament(ctx, rc)
	if !rc.disableLog {
		logger.Printf("match log: %s", rc.runDir())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Printf("tournament cancelled; no results")
			return
		}
		logger.Printf("tournament: %v", err)
		cancel()
		os.Exit(1)
	}
	logger.Printf("run %s finished in %s", rc.runID, time.Since(start).Round(time.Millisecond))

	opts := report.Options{Color: *color, Width: *chartWidth, Baseline: tune.Elo.BaseRating}
	fmt.Println()
	if err := report.WriteRankings(os.Stdout, standings, opts); err != nil {
		logger.Printf("rankings: %v", err)
	}
	fmt.Println()
	if err := report.WriteEloChart(os.Stdout, standings, opts); err != nil {
		logger.Printf("chart: %v", err)
	}
}

type runConfig struct {
	dataDir    string
	runID      string
	tune       tuning.Tuning
	disableLog bool
	disableDB  bool
	partSize   int
	observe    string // spectator feed address; empty disables it
	input      strategy.Input
	onRound    arena.RoundFunc
	logger     *log.Logger
}

func (rc runConfig) runDir() string { return filepath.Join(rc.dataDir, "runs", rc.runID) }

// runTournament plays one run with every sink attached. The sinks are closed
// before it returns, also when the run fails, so the match log keeps every
// match played up to the failure.
func runTournament(ctx context.Context, rc runConfig) ([]arena.StandingEntry, error) {
	logger := rc.logger
	runDir := rc.runDir()
	cfg := rc.tune.ArenaConfig()
	hooks := arena.Hooks{Logger: logger, Input: rc.input, OnRound: rc.onRound}

	mirror, err := openRunMirror(rc.dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	// Closed last so the final match log part is uploaded.
	defer mirror.Close()

	if !rc.disableLog {
		ml := persistlog.NewMatchLogger(runDir, rc.partSize)
		if mirror != nil {
			ml.OnPartClosed(mirror.Enqueue)
		}
		defer func() {
			if err := ml.Close(); err != nil {
				logger.Printf("match log close: %v", err)
			}
		}()
		hooks.Loggers = append(hooks.Loggers, ml, &manifestWriter{runDir: runDir, runID: rc.runID, tune: rc.tune, mirror: mirror, logger: logger})
	}

	idx, err := openRuntimeIndex(runDir, rc.runID, rc.disableDB, logger)
	if err != nil {
		return nil, fmt.Errorf("open index backend: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.RecordRun(rc.tune); err != nil {
			logger.Printf("index backend: record run: %v", err)
		}
		hooks.Loggers = append(hooks.Loggers, idx)
	}

	if rc.observe != "" {
		hub := observer.NewHub(rc.runID, logger)
		hooks.Loggers = append(hooks.Loggers, hub)
		stop := serveObserver(rc.observe, hub, logger)
		defer stop()
	}

	logger.Printf("run %s: players=%d matches=%d seed=%d", rc.runID, cfg.Players(), cfg.TotalMatches(), cfg.Seed)
	agents, results, err := arena.RunTournament(ctx, cfg, hooks)
	if err != nil {
		return nil, err
	}
	return results.Standings(agents), nil
}

// manifestWriter records the agents as created at the start of the run so
// cmd/replay can rebuild the tournament.
type manifestWriter struct {
	runDir string
	runID  string
	tune   tuning.Tuning
	mirror *s3mirror.Mirror
	logger *log.Logger
}

func (m *manifestWriter) WriteMatch(arena.MatchLogEntry) error { return nil }
func (m *manifestWriter) FinishRun([]arena.StandingEntry)      {}

func (m *manifestWriter) StartRun(agents []arena.AgentInfo, _ int) {
	err := persistlog.WriteManifest(m.runDir, persistlog.Manifest{
		RunID:     m.runID,
		CreatedAt: time.Now().UTC(),
		Tuning:    m.tune,
		Agents:    agents,
	})
	if err != nil {
		m.logger.Printf("manifest: %v", err)
		return
	}
	if m.mirror != nil {
		m.mirror.Enqueue(persistlog.ManifestPath(m.runDir))
	}
}

func serveObserver(addr string, hub *observer.Hub, logger *log.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/observer/ws", hub.WSHandler())
	mux.HandleFunc("/v1/observer/standings", hub.StandingsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("spectator feed on ws://%s/v1/observer/ws", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("observer: ListenAndServe: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// roundPrinter echoes the rounds a human takes part in.
func roundPrinter(w io.Writer) arena.RoundFunc {
	return func(ev arena.RoundEvent) {
		if ev.A.Kind() != strategy.KindHuman && ev.B.Kind() != strategy.KindHuman {
			return
		}
		fmt.Fprintf(w, "Round %d: %s %s, %s %s (score %d-%d)\n",
			ev.Round, ev.A.Name(), ev.ActA, ev.B.Name(), ev.ActB, ev.ScoreA, ev.ScoreB)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
