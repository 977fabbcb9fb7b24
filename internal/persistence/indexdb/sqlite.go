package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/tuning"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable per-run export of a tournament. The match log
// stays the source of truth; the index may drop matches under pressure.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMatch atomic.Uint64
	writeErrs atomic.Uint64
	lostRows  atomic.Uint64
}

type reqKind int

const (
	reqMatch reqKind = iota + 1
	reqAgents
	reqStandings
)

type req struct {
	kind reqKind

	match     arena.MatchLogEntry
	agents    []arena.AgentInfo
	standings []arena.StandingEntry
}

func (r req) rows() int {
	switch r.kind {
	case reqAgents:
		return len(r.agents)
	case reqStandings:
		return len(r.standings)
	}
	return 1
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropMatchTotal uint64 `json:"drop_match_total"`
	WriteErrTotal  uint64 `json:"write_err_total"`
	// LostRowTotal counts rows that reached the writer but were never
	// committed, including the uncommitted batch a failure rolls back.
	LostRowTotal uint64 `json:"lost_row_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			idx INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			base_rating REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			seq INTEGER PRIMARY KEY,
			game INTEGER NOT NULL,
			agent_a TEXT NOT NULL,
			agent_b TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			score_a INTEGER NOT NULL,
			score_b INTEGER NOT NULL,
			moves_a TEXT NOT NULL,
			moves_b TEXT NOT NULL,
			outcome REAL NOT NULL CHECK (outcome IN (0, 0.5, 1)),
			rating_a REAL NOT NULL,
			rating_b REAL NOT NULL,
			digest TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_agent_a ON matches(agent_a, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_agent_b ON matches(agent_b, seq);`,
		`CREATE TABLE IF NOT EXISTS standings (
			rank INTEGER PRIMARY KEY,
			agent_id TEXT NOT NULL,
			name TEXT NOT NULL,
			rating REAL NOT NULL,
			wins INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			ties INTEGER NOT NULL,
			total_score INTEGER NOT NULL,
			matches INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database. Safe to call more
// than once.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropMatchTotal: s.dropMatch.Load(),
		WriteErrTotal:  s.writeErrs.Load(),
		LostRowTotal:   s.lostRows.Load(),
	}
}

func (s *SQLiteIndex) WriteMatch(entry arena.MatchLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqMatch, match: entry}:
	default:
		// Drop if the indexer falls behind; the match log remains the source of truth.
		s.dropMatch.Add(1)
	}
	return nil
}

// StartRun and FinishRun block until queued so the agents and standings
// tables are always complete.
func (s *SQLiteIndex) StartRun(agents []arena.AgentInfo, _ int) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqAgents, agents: agents}
}

func (s *SQLiteIndex) FinishRun(standings []arena.StandingEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqStandings, standings: standings}
}

// RecordRun stores the run id and the applied tuning in one transaction.
func (s *SQLiteIndex) RecordRun(runID string, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	rows := [][2]string{
		{"schema_version", schemaVersion},
		{"run_id", runID},
		{"recorded_at", now},
		{"tuning", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
	}
	for _, r := range rows {
		if _, err := stmt.Exec(r[0], r[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(seq,game,agent_a,agent_b,rounds,score_a,score_b,moves_a,moves_b,outcome,rating_a,rating_b,digest) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertAgent, _ := s.db.Prepare(`INSERT OR REPLACE INTO agents(id,idx,name,kind,base_rating) VALUES(?,?,?,?,?)`)
	insertStanding, _ := s.db.Prepare(`INSERT OR REPLACE INTO standings(rank,agent_id,name,rating,wins,losses,ties,total_score,matches) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMatch, insertAgent, insertStanding} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrs.Add(1)
			s.lostRows.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	// rollback discards the failed row and every uncommitted one before it.
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeErrs.Add(1)
		s.lostRows.Add(uint64(opCount) + 1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			s.writeErrs.Add(1)
			s.lostRows.Add(1)
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.writeErrs.Add(1)
			s.lostRows.Add(uint64(r.rows()))
			continue
		}
		switch r.kind {
		case reqMatch:
			m := r.match
			exec(insertMatch,
				m.Seq, m.Game, m.AgentA, m.AgentB, m.Rounds,
				m.ScoreA, m.ScoreB, m.MovesA, m.MovesB,
				m.Outcome, m.RatingA, m.RatingB, m.Digest,
			)

		case reqAgents:
			for i, a := range r.agents {
				if !exec(insertAgent, a.ID, a.Index, a.Name, string(a.Kind), a.Rating) {
					s.lostRows.Add(uint64(len(r.agents) - i - 1))
					break
				}
			}

		case reqStandings:
			for i, st := range r.standings {
				if !exec(insertStanding,
					st.Rank, st.ID, st.Name, st.Rating,
					st.Wins, st.Losses, st.Ties, st.TotalScore, st.Matches,
				) {
					s.lostRows.Add(uint64(len(r.standings) - i - 1))
					break
				}
			}
			// Standings close the run.
			commit()
			continue
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
