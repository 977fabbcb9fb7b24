package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dilemmarena.ai/internal/persistence/indexdb"
	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	arena.MatchLogger
	arena.RunObserver
	RecordRun(tune tuning.Tuning) error
	Close() error
}

// sqliteRun binds the run id the SQLite meta table records.
type sqliteRun struct {
	*indexdb.SQLiteIndex
	runID string
}

func (s sqliteRun) RecordRun(tune tuning.Tuning) error {
	return s.SQLiteIndex.RecordRun(s.runID, tune)
}

func openRuntimeIndex(runDir, runID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ARENA_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(runDir, "index", "results.sqlite"))
		if err != nil {
			return nil, err
		}
		return sqliteRun{SQLiteIndex: idx, runID: runID}, nil
	case "remote":
		endpoint := strings.TrimSpace(os.Getenv("ARENA_INDEX_REMOTE_URL"))
		token := strings.TrimSpace(os.Getenv("ARENA_INDEX_REMOTE_TOKEN"))
		if endpoint == "" {
			return nil, fmt.Errorf("ARENA_INDEX_BACKEND=remote but ARENA_INDEX_REMOTE_URL is empty")
		}
		flushMS := envInt("ARENA_INDEX_REMOTE_FLUSH_MS", 500)
		batchSize := envInt("ARENA_INDEX_REMOTE_BATCH_SIZE", 128)
		idx, err := indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint:      endpoint,
			Token:         token,
			RunID:         runID,
			BatchSize:     batchSize,
			FlushInterval: time.Duration(flushMS) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported ARENA_INDEX_BACKEND: %s", backend)
	}
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
