package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/tuning"
)

const manifestFile = "manifest.json"

// Manifest is everything needed to re-run a recorded tournament, apart from
// the human's moves, which are in the match log.
type Manifest struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Tuning    tuning.Tuning     `json:"tuning"`
	Agents    []arena.AgentInfo `json:"agents"`
}

func ManifestPath(runDir string) string { return filepath.Join(runDir, manifestFile) }

func WriteManifest(runDir string, m Manifest) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(runDir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, ManifestPath(runDir))
}

func ReadManifest(runDir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(ManifestPath(runDir))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", manifestFile, err)
	}
	return m, nil
}

// ReadMatches decodes every match entry of a run, in log order.
func ReadMatches(runDir string) ([]arena.MatchLogEntry, error) {
	parts, err := filepath.Glob(filepath.Join(runDir, "matches", "matches-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(parts)

	var out []arena.MatchLogEntry
	for _, p := range parts {
		entries, err := readPart(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readPart(path string) ([]arena.MatchLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []arena.MatchLogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e arena.MatchLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
