package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"dilemmarena.ai/internal/sim/arena"
)

const DefaultPartSize = 1000

// JSONLZstdWriter appends JSON lines to zstd-compressed part files, starting
// a new part every partSize entries.
type JSONLZstdWriter struct {
	baseDir  string
	prefix   string
	partSize int

	mu      sync.Mutex
	part    int
	inPart  int
	written int
	cur     string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer

	onClosed func(path string)
}

func NewJSONLZstdWriter(baseDir, prefix string, partSize int) *JSONLZstdWriter {
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	return &JSONLZstdWriter{
		baseDir:  baseDir,
		prefix:   prefix,
		partSize: partSize,
	}
}

// OnPartClosed registers fn to be called with the path of every part once it
// is complete on disk. fn runs with the writer locked and must not block.
func (w *JSONLZstdWriter) OnPartClosed(fn func(path string)) {
	w.mu.Lock()
	w.onClosed = fn
	w.mu.Unlock()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Written is the number of entries accepted so far.
func (w *JSONLZstdWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil || w.inPart >= w.partSize {
		if err := w.rotateLocked(w.part + 1); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.inPart++
	w.written++
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(part int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForPart(part), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.cur = f.Name()
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.part = part
	w.inPart = 0
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
		if err1 == nil && w.onClosed != nil {
			w.onClosed(w.cur)
		}
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForPart(part int) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%06d.jsonl.zst", w.prefix, part))
}

// MatchLogger writes one compressed JSONL entry per finished match under
// <runDir>/matches.
type MatchLogger struct{ w *JSONLZstdWriter }

func NewMatchLogger(runDir string, partSize int) *MatchLogger {
	return &MatchLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "matches"), "matches", partSize)}
}

func (l *MatchLogger) WriteMatch(e arena.MatchLogEntry) error { return l.w.Write(e) }
func (l *MatchLogger) Written() int                           { return l.w.Written() }
func (l *MatchLogger) Close() error                           { return l.w.Close() }

// OnPartClosed forwards to the underlying writer; see JSONLZstdWriter.
func (l *MatchLogger) OnPartClosed(fn func(path string)) { l.w.OnPartClosed(fn) }
