package s3mirror

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	QueueDepth   int    `json:"queue_depth"`
	Enqueued     uint64 `json:"enqueued_total"`
	Dropped      uint64 `json:"dropped_total"`
	Uploaded     uint64 `json:"uploaded_total"`
	UploadFailed uint64 `json:"upload_failed_total"`
}

type Options struct {
	Workers       int           // default 2
	QueueCapacity int           // default 1024
	EnqueueWait   time.Duration // how long Enqueue may block on a full queue; default 25ms
	Attempts      int           // per file; default 4
	Backoff       time.Duration // base retry delay, grows with attempt^2; default 200ms
}

// Mirror uploads files below dataDir to the bucket under prefix, keeping
// their relative path as the object key. Enqueue never blocks the caller
// for longer than EnqueueWait; files that do not fit are dropped and
// counted.
type Mirror struct {
	client  *Client
	dataDir string
	prefix  string
	opts    Options
	logger  *log.Logger

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	enqueued     atomic.Uint64
	dropped      atomic.Uint64
	uploaded     atomic.Uint64
	uploadFailed atomic.Uint64
}

func NewMirror(client *Client, dataDir, prefix string, opts Options, logger *log.Logger) *Mirror {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 1024
	}
	if opts.EnqueueWait <= 0 {
		opts.EnqueueWait = 25 * time.Millisecond
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 4
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	m := &Mirror{
		client:  client,
		dataDir: dataDir,
		prefix:  strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		opts:    opts,
		logger:  logger,
		jobs:    make(chan string, opts.QueueCapacity),
	}
	for i := 0; i < opts.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for p := range m.jobs {
				m.upload(p)
			}
		}()
	}
	return m
}

func (m *Mirror) Enqueue(localPath string) {
	if m == nil {
		return
	}
	m.enqueued.Add(1)
	select {
	case m.jobs <- localPath:
		return
	default:
	}
	t := time.NewTimer(m.opts.EnqueueWait)
	defer t.Stop()
	select {
	case m.jobs <- localPath:
	case <-t.C:
		n := m.dropped.Add(1)
		m.printf("mirror: drop %s (queue full, dropped=%d)", localPath, n)
	}
}

// Close waits for queued uploads to finish. Enqueue must not be called
// afterwards.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		close(m.jobs)
		m.wg.Wait()
	})
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:   len(m.jobs),
		Enqueued:     m.enqueued.Load(),
		Dropped:      m.dropped.Load(),
		Uploaded:     m.uploaded.Load(),
		UploadFailed: m.uploadFailed.Load(),
	}
}

func (m *Mirror) upload(localPath string) {
	key, err := m.objectKey(localPath)
	if err != nil {
		m.uploadFailed.Add(1)
		m.printf("mirror: skip %s: %v", localPath, err)
		return
	}
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.client.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			m.uploaded.Add(1)
			m.printf("mirror: uploaded %s", key)
			return
		}
		if attempt >= m.opts.Attempts {
			break
		}
		time.Sleep(time.Duration(attempt*attempt) * m.opts.Backoff)
	}
	m.uploadFailed.Add(1)
	m.printf("mirror: upload %s failed after %d attempts: %v", key, m.opts.Attempts, err)
}

func (m *Mirror) objectKey(localPath string) (string, error) {
	base, err := filepath.Abs(m.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("outside data dir %s", base)
	}
	if m.prefix != "" {
		rel = path.Join(m.prefix, rel)
	}
	return rel, nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
