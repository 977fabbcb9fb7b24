package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dilemmarena.ai/internal/sim/arena"
	"dilemmarena.ai/internal/sim/tuning"
)

// RemoteConfig points a RemoteIndex at an HTTP ingest endpoint that accepts
// {"events":[...]} batches.
type RemoteConfig struct {
	Endpoint      string
	Token         string
	RunID         string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

// RemoteIndex pushes the same rows as SQLiteIndex to a remote collector.
// A batch that fails to send is kept and retried on the next flush.
type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	queueDropped atomic.Uint64
	flushFail    atomic.Uint64
	sent         atomic.Uint64
}

type remoteEvent struct {
	Kind    string `json:"kind"`
	RunID   string `json:"run_id"`
	Payload any    `json:"payload"`
}

type remoteRunPayload struct {
	Tuning     tuning.Tuning `json:"tuning"`
	RecordedAt string        `json:"recorded_at"`
}

type remoteStartPayload struct {
	Agents       []arena.AgentInfo `json:"agents"`
	TotalMatches int               `json:"total_matches"`
}

type RemoteStats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueDroppedTotal uint64 `json:"queue_dropped_total"`
	FlushFailTotal    uint64 `json:"flush_fail_total"`
	SentTotal         uint64 `json:"sent_total"`
}

const maxRetainedEvents = 16384

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.RunID = strings.TrimSpace(cfg.RunID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty ingest endpoint")
	}
	if cfg.RunID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &RemoteIndex{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan remoteEvent, 32768),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()

	return d, nil
}

// Close flushes what is queued (one attempt) and stops the sender.
func (d *RemoteIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *RemoteIndex) Stats() RemoteStats {
	if d == nil {
		return RemoteStats{}
	}
	return RemoteStats{
		QueueDepth:        len(d.ch),
		QueueDroppedTotal: d.queueDropped.Load(),
		FlushFailTotal:    d.flushFail.Load(),
		SentTotal:         d.sent.Load(),
	}
}

// RecordRun queues the applied tuning; delivery failures surface in Stats.
func (d *RemoteIndex) RecordRun(tune tuning.Tuning) error {
	d.enqueue("run", remoteRunPayload{Tuning: tune, RecordedAt: time.Now().UTC().Format(time.RFC3339Nano)})
	return nil
}

func (d *RemoteIndex) StartRun(agents []arena.AgentInfo, totalMatches int) {
	d.enqueue("start", remoteStartPayload{Agents: agents, TotalMatches: totalMatches})
}

func (d *RemoteIndex) WriteMatch(entry arena.MatchLogEntry) error {
	d.enqueue("match", entry)
	return nil
}

func (d *RemoteIndex) FinishRun(standings []arena.StandingEntry) {
	d.enqueue("standings", standings)
}

func (d *RemoteIndex) enqueue(kind string, payload any) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- remoteEvent{Kind: kind, RunID: d.cfg.RunID, Payload: payload}:
	default:
		d.queueDropped.Add(1)
		d.printf("remote index queue full; drop kind=%s run=%s", kind, d.cfg.RunID)
	}
}

func (d *RemoteIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]remoteEvent, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFail.Add(1)
			d.printf("remote index flush failed batch=%d err=%v", len(batch), err)
			if len(batch) > maxRetainedEvents {
				drop := len(batch) - maxRetainedEvents
				d.queueDropped.Add(uint64(drop))
				batch = append(batch[:0], batch[drop:]...)
			}
			return
		}
		d.sent.Add(uint64(len(batch)))
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *RemoteIndex) sendBatch(events []remoteEvent) error {
	if len(events) == 0 {
		return nil
	}

	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-arena-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *RemoteIndex) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
