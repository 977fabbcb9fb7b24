package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dilemmarena.ai/internal/protocol"
	"dilemmarena.ai/internal/sim/arena"
)

const subscriberBuffer = 256

// Hub fans tournament events out to WebSocket spectators. It is plugged into
// the arena as a match logger and never blocks the tournament: a subscriber
// whose buffer is full misses frames.
type Hub struct {
	runID string
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu    sync.Mutex
	subs  map[string]*subscriber
	start []byte
	total int
	order []string
	live  map[string]*protocol.StandingRow // by agent id: identity and rating
	tally map[string]*protocol.StandingRow // by display name: W-L-T and score
	last  *protocol.StandingsMsg
	final *protocol.TournamentEndMsg
}

type subscriber struct {
	out       chan []byte
	standings bool
}

func NewHub(runID string, logger *log.Logger) *Hub {
	return &Hub{
		runID: runID,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
		subs: map[string]*subscriber{},
		live:  map[string]*protocol.StandingRow{},
		tally: map[string]*protocol.StandingRow{},
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts frames lost to slow subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) StartRun(agents []arena.AgentInfo, totalMatches int) {
	msg := protocol.TournamentStartMsg{
		Type:            protocol.TypeTournamentStart,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
		TotalMatches:    totalMatches,
	}
	for _, a := range agents {
		msg.Agents = append(msg.Agents, protocol.AgentRef{AgentID: a.ID, Name: a.Name, Kind: string(a.Kind), Rating: a.Rating})
	}
	b, err := json.Marshal(msg)
	if err != nil {
		h.printf("observer: encode start: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.start = b
	h.total = totalMatches
	h.order = h.order[:0]
	h.live = map[string]*protocol.StandingRow{}
	h.tally = map[string]*protocol.StandingRow{}
	h.last = nil
	h.final = nil
	for _, a := range agents {
		h.order = append(h.order, a.ID)
		h.live[a.ID] = &protocol.StandingRow{AgentID: a.ID, Name: a.Name, Rating: a.Rating}
	}
	h.broadcastLocked(b, false)
}

func (h *Hub) WriteMatch(e arena.MatchLogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := json.Marshal(protocol.MatchResultMsg{
		Type:            protocol.TypeMatchResult,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
		Seq:             e.Seq,
		Game:            e.Game,
		TotalMatches:    h.total,
		AgentA:          e.AgentA,
		AgentB:          e.AgentB,
		NameA:           e.NameA,
		NameB:           e.NameB,
		ScoreA:          e.ScoreA,
		ScoreB:          e.ScoreB,
		Outcome:         e.Outcome,
		RatingA:         e.RatingA,
		RatingB:         e.RatingB,
		Digest:          e.Digest,
	})
	if err != nil {
		return fmt.Errorf("encode match %d: %w", e.Seq, err)
	}
	h.broadcastLocked(res, false)

	h.applyLocked(e)
	st := protocol.StandingsMsg{
		Type:            protocol.TypeStandings,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
		AfterSeq:        e.Seq,
		Rows:            h.rowsLocked(),
	}
	h.last = &st
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode standings %d: %w", e.Seq, err)
	}
	h.broadcastLocked(b, true)
	return nil
}

func (h *Hub) FinishRun(standings []arena.StandingEntry) {
	msg := protocol.TournamentEndMsg{
		Type:            protocol.TypeTournamentEnd,
		ProtocolVersion: protocol.Version,
		RunID:           h.runID,
	}
	for _, s := range standings {
		msg.Rows = append(msg.Rows, protocol.StandingRow{
			Rank:       s.Rank,
			AgentID:    s.ID,
			Name:       s.Name,
			Rating:     s.Rating,
			Wins:       s.Wins,
			Losses:     s.Losses,
			Ties:       s.Ties,
			TotalScore: s.TotalScore,
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	msg.Matches = h.total
	b, err := json.Marshal(msg)
	if err != nil {
		h.printf("observer: encode end: %v", err)
		return
	}
	h.final = &msg
	h.broadcastLocked(b, false)
}

func (h *Hub) applyLocked(e arena.MatchLogEntry) {
	ra, rb := h.live[e.AgentA], h.live[e.AgentB]
	if ra == nil || rb == nil {
		return
	}
	ra.Rating, rb.Rating = e.RatingA, e.RatingB

	// Tallies are shared by agents with the same name, as in the final table.
	a, b := h.tallyLocked(ra.Name), h.tallyLocked(rb.Name)
	a.TotalScore += e.ScoreA
	b.TotalScore += e.ScoreB
	switch {
	case e.ScoreA > e.ScoreB:
		a.Wins++
		b.Losses++
	case e.ScoreA < e.ScoreB:
		b.Wins++
		a.Losses++
	default:
		a.Ties++
		b.Ties++
	}
}

func (h *Hub) tallyLocked(name string) *protocol.StandingRow {
	t, ok := h.tally[name]
	if !ok {
		t = &protocol.StandingRow{}
		h.tally[name] = t
	}
	return t
}

// rowsLocked ranks agents by rating, ties in creation order.
func (h *Hub) rowsLocked() []protocol.StandingRow {
	pos := make(map[string]int, len(h.order))
	rows := make([]protocol.StandingRow, 0, len(h.order))
	for i, id := range h.order {
		pos[id] = i
		row := *h.live[id]
		if t, ok := h.tally[row.Name]; ok {
			row.Wins, row.Losses, row.Ties, row.TotalScore = t.Wins, t.Losses, t.Ties, t.TotalScore
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rating != rows[j].Rating {
			return rows[i].Rating > rows[j].Rating
		}
		return pos[rows[i].AgentID] < pos[rows[j].AgentID]
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func (h *Hub) broadcastLocked(b []byte, standings bool) {
	for _, s := range h.subs {
		if standings && !s.standings {
			continue
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// StandingsHandler serves the latest standings as JSON: the final table once
// the run is over, the live one before that.
func (h *Hub) StandingsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		h.mu.Lock()
		var resp any
		switch {
		case h.final != nil:
			resp = *h.final
		case h.last != nil:
			resp = *h.last
		case h.start != nil:
			resp = protocol.StandingsMsg{
				Type:            protocol.TypeStandings,
				ProtocolVersion: protocol.Version,
				RunID:           h.runID,
				Rows:            h.rowsLocked(),
			}
		}
		h.mu.Unlock()

		if resp == nil {
			http.Error(rw, "no run", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub protocol.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			rejectSubscribe(conn, protocol.ErrProtoBadRequest, "bad subscribe")
			return
		}
		if sub.Type != protocol.TypeSubscribe {
			rejectSubscribe(conn, protocol.ErrProtoExpectedSub, "expected SUBSCRIBE")
			return
		}
		if sub.ProtocolVersion != protocol.Version {
			rejectSubscribe(conn, protocol.ErrProtoBadVersion, "expected protocol_version "+protocol.Version)
			return
		}

		sid := fmt.Sprintf("S%d", h.nextID.Add(1))
		s := &subscriber{out: make(chan []byte, subscriberBuffer), standings: sub.WantsStandings()}
		h.join(sid, s)
		defer h.leave(sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-s.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: only here to notice the client going away.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// join registers s and queues the catch-up frames a late subscriber needs.
func (h *Hub) join(sid string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.start != nil {
		s.out <- h.start
	}
	if h.final != nil {
		if b, err := json.Marshal(*h.final); err == nil {
			s.out <- b
		}
	} else if h.last != nil && s.standings {
		if b, err := json.Marshal(*h.last); err == nil {
			s.out <- b
		}
	}
	h.subs[sid] = s
	h.printf("observer: %s subscribed (standings=%v)", sid, s.standings)
}

func (h *Hub) leave(sid string) {
	h.mu.Lock()
	delete(h.subs, sid)
	h.mu.Unlock()
	h.printf("observer: %s left", sid)
}

func rejectSubscribe(conn *websocket.Conn, code, message string) {
	b, _ := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func (h *Hub) printf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
