package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"dilemmarena.ai/internal/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://127.0.0.1:8081/v1/observer/ws", "spectator feed url")
		standings = flag.Bool("standings", true, "receive the standings table after every match")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[spectate] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Standings:       standings,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		line, done := describe(msg)
		if line != "" {
			logger.Print(line)
		}
		if done {
			return
		}
	}
}

// describe renders one feed frame. done is set once the feed has nothing
// more to say.
func describe(msg []byte) (line string, done bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return "", false
	}
	switch base.Type {
	case protocol.TypeTournamentStart:
		var m protocol.TournamentStartMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		names := make([]string, 0, len(m.Agents))
		for _, a := range m.Agents {
			names = append(names, a.Name)
		}
		return fmt.Sprintf("TOURNAMENT_START run=%s matches=%s players=%s",
			m.RunID, humanize.Comma(int64(m.TotalMatches)), strings.Join(names, ",")), false

	case protocol.TypeMatchResult:
		var m protocol.MatchResultMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", false
		}
		return fmt.Sprintf("MATCH %d/%d %s vs %s (game %d): %d-%d ratings %.1f/%.1f",
			m.Seq, m.TotalMatches, m.NameA, m.NameB, m.Game, m.ScoreA, m.ScoreB, m.RatingA, m.RatingB), false

	case protocol.TypeStandings:
		var m protocol.StandingsMsg
		if json.Unmarshal(msg, &m) != nil || len(m.Rows) == 0 {
			return "", false
		}
		top := m.Rows[0]
		return fmt.Sprintf("STANDINGS after=%d leader=%s (%.1f)", m.AfterSeq, top.Name, top.Rating), false

	case protocol.TypeTournamentEnd:
		var m protocol.TournamentEndMsg
		if json.Unmarshal(msg, &m) != nil {
			return "", true
		}
		var b strings.Builder
		fmt.Fprintf(&b, "TOURNAMENT_END matches=%s", humanize.Comma(int64(m.Matches)))
		for _, r := range m.Rows {
			fmt.Fprintf(&b, "\n  %d. %s %.1f (%d-%d-%d) score=%s", r.Rank, r.Name, r.Rating, r.Wins, r.Losses, r.Ties, humanize.Comma(int64(r.TotalScore)))
		}
		return b.String(), true

	case protocol.TypeError:
		var m protocol.ErrorMsg
		_ = json.Unmarshal(msg, &m)
		return fmt.Sprintf("ERROR %s: %s", m.Code, m.Message), true
	}
	return "", false
}
