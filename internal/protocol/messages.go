package protocol

// SUBSCRIBE (client -> server). Must be the first frame on the feed.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Standings=false skips the per-match STANDINGS frames.
	Standings *bool `json:"standings,omitempty"`
}

func (m SubscribeMsg) WantsStandings() bool {
	return m.Standings == nil || *m.Standings
}

type AgentRef struct {
	AgentID string  `json:"agent_id"`
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Rating  float64 `json:"rating"`
}

// TOURNAMENT_START (server -> client). Also sent to late subscribers.
type TournamentStartMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RunID           string     `json:"run_id"`
	Agents          []AgentRef `json:"agents"`
	TotalMatches    int        `json:"total_matches"`
}

// MATCH_RESULT (server -> client)
type MatchResultMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	RunID           string  `json:"run_id"`
	Seq             int     `json:"seq"`
	Game            int     `json:"game"`
	TotalMatches    int     `json:"total_matches"`
	AgentA          string  `json:"agent_a"`
	AgentB          string  `json:"agent_b"`
	NameA           string  `json:"name_a"`
	NameB           string  `json:"name_b"`
	ScoreA          int     `json:"score_a"`
	ScoreB          int     `json:"score_b"`
	Outcome         float64 `json:"outcome"`
	RatingA         float64 `json:"rating_a"`
	RatingB         float64 `json:"rating_b"`
	Digest          string  `json:"digest"`
}

type StandingRow struct {
	Rank       int     `json:"rank"`
	AgentID    string  `json:"agent_id"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Ties       int     `json:"ties"`
	TotalScore int     `json:"total_score"`
}

// STANDINGS (server -> client): live table after a match.
type StandingsMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	RunID           string        `json:"run_id"`
	AfterSeq        int           `json:"after_seq"`
	Rows            []StandingRow `json:"rows"`
}

// TOURNAMENT_END (server -> client): final ranking.
type TournamentEndMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	RunID           string        `json:"run_id"`
	Matches         int           `json:"matches"`
	Rows            []StandingRow `json:"rows"`
}

// ERROR (server -> client), sent right before the server closes the feed.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
