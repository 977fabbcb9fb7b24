package arena

import (
	"sort"
	"sync"
)

// Stats is one strategy's running tally, summed over every agent that shares
// its display name.
type Stats struct {
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Ties       int `json:"ties"`
	TotalScore int `json:"total_score"`
	Matches    int `json:"matches"`
}

// Results aggregates match outcomes by display name for one tournament run.
type Results struct {
	mu     sync.Mutex
	byName map[string]*Stats
	order  []string
}

func NewResults() *Results {
	return &Results{byName: map[string]*Stats{}}
}

func (r *Results) entryLocked(name string) *Stats {
	s, ok := r.byName[name]
	if !ok {
		s = &Stats{}
		r.byName[name] = s
		r.order = append(r.order, name)
	}
	return s
}

// Record adds one match to both sides' tallies.
func (r *Results) Record(m Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sa := r.entryLocked(m.A.Name())
	sb := r.entryLocked(m.B.Name())
	sa.TotalScore += m.ScoreA
	sb.TotalScore += m.ScoreB
	sa.Matches++
	sb.Matches++
	switch m.Outcome {
	case AWins:
		sa.Wins++
		sb.Losses++
	case BWins:
		sb.Wins++
		sa.Losses++
	default:
		sa.Ties++
		sb.Ties++
	}
}

// Get returns the tally for name; the zero Stats if it never played.
func (r *Results) Get(name string) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byName[name]; ok {
		return *s
	}
	return Stats{}
}

// Names lists display names in the order they first appeared.
func (r *Results) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

type Standing struct {
	Rank  int
	Agent *Agent
	Stats Stats
}

// Ranking orders agents by descending rating. Equal ratings keep creation
// order.
func (r *Results) Ranking(agents []*Agent) []Standing {
	sorted := append([]*Agent(nil), agents...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].rating != sorted[j].rating {
			return sorted[i].rating > sorted[j].rating
		}
		return sorted[i].index < sorted[j].index
	})
	out := make([]Standing, 0, len(sorted))
	for i, a := range sorted {
		out = append(out, Standing{Rank: i + 1, Agent: a, Stats: r.Get(a.name)})
	}
	return out
}
