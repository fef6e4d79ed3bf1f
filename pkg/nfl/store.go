package nfl

import (
	"fmt"
	"sort"
	"sync"
)

// EventStore is the chronological corpus of games plus their optional
// market lines. Games are kept sorted by (season, week, kickoff, id) so
// every query returns a deterministic order. Settled games are never
// mutated; the corpus only grows, except for the scheduled->final
// transition applied through Settle.
type EventStore struct {
	mu    sync.RWMutex
	games []Game
	index map[string]int
	lines map[string]MarketLine
}

// NewEventStore creates an empty store.
func NewEventStore() *EventStore {
	return &EventStore{
		index: make(map[string]int),
		lines: make(map[string]MarketLine),
	}
}

// Add inserts a game in chronological position. Duplicate IDs and games
// without the identifying fields are rejected.
func (s *EventStore) Add(g Game) error {
	if g.ID == "" {
		return fmt.Errorf("store: game missing id")
	}
	if g.HomeTeam == "" || g.AwayTeam == "" || g.HomeTeam == g.AwayTeam {
		return fmt.Errorf("store: game %s has invalid teams %q/%q", g.ID, g.HomeTeam, g.AwayTeam)
	}
	if g.Season <= 0 || g.Week <= 0 {
		return fmt.Errorf("store: game %s has invalid season/week %d/%d", g.ID, g.Season, g.Week)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[g.ID]; ok {
		return fmt.Errorf("store: duplicate game %s", g.ID)
	}

	i := sort.Search(len(s.games), func(i int) bool { return !less(s.games[i], g) })
	s.games = append(s.games, Game{})
	copy(s.games[i+1:], s.games[i:])
	s.games[i] = g
	// Everything from the insertion point on shifted right by one.
	for j := i; j < len(s.games); j++ {
		s.index[s.games[j].ID] = j
	}
	return nil
}

// Settle finalizes a scheduled game with its scores. Settling an
// already-final game is an error: settled facts are immutable.
func (s *EventStore) Settle(id string, homeScore, awayScore int) error {
	if homeScore < 0 || awayScore < 0 {
		return fmt.Errorf("store: negative score for game %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("store: unknown game %s", id)
	}
	if s.games[i].Final {
		return fmt.Errorf("store: game %s already settled", id)
	}
	s.games[i].HomeScore = homeScore
	s.games[i].AwayScore = awayScore
	s.games[i].Final = true
	return nil
}

// SetLine attaches a market line to an existing game. Lines may be
// refreshed as books move.
func (s *EventStore) SetLine(gameID string, l MarketLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[gameID]; !ok {
		return fmt.Errorf("store: unknown game %s", gameID)
	}
	s.lines[gameID] = l
	return nil
}

// Line returns the market line for a game, if one was recorded.
func (s *EventStore) Line(gameID string) (MarketLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lines[gameID]
	return l, ok
}

// Get returns a game by ID.
func (s *EventStore) Get(id string) (Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.games[i], true
	}
	return Game{}, false
}

// Len returns the number of stored games.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// All returns every stored game in chronological order.
func (s *EventStore) All() []Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Game, len(s.games))
	copy(out, s.games)
	return out
}

// Final returns every settled game in chronological order.
func (s *EventStore) Final() []Game {
	return s.filter(func(g Game) bool { return g.Final })
}

// Unsettled returns scheduled games awaiting results.
func (s *EventStore) Unsettled() []Game {
	return s.filter(func(g Game) bool { return !g.Final })
}

// Before returns settled games strictly prior to the cutoff.
func (s *EventStore) Before(c Cutoff) []Game {
	return s.filter(func(g Game) bool { return g.Final && g.Before(c) })
}

// At returns settled games at exactly the cutoff week.
func (s *EventStore) At(c Cutoff) []Game {
	return s.filter(func(g Game) bool { return g.Final && g.At(c) })
}

// SeasonGames returns settled games in a season.
func (s *EventStore) SeasonGames(season int) []Game {
	return s.filter(func(g Game) bool { return g.Final && g.Season == season })
}

// TeamBefore returns the settled games a team played strictly prior to
// the cutoff, oldest first.
func (s *EventStore) TeamBefore(team string, c Cutoff) []Game {
	return s.filter(func(g Game) bool {
		return g.Final && g.Participates(team) && g.Before(c)
	})
}

// Seasons returns the distinct seasons present, ascending.
func (s *EventStore) Seasons() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for _, g := range s.games {
		if n := len(out); n == 0 || out[n-1] != g.Season {
			out = append(out, g.Season)
		}
	}
	return out
}

// Weeks returns the distinct (season, week) cutoffs present, ascending.
func (s *EventStore) Weeks() []Cutoff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Cutoff
	for _, g := range s.games {
		c := Cutoff{Season: g.Season, Week: g.Week}
		if n := len(out); n == 0 || out[n-1] != c {
			out = append(out, c)
		}
	}
	return out
}

func (s *EventStore) filter(keep func(Game) bool) []Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Game
	for _, g := range s.games {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
