// Package stats computes point-in-time team statistics from the event
// store. Every number in a Snapshot is derived exclusively from games
// strictly prior to the requested cutoff; nothing here may look at the
// cutoff week itself or anything after it.
package stats

import (
	"math"
	"sync"
	"time"

	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/nfl"
)

// Neutral defaults applied when a team has no qualifying history.
const (
	DefaultWinPct = 0.5
	// League scoring average placeholder for teams with no games played.
	DefaultPointsPerGame = 21.5
	DefaultRestDays      = 7
)

// Snapshot is the point-in-time statistical state of a team entering the
// cutoff week. It is a value, recomputed deterministically from the
// store whenever needed, never persisted as ground truth.
type Snapshot struct {
	Team   string     `json:"team"`
	Cutoff nfl.Cutoff `json:"cutoff"`

	GamesPlayed          int     `json:"gamesPlayed"`
	WinPct               float64 `json:"winPct"`
	PointsForPerGame     float64 `json:"pointsForPerGame"`
	PointsAgainstPerGame float64 `json:"pointsAgainstPerGame"`
	Last3PointsFor       float64 `json:"last3PointsFor"`
	Last3PointsAgainst   float64 `json:"last3PointsAgainst"`
	RestDays             float64 `json:"restDays"`
	HomeWinPct           float64 `json:"homeWinPct"`
	AwayWinPct           float64 `json:"awayWinPct"`
	Streak               int     `json:"currentStreak"`
	StrengthOfSchedule   float64 `json:"strengthOfSchedule"`
}

type snapKey struct {
	team   string
	season int
	week   int
}

// Engine computes snapshots with a per-run memoization cache. Snapshots
// are pure functions of immutable history, so a cache entry keyed by
// (team, season, week) can never go stale within a run; call Reset after
// appending new settled games to the store.
type Engine struct {
	store *nfl.EventStore
	met   *metrics.Pipeline

	mu    sync.Mutex
	cache map[snapKey]Snapshot
}

// NewEngine creates an engine over the given store. met may be nil.
func NewEngine(store *nfl.EventStore, met *metrics.Pipeline) *Engine {
	return &Engine{
		store: store,
		met:   met,
		cache: make(map[snapKey]Snapshot),
	}
}

// Reset clears the memoization cache. Required after the underlying
// store gains newly settled games.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cache = make(map[snapKey]Snapshot)
	e.mu.Unlock()
}

// Snapshot computes the team's statistics as of the cutoff, with
// RestDays at its default. Missing history is not an error: a team with
// zero prior games gets the documented neutral defaults, so early-season
// predictions are always computable.
func (e *Engine) Snapshot(team string, c nfl.Cutoff) Snapshot {
	key := snapKey{team: team, season: c.Season, week: c.Week}

	e.mu.Lock()
	if s, ok := e.cache[key]; ok {
		e.mu.Unlock()
		e.met.RecordSnapshot(true)
		return s
	}
	e.mu.Unlock()

	s := e.compute(team, c)

	e.mu.Lock()
	e.cache[key] = s
	e.mu.Unlock()
	e.met.RecordSnapshot(false)
	return s
}

// SnapshotAt is Snapshot with RestDays derived from the gap between the
// given kickoff and the team's previous same-season game. A zero kickoff
// or an empty same-season history keeps the default of 7 days.
func (e *Engine) SnapshotAt(team string, c nfl.Cutoff, kickoff time.Time) Snapshot {
	s := e.Snapshot(team, c)
	if kickoff.IsZero() {
		return s
	}
	prior := e.seasonGamesBefore(team, c)
	if len(prior) == 0 {
		return s
	}
	last := prior[len(prior)-1]
	if last.Kickoff.IsZero() {
		return s
	}
	days := math.Round(kickoff.Sub(last.Kickoff).Hours() / 24)
	if days >= 1 {
		s.RestDays = days
	}
	return s
}

func (e *Engine) compute(team string, c nfl.Cutoff) Snapshot {
	s := Snapshot{
		Team:                 team,
		Cutoff:               c,
		WinPct:               DefaultWinPct,
		PointsForPerGame:     DefaultPointsPerGame,
		PointsAgainstPerGame: DefaultPointsPerGame,
		Last3PointsFor:       DefaultPointsPerGame,
		Last3PointsAgainst:   DefaultPointsPerGame,
		RestDays:             DefaultRestDays,
		HomeWinPct:           DefaultWinPct,
		AwayWinPct:           DefaultWinPct,
		StrengthOfSchedule:   DefaultWinPct,
	}

	// Scoring stats are season-scoped; splits and streak accumulate
	// over the full prior corpus.
	season := e.seasonGamesBefore(team, c)
	all := e.store.TeamBefore(team, c)

	if n := len(season); n > 0 {
		s.GamesPlayed = n
		wins, pf, pa := 0, 0, 0
		for _, g := range season {
			if g.WonBy(team) {
				wins++
			}
			pf += g.PointsFor(team)
			pa += g.PointsAgainst(team)
		}
		s.WinPct = float64(wins) / float64(n)
		s.PointsForPerGame = float64(pf) / float64(n)
		s.PointsAgainstPerGame = float64(pa) / float64(n)
		s.Last3PointsFor, s.Last3PointsAgainst = last3(season, team, s.PointsForPerGame, s.PointsAgainstPerGame)
		s.StrengthOfSchedule = e.strengthOfSchedule(team, season)
	}

	if len(all) > 0 {
		s.HomeWinPct, s.AwayWinPct = splits(all, team)
		s.Streak = streak(all, team)
	}

	return s
}

// last3 averages the most recent three games, padding with the team's
// own season-to-date average when fewer exist. Padding a mean with
// itself is the mean, so short histories reduce to the season average —
// deliberately continuous, never a league-default jump.
func last3(season []nfl.Game, team string, avgFor, avgAgainst float64) (float64, float64) {
	if len(season) < 3 {
		return avgFor, avgAgainst
	}
	recent := season[len(season)-3:]
	pf, pa := 0, 0
	for _, g := range recent {
		pf += g.PointsFor(team)
		pa += g.PointsAgainst(team)
	}
	return float64(pf) / 3, float64(pa) / 3
}

// splits computes home-only and away-only win percentages over disjoint
// subsets, each defaulting to 0.5 independently when empty.
func splits(games []nfl.Game, team string) (home, away float64) {
	homeWins, homeGames, awayWins, awayGames := 0, 0, 0, 0
	for _, g := range games {
		if g.HomeTeam == team {
			homeGames++
			if g.HomeWon() {
				homeWins++
			}
		} else {
			awayGames++
			if !g.HomeWon() {
				awayWins++
			}
		}
	}
	home, away = DefaultWinPct, DefaultWinPct
	if homeGames > 0 {
		home = float64(homeWins) / float64(homeGames)
	}
	if awayGames > 0 {
		away = float64(awayWins) / float64(awayGames)
	}
	return home, away
}

// streak counts the run of identical results entering the cutoff:
// +k for k straight wins, -k for k straight losses.
func streak(games []nfl.Game, team string) int {
	n := len(games)
	if n == 0 {
		return 0
	}
	lastWon := games[n-1].WonBy(team)
	run := 0
	for i := n - 1; i >= 0; i-- {
		if games[i].WonBy(team) != lastWon {
			break
		}
		run++
	}
	if lastWon {
		return run
	}
	return -run
}

// strengthOfSchedule is the mean of opponents' season win percentages,
// each evaluated as of the week this team faced them. The dependency is
// recursive but only ever looks backward, so it terminates.
func (e *Engine) strengthOfSchedule(team string, season []nfl.Game) float64 {
	if len(season) == 0 {
		return DefaultWinPct
	}
	sum := 0.0
	for _, g := range season {
		opp := g.Opponent(team)
		sum += e.seasonWinPct(opp, nfl.Cutoff{Season: g.Season, Week: g.Week})
	}
	return sum / float64(len(season))
}

func (e *Engine) seasonWinPct(team string, c nfl.Cutoff) float64 {
	games := e.seasonGamesBefore(team, c)
	if len(games) == 0 {
		return DefaultWinPct
	}
	wins := 0
	for _, g := range games {
		if g.WonBy(team) {
			wins++
		}
	}
	return float64(wins) / float64(len(games))
}

func (e *Engine) seasonGamesBefore(team string, c nfl.Cutoff) []nfl.Game {
	all := e.store.TeamBefore(team, c)
	var out []nfl.Game
	for _, g := range all {
		if g.Season == c.Season {
			out = append(out, g)
		}
	}
	return out
}
