// Package nfl defines the core game model: settled games, posted market
// lines, the chronological event store they live in, and the team
// registry used to resolve names and matchup context.
package nfl

import "time"

// Game is a single NFL game. A game with Final set is a settled,
// immutable fact; a scheduled game carries zero scores and Final=false
// until Settle is called on the store.
type Game struct {
	ID        string    `json:"gameId"`
	Season    int       `json:"season"`
	Week      int       `json:"week"`
	Kickoff   time.Time `json:"kickoff"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	HomeScore int       `json:"homeScore"`
	AwayScore int       `json:"awayScore"`
	Final     bool      `json:"final"`
	Weather   *Weather  `json:"weather,omitempty"`
}

// Weather holds game-time conditions. Absent weather is handled by the
// feature builder's documented defaults, never by zeroing fields here.
type Weather struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
	Dome          bool    `json:"isDome"`
}

// MarketLine is the posted market for a game. Spread is the market's
// expected home margin in points (positive = home favored), the same
// home-perspective units as ActualSpread. Note this is the negation of
// sportsbook handicap notation: "home -3" means Spread = 3.
type MarketLine struct {
	Spread float64 `json:"spread"`
	Total  float64 `json:"total"`
	Books  int     `json:"books,omitempty"`
}

// ActualSpread is the home-perspective margin: home score minus away
// score. Negative means the away team won by that many.
func (g Game) ActualSpread() float64 { return float64(g.HomeScore - g.AwayScore) }

// ActualTotal is the combined score.
func (g Game) ActualTotal() float64 { return float64(g.HomeScore + g.AwayScore) }

// HomeWon reports whether the home team won outright.
func (g Game) HomeWon() bool { return g.HomeScore > g.AwayScore }

// Participates reports whether team played in this game.
func (g Game) Participates(team string) bool {
	return g.HomeTeam == team || g.AwayTeam == team
}

// Opponent returns the other team, or "" if team did not play.
func (g Game) Opponent(team string) string {
	switch team {
	case g.HomeTeam:
		return g.AwayTeam
	case g.AwayTeam:
		return g.HomeTeam
	}
	return ""
}

// WonBy reports whether team won this game. False for teams that did
// not participate.
func (g Game) WonBy(team string) bool {
	if g.HomeTeam == team {
		return g.HomeWon()
	}
	if g.AwayTeam == team {
		return !g.HomeWon()
	}
	return false
}

// PointsFor returns the points scored by team in this game.
func (g Game) PointsFor(team string) int {
	if g.HomeTeam == team {
		return g.HomeScore
	}
	return g.AwayScore
}

// PointsAgainst returns the points allowed by team in this game.
func (g Game) PointsAgainst(team string) int {
	if g.HomeTeam == team {
		return g.AwayScore
	}
	return g.HomeScore
}

// Prime-time flags derived from the kickoff timestamp, in the timezone
// the kickoff was recorded in. A zero kickoff yields false for all.

// ThursdayNight reports a Thursday evening kickoff.
func (g Game) ThursdayNight() bool {
	return !g.Kickoff.IsZero() && g.Kickoff.Weekday() == time.Thursday && g.Kickoff.Hour() >= 18
}

// SundayNight reports a Sunday evening kickoff.
func (g Game) SundayNight() bool {
	return !g.Kickoff.IsZero() && g.Kickoff.Weekday() == time.Sunday && g.Kickoff.Hour() >= 19
}

// MondayNight reports a Monday evening kickoff.
func (g Game) MondayNight() bool {
	return !g.Kickoff.IsZero() && g.Kickoff.Weekday() == time.Monday && g.Kickoff.Hour() >= 18
}

// Cutoff identifies a point in the season calendar. A game is strictly
// prior to a cutoff when its (season, week) sorts before (Season, Week);
// games at the cutoff week itself are excluded. This is the single
// comparison every point-in-time computation goes through.
type Cutoff struct {
	Season int `json:"season"`
	Week   int `json:"week"`
}

// Before reports whether the game is strictly prior to the cutoff.
func (g Game) Before(c Cutoff) bool {
	if g.Season != c.Season {
		return g.Season < c.Season
	}
	return g.Week < c.Week
}

// At reports whether the game sits exactly at the cutoff week.
func (g Game) At(c Cutoff) bool {
	return g.Season == c.Season && g.Week == c.Week
}

// less orders games chronologically by (season, week, kickoff) with the
// game ID as a stable tiebreak inside a week.
func less(a, b Game) bool {
	if a.Season != b.Season {
		return a.Season < b.Season
	}
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	if !a.Kickoff.Equal(b.Kickoff) {
		return a.Kickoff.Before(b.Kickoff)
	}
	return a.ID < b.ID
}
