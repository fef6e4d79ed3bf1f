package nfl

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Conference is an NFL conference.
type Conference string

const (
	AFC Conference = "AFC"
	NFC Conference = "NFC"
)

// Team is one franchise. Aliases cover historical names from
// relocations and rebrands; they resolve to the current abbreviation so
// a franchise's history accumulates under one ID.
type Team struct {
	Abbr       string
	Name       string
	Conference Conference
	Division   string
	Aliases    []string
}

// TeamRegistry resolves team names and abbreviations and answers
// matchup-context questions (same division, same conference). It is
// built once from the static franchise table and never mutated, so it is
// safe to share across the statistics engine and feature builder.
type TeamRegistry struct {
	teams  []Team
	byAbbr map[string]*Team
	byName map[string]*Team
}

// NewTeamRegistry builds the registry for all 32 current franchises.
func NewTeamRegistry() *TeamRegistry {
	r := &TeamRegistry{
		teams:  franchises(),
		byAbbr: make(map[string]*Team),
		byName: make(map[string]*Team),
	}
	for i := range r.teams {
		t := &r.teams[i]
		r.byAbbr[t.Abbr] = t
		r.byName[normalizeName(t.Name)] = t
		for _, alias := range t.Aliases {
			r.byName[normalizeName(alias)] = t
		}
	}
	// Historical abbreviations map to the current franchise.
	for old, cur := range map[string]string{"OAK": "LV", "SD": "LAC", "STL": "LA"} {
		r.byAbbr[old] = r.byAbbr[cur]
	}
	return r
}

// Team returns the franchise for an abbreviation, current or historical.
func (r *TeamRegistry) Team(abbr string) (Team, bool) {
	t, ok := r.byAbbr[strings.ToUpper(abbr)]
	if !ok {
		return Team{}, false
	}
	return *t, true
}

// Abbr resolves a full team name (current or historical) to the current
// franchise abbreviation.
func (r *TeamRegistry) Abbr(name string) (string, bool) {
	t, ok := r.byName[normalizeName(name)]
	if !ok {
		return "", false
	}
	return t.Abbr, true
}

// Name returns the current full name for an abbreviation.
func (r *TeamRegistry) Name(abbr string) (string, bool) {
	t, ok := r.Team(abbr)
	if !ok {
		return "", false
	}
	return t.Name, true
}

// Resolve accepts either an abbreviation or a full name and returns the
// current abbreviation.
func (r *TeamRegistry) Resolve(s string) (string, bool) {
	if t, ok := r.Team(s); ok {
		return t.Abbr, true
	}
	return r.Abbr(s)
}

// SameDivision reports whether two teams share a division.
func (r *TeamRegistry) SameDivision(a, b string) bool {
	ta, oka := r.Team(a)
	tb, okb := r.Team(b)
	return oka && okb && ta.Division == tb.Division
}

// SameConference reports whether two teams share a conference.
func (r *TeamRegistry) SameConference(a, b string) bool {
	ta, oka := r.Team(a)
	tb, okb := r.Team(b)
	return oka && okb && ta.Conference == tb.Conference
}

// Teams returns all current franchises.
func (r *TeamRegistry) Teams() []Team {
	out := make([]Team, len(r.teams))
	copy(out, r.teams)
	return out
}

// normalizeName lowercases, strips accents, and collapses whitespace so
// name lookups tolerate formatting differences between data sources.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)
	name = strings.ReplaceAll(name, ".", "")
	return strings.Join(strings.Fields(name), " ")
}

func franchises() []Team {
	return []Team{
		// AFC East
		{Abbr: "BUF", Name: "Buffalo Bills", Conference: AFC, Division: "AFC East"},
		{Abbr: "MIA", Name: "Miami Dolphins", Conference: AFC, Division: "AFC East"},
		{Abbr: "NE", Name: "New England Patriots", Conference: AFC, Division: "AFC East"},
		{Abbr: "NYJ", Name: "New York Jets", Conference: AFC, Division: "AFC East"},

		// AFC North
		{Abbr: "BAL", Name: "Baltimore Ravens", Conference: AFC, Division: "AFC North"},
		{Abbr: "CIN", Name: "Cincinnati Bengals", Conference: AFC, Division: "AFC North"},
		{Abbr: "CLE", Name: "Cleveland Browns", Conference: AFC, Division: "AFC North"},
		{Abbr: "PIT", Name: "Pittsburgh Steelers", Conference: AFC, Division: "AFC North"},

		// AFC South
		{Abbr: "HOU", Name: "Houston Texans", Conference: AFC, Division: "AFC South"},
		{Abbr: "IND", Name: "Indianapolis Colts", Conference: AFC, Division: "AFC South"},
		{Abbr: "JAX", Name: "Jacksonville Jaguars", Conference: AFC, Division: "AFC South"},
		{Abbr: "TEN", Name: "Tennessee Titans", Conference: AFC, Division: "AFC South"},

		// AFC West
		{Abbr: "DEN", Name: "Denver Broncos", Conference: AFC, Division: "AFC West"},
		{Abbr: "KC", Name: "Kansas City Chiefs", Conference: AFC, Division: "AFC West"},
		{Abbr: "LV", Name: "Las Vegas Raiders", Conference: AFC, Division: "AFC West",
			Aliases: []string{"Oakland Raiders"}},
		{Abbr: "LAC", Name: "Los Angeles Chargers", Conference: AFC, Division: "AFC West",
			Aliases: []string{"San Diego Chargers"}},

		// NFC East
		{Abbr: "DAL", Name: "Dallas Cowboys", Conference: NFC, Division: "NFC East"},
		{Abbr: "NYG", Name: "New York Giants", Conference: NFC, Division: "NFC East"},
		{Abbr: "PHI", Name: "Philadelphia Eagles", Conference: NFC, Division: "NFC East"},
		{Abbr: "WAS", Name: "Washington Commanders", Conference: NFC, Division: "NFC East",
			Aliases: []string{"Washington Football Team", "Washington Redskins"}},

		// NFC North
		{Abbr: "CHI", Name: "Chicago Bears", Conference: NFC, Division: "NFC North"},
		{Abbr: "DET", Name: "Detroit Lions", Conference: NFC, Division: "NFC North"},
		{Abbr: "GB", Name: "Green Bay Packers", Conference: NFC, Division: "NFC North"},
		{Abbr: "MIN", Name: "Minnesota Vikings", Conference: NFC, Division: "NFC North"},

		// NFC South
		{Abbr: "ATL", Name: "Atlanta Falcons", Conference: NFC, Division: "NFC South"},
		{Abbr: "CAR", Name: "Carolina Panthers", Conference: NFC, Division: "NFC South"},
		{Abbr: "NO", Name: "New Orleans Saints", Conference: NFC, Division: "NFC South"},
		{Abbr: "TB", Name: "Tampa Bay Buccaneers", Conference: NFC, Division: "NFC South"},

		// NFC West
		{Abbr: "ARI", Name: "Arizona Cardinals", Conference: NFC, Division: "NFC West"},
		{Abbr: "LA", Name: "Los Angeles Rams", Conference: NFC, Division: "NFC West",
			Aliases: []string{"St. Louis Rams"}},
		{Abbr: "SF", Name: "San Francisco 49ers", Conference: NFC, Division: "NFC West"},
		{Abbr: "SEA", Name: "Seattle Seahawks", Conference: NFC, Division: "NFC West"},
	}
}
