// Package features assembles the fixed-order numeric vectors fed to the
// regressor. The ordering is part of the model contract: a model trained
// on one ordering must never see a vector assembled with another, so the
// order lives in exactly one place (the Builder) and both training and
// prediction go through it.
package features

import (
	"github.com/unspoken95159/predict/pkg/nfl"
	"github.com/unspoken95159/predict/pkg/nfl/stats"
)

// Defaults applied when optional context is missing. These are the same
// at training and prediction time; a divergent default silently corrupts
// predictions.
const (
	DefaultTemperature   = 65.0
	DefaultWindSpeed     = 5.0
	DefaultPrecipitation = 0.0

	DefaultSuccessRate   = 0.5
	DefaultExplosiveRate = 0.1
)

// Advanced holds externally supplied per-team efficiency metrics (EPA
// and friends). The pipeline never computes these itself.
type Advanced struct {
	EPAPerPlay        float64 `json:"epa_per_play"`
	EPAAllowedPerPlay float64 `json:"epa_allowed_per_play"`
	SuccessRate       float64 `json:"success_rate"`
	ExplosiveRate     float64 `json:"explosive_rate"`
	QBEPA             float64 `json:"qb_epa"`
}

// Context is the static per-game context that does not come from team
// snapshots.
type Context struct {
	Divisional    bool
	Conference    bool
	ThursdayNight bool
	SundayNight   bool
	MondayNight   bool

	Weather      *nfl.Weather
	HomeAdvanced *Advanced
	AwayAdvanced *Advanced
}

// Set selects which optional feature blocks a vector carries. Script
// variants in this pipeline are feature-set configurations, not separate
// builder implementations.
type Set struct {
	// IncludeAdvanced appends the externally supplied EPA block.
	IncludeAdvanced bool
}

// Builder produces feature vectors in a fixed order for one Set.
type Builder struct {
	set   Set
	names []string
}

// NewBuilder creates a builder for the given feature set.
func NewBuilder(set Set) *Builder {
	b := &Builder{set: set}
	b.names = b.buildNames()
	return b
}

// Names returns the feature names in vector order. The slice is shared;
// callers must not modify it.
func (b *Builder) Names() []string {
	return b.names
}

// Len returns the vector width.
func (b *Builder) Len() int {
	return len(b.names)
}

func (b *Builder) buildNames() []string {
	names := []string{
		"home_win_pct", "home_ppg", "home_pag",
		"home_last3_pf", "home_last3_pa", "home_rest_days",
		"home_home_win_pct", "home_away_win_pct", "home_streak", "home_sos",

		"away_win_pct", "away_ppg", "away_pag",
		"away_last3_pf", "away_last3_pa", "away_rest_days",
		"away_home_win_pct", "away_away_win_pct", "away_streak", "away_sos",

		"win_pct_diff", "ppg_diff", "pag_diff",
		"rest_days_diff", "sos_diff", "home_advantage_diff",

		"is_divisional", "is_conference",
		"is_thursday_night", "is_sunday_night", "is_monday_night",

		"temperature", "wind_speed", "precipitation", "is_dome",
	}
	if b.set.IncludeAdvanced {
		names = append(names,
			"home_epa_per_play", "away_epa_per_play",
			"home_epa_allowed", "away_epa_allowed",
			"home_success_rate", "away_success_rate",
			"home_explosive_rate", "away_explosive_rate",
			"home_qb_epa", "away_qb_epa",
			"epa_diff", "qb_epa_diff", "success_rate_diff",
		)
	}
	return names
}

// Build assembles the vector for one game. Pure: no I/O, deterministic,
// and every differential is computed from the verbatim snapshot fields
// that precede it in the same vector.
func (b *Builder) Build(home, away stats.Snapshot, ctx Context) []float64 {
	v := make([]float64, 0, len(b.names))

	v = append(v,
		home.WinPct, home.PointsForPerGame, home.PointsAgainstPerGame,
		home.Last3PointsFor, home.Last3PointsAgainst, home.RestDays,
		home.HomeWinPct, home.AwayWinPct, float64(home.Streak), home.StrengthOfSchedule,

		away.WinPct, away.PointsForPerGame, away.PointsAgainstPerGame,
		away.Last3PointsFor, away.Last3PointsAgainst, away.RestDays,
		away.HomeWinPct, away.AwayWinPct, float64(away.Streak), away.StrengthOfSchedule,

		home.WinPct-away.WinPct,
		home.PointsForPerGame-away.PointsForPerGame,
		// Lower points-against is better, so the sign is away-home.
		away.PointsAgainstPerGame-home.PointsAgainstPerGame,
		home.RestDays-away.RestDays,
		home.StrengthOfSchedule-away.StrengthOfSchedule,
		home.HomeWinPct-away.AwayWinPct,

		bool01(ctx.Divisional), bool01(ctx.Conference),
		bool01(ctx.ThursdayNight), bool01(ctx.SundayNight), bool01(ctx.MondayNight),
	)

	w := ctx.Weather
	if w == nil {
		v = append(v, DefaultTemperature, DefaultWindSpeed, DefaultPrecipitation, 0)
	} else {
		v = append(v, w.Temperature, w.WindSpeed, w.Precipitation, bool01(w.Dome))
	}

	if b.set.IncludeAdvanced {
		ha := advancedOrDefault(ctx.HomeAdvanced)
		aa := advancedOrDefault(ctx.AwayAdvanced)
		v = append(v,
			ha.EPAPerPlay, aa.EPAPerPlay,
			ha.EPAAllowedPerPlay, aa.EPAAllowedPerPlay,
			ha.SuccessRate, aa.SuccessRate,
			ha.ExplosiveRate, aa.ExplosiveRate,
			ha.QBEPA, aa.QBEPA,
			ha.EPAPerPlay-aa.EPAPerPlay,
			ha.QBEPA-aa.QBEPA,
			ha.SuccessRate-aa.SuccessRate,
		)
	}

	return v
}

// ContextForGame derives the static context for a game from the registry
// and the game record itself. homeAdv/awayAdv may be nil.
func ContextForGame(reg *nfl.TeamRegistry, g nfl.Game, homeAdv, awayAdv *Advanced) Context {
	return Context{
		Divisional:    reg.SameDivision(g.HomeTeam, g.AwayTeam),
		Conference:    reg.SameConference(g.HomeTeam, g.AwayTeam),
		ThursdayNight: g.ThursdayNight(),
		SundayNight:   g.SundayNight(),
		MondayNight:   g.MondayNight(),
		Weather:       g.Weather,
		HomeAdvanced:  homeAdv,
		AwayAdvanced:  awayAdv,
	}
}

func advancedOrDefault(a *Advanced) Advanced {
	if a == nil {
		return Advanced{
			SuccessRate:   DefaultSuccessRate,
			ExplosiveRate: DefaultExplosiveRate,
		}
	}
	return *a
}

func bool01(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
