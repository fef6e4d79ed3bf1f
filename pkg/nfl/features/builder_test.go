package features

import (
	"testing"

	"github.com/unspoken95159/predict/pkg/nfl"
	"github.com/unspoken95159/predict/pkg/nfl/stats"
)

func sampleSnapshots() (stats.Snapshot, stats.Snapshot) {
	home := stats.Snapshot{
		Team: "KC", WinPct: 0.75,
		PointsForPerGame: 28, PointsAgainstPerGame: 17,
		Last3PointsFor: 31, Last3PointsAgainst: 20,
		RestDays: 7, HomeWinPct: 0.8, AwayWinPct: 0.6,
		Streak: 3, StrengthOfSchedule: 0.55,
	}
	away := stats.Snapshot{
		Team: "DEN", WinPct: 0.25,
		PointsForPerGame: 18, PointsAgainstPerGame: 24,
		Last3PointsFor: 14, Last3PointsAgainst: 27,
		RestDays: 10, HomeWinPct: 0.4, AwayWinPct: 0.2,
		Streak: -2, StrengthOfSchedule: 0.45,
	}
	return home, away
}

func TestNamesAndBuildAgree(t *testing.T) {
	for _, set := range []Set{{}, {IncludeAdvanced: true}} {
		b := NewBuilder(set)
		home, away := sampleSnapshots()
		vec := b.Build(home, away, Context{})

		if len(vec) != b.Len() {
			t.Errorf("Set %+v: Build returned %d values, Names has %d", set, len(vec), b.Len())
		}
	}
}

func TestVectorWidths(t *testing.T) {
	if got := NewBuilder(Set{}).Len(); got != 35 {
		t.Errorf("Base width: got %d, want 35", got)
	}
	if got := NewBuilder(Set{IncludeAdvanced: true}).Len(); got != 48 {
		t.Errorf("Advanced width: got %d, want 48", got)
	}
}

func TestFixedOrderAndDifferentials(t *testing.T) {
	b := NewBuilder(Set{})
	home, away := sampleSnapshots()
	vec := b.Build(home, away, Context{Divisional: true, Conference: true})

	idx := make(map[string]int, b.Len())
	for i, name := range b.Names() {
		idx[name] = i
	}

	// Verbatim snapshot fields land where their name says.
	checks := map[string]float64{
		"home_win_pct":      0.75,
		"home_streak":       3,
		"away_win_pct":      0.25,
		"away_pag":          24,
		"away_streak":       -2,
		"is_divisional":     1,
		"is_conference":     1,
		"is_thursday_night": 0,
	}
	for name, want := range checks {
		i, ok := idx[name]
		if !ok {
			t.Fatalf("Feature %s missing from Names", name)
		}
		if vec[i] != want {
			t.Errorf("%s: got %v, want %v", name, vec[i], want)
		}
	}

	// Differentials are computed from the verbatim fields in the same
	// vector.
	diffs := []struct {
		name string
		a, b string
	}{
		{"win_pct_diff", "home_win_pct", "away_win_pct"},
		{"ppg_diff", "home_ppg", "away_ppg"},
		{"rest_days_diff", "home_rest_days", "away_rest_days"},
		{"sos_diff", "home_sos", "away_sos"},
	}
	for _, d := range diffs {
		if got, want := vec[idx[d.name]], vec[idx[d.a]]-vec[idx[d.b]]; got != want {
			t.Errorf("%s: got %v, want %v (= %s - %s)", d.name, got, want, d.a, d.b)
		}
	}

	// pag_diff flips sign: lower points-against is better.
	if got, want := vec[idx["pag_diff"]], vec[idx["away_pag"]]-vec[idx["home_pag"]]; got != want {
		t.Errorf("pag_diff: got %v, want %v", got, want)
	}
	if got, want := vec[idx["home_advantage_diff"]], vec[idx["home_home_win_pct"]]-vec[idx["away_away_win_pct"]]; got != want {
		t.Errorf("home_advantage_diff: got %v, want %v", got, want)
	}
}

func TestWeatherDefaults(t *testing.T) {
	b := NewBuilder(Set{})
	home, away := sampleSnapshots()

	idx := make(map[string]int, b.Len())
	for i, name := range b.Names() {
		idx[name] = i
	}

	vec := b.Build(home, away, Context{})
	if vec[idx["temperature"]] != DefaultTemperature {
		t.Errorf("Default temperature: got %v, want %v", vec[idx["temperature"]], DefaultTemperature)
	}
	if vec[idx["wind_speed"]] != DefaultWindSpeed {
		t.Errorf("Default wind: got %v, want %v", vec[idx["wind_speed"]], DefaultWindSpeed)
	}
	if vec[idx["precipitation"]] != DefaultPrecipitation {
		t.Errorf("Default precipitation: got %v, want %v", vec[idx["precipitation"]], DefaultPrecipitation)
	}
	if vec[idx["is_dome"]] != 0 {
		t.Errorf("Default dome: got %v, want 0", vec[idx["is_dome"]])
	}

	vec = b.Build(home, away, Context{Weather: &nfl.Weather{Temperature: 28, WindSpeed: 17, Precipitation: 0.4, Dome: false}})
	if vec[idx["temperature"]] != 28 || vec[idx["wind_speed"]] != 17 {
		t.Errorf("Provided weather not used: temp=%v wind=%v", vec[idx["temperature"]], vec[idx["wind_speed"]])
	}
}

func TestAdvancedBlockDefaults(t *testing.T) {
	b := NewBuilder(Set{IncludeAdvanced: true})
	home, away := sampleSnapshots()

	idx := make(map[string]int, b.Len())
	for i, name := range b.Names() {
		idx[name] = i
	}

	// Missing advanced metrics fall back to neutral defaults.
	vec := b.Build(home, away, Context{})
	if vec[idx["home_success_rate"]] != DefaultSuccessRate {
		t.Errorf("Default success rate: got %v, want %v", vec[idx["home_success_rate"]], DefaultSuccessRate)
	}
	if vec[idx["home_explosive_rate"]] != DefaultExplosiveRate {
		t.Errorf("Default explosive rate: got %v, want %v", vec[idx["home_explosive_rate"]], DefaultExplosiveRate)
	}
	if vec[idx["home_epa_per_play"]] != 0 || vec[idx["epa_diff"]] != 0 {
		t.Errorf("Default EPA should be 0: epa=%v diff=%v", vec[idx["home_epa_per_play"]], vec[idx["epa_diff"]])
	}

	// Supplied metrics flow through, including the differentials.
	ha := &Advanced{EPAPerPlay: 0.15, QBEPA: 0.2, SuccessRate: 0.48}
	aa := &Advanced{EPAPerPlay: -0.05, QBEPA: 0.1, SuccessRate: 0.41}
	vec = b.Build(home, away, Context{HomeAdvanced: ha, AwayAdvanced: aa})
	if got := vec[idx["epa_diff"]]; got != 0.15-(-0.05) {
		t.Errorf("epa_diff: got %v, want 0.2", got)
	}
	if got := vec[idx["qb_epa_diff"]]; got != 0.2-0.1 {
		t.Errorf("qb_epa_diff: got %v", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := NewBuilder(Set{IncludeAdvanced: true})
	home, away := sampleSnapshots()
	ctx := Context{Divisional: true, Weather: &nfl.Weather{Temperature: 40, WindSpeed: 12}}

	a := b.Build(home, away, ctx)
	c := b.Build(home, away, ctx)
	if len(a) != len(c) {
		t.Fatalf("Lengths differ: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if a[i] != c[i] {
			t.Errorf("Index %d (%s): %v vs %v", i, b.Names()[i], a[i], c[i])
		}
	}
}
