package stats

import (
	"testing"
	"time"

	"github.com/unspoken95159/predict/pkg/nfl"
)

func mustAdd(t *testing.T, store *nfl.EventStore, g nfl.Game) {
	t.Helper()
	if err := store.Add(g); err != nil {
		t.Fatalf("Add(%s) failed: %v", g.ID, err)
	}
}

func game(id string, season, week int, home, away string, hs, as int) nfl.Game {
	return nfl.Game{
		ID: id, Season: season, Week: week,
		HomeTeam: home, AwayTeam: away,
		HomeScore: hs, AwayScore: as, Final: true,
	}
}

func TestSnapshotDefaults(t *testing.T) {
	engine := NewEngine(nfl.NewEventStore(), nil)

	s := engine.Snapshot("KC", nfl.Cutoff{Season: 2023, Week: 1})
	if s.GamesPlayed != 0 {
		t.Errorf("GamesPlayed: got %d, want 0", s.GamesPlayed)
	}
	if s.WinPct != DefaultWinPct {
		t.Errorf("WinPct: got %v, want %v", s.WinPct, DefaultWinPct)
	}
	if s.PointsForPerGame != DefaultPointsPerGame || s.PointsAgainstPerGame != DefaultPointsPerGame {
		t.Errorf("PPG/PAG: got %v/%v, want %v", s.PointsForPerGame, s.PointsAgainstPerGame, DefaultPointsPerGame)
	}
	if s.Last3PointsFor != DefaultPointsPerGame || s.Last3PointsAgainst != DefaultPointsPerGame {
		t.Errorf("Last3: got %v/%v, want %v", s.Last3PointsFor, s.Last3PointsAgainst, DefaultPointsPerGame)
	}
	if s.RestDays != DefaultRestDays {
		t.Errorf("RestDays: got %v, want %v", s.RestDays, DefaultRestDays)
	}
	if s.HomeWinPct != DefaultWinPct || s.AwayWinPct != DefaultWinPct {
		t.Errorf("Splits: got %v/%v, want %v", s.HomeWinPct, s.AwayWinPct, DefaultWinPct)
	}
	if s.Streak != 0 {
		t.Errorf("Streak: got %d, want 0", s.Streak)
	}
	if s.StrengthOfSchedule != DefaultWinPct {
		t.Errorf("SOS: got %v, want %v", s.StrengthOfSchedule, DefaultWinPct)
	}
}

func TestSnapshotSeasonScoring(t *testing.T) {
	store := nfl.NewEventStore()
	// KC: 2-1 entering week 4, scoring 20, 27, 17 / allowing 21, 10, 9.
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DET", 20, 21))
	mustAdd(t, store, game("g2", 2023, 2, "KC", "CHI", 27, 10))
	mustAdd(t, store, game("g3", 2023, 3, "NYJ", "KC", 9, 17))
	// Week 4 itself must not be visible.
	mustAdd(t, store, game("g4", 2023, 4, "KC", "DEN", 100, 0))

	engine := NewEngine(store, nil)
	s := engine.Snapshot("KC", nfl.Cutoff{Season: 2023, Week: 4})

	if s.GamesPlayed != 3 {
		t.Fatalf("GamesPlayed: got %d, want 3", s.GamesPlayed)
	}
	if want := 2.0 / 3.0; s.WinPct != want {
		t.Errorf("WinPct: got %v, want %v", s.WinPct, want)
	}
	if want := 64.0 / 3.0; s.PointsForPerGame != want {
		t.Errorf("PPG: got %v, want %v", s.PointsForPerGame, want)
	}
	if want := 40.0 / 3.0; s.PointsAgainstPerGame != want {
		t.Errorf("PAG: got %v, want %v", s.PointsAgainstPerGame, want)
	}
	if want := 64.0 / 3.0; s.Last3PointsFor != want {
		t.Errorf("Last3PointsFor: got %v, want %v", s.Last3PointsFor, want)
	}
}

func TestSnapshotExcludesCutoffWeekAndFuture(t *testing.T) {
	store := nfl.NewEventStore()
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DET", 20, 21))
	mustAdd(t, store, game("g2", 2023, 2, "KC", "CHI", 27, 10))

	engine := NewEngine(store, nil)
	cutoff := nfl.Cutoff{Season: 2023, Week: 2}
	before := engine.Snapshot("KC", cutoff)

	if before.GamesPlayed != 1 {
		t.Fatalf("Cutoff week leaked into snapshot: GamesPlayed=%d", before.GamesPlayed)
	}

	// Appending future games must not change the snapshot.
	store2 := nfl.NewEventStore()
	mustAdd(t, store2, game("g1", 2023, 1, "KC", "DET", 20, 21))
	mustAdd(t, store2, game("g2", 2023, 2, "KC", "CHI", 27, 10))
	mustAdd(t, store2, game("g3", 2023, 10, "KC", "MIA", 50, 0))
	mustAdd(t, store2, game("g4", 2024, 1, "KC", "BAL", 27, 20))

	after := NewEngine(store2, nil).Snapshot("KC", cutoff)
	if before != after {
		t.Errorf("Snapshot changed when future games were added:\n before=%+v\n after=%+v", before, after)
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	store := nfl.NewEventStore()
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DET", 20, 21))
	mustAdd(t, store, game("g2", 2023, 2, "KC", "CHI", 27, 10))

	c := nfl.Cutoff{Season: 2023, Week: 3}
	a := NewEngine(store, nil).Snapshot("KC", c)
	b := NewEngine(store, nil).Snapshot("KC", c)
	if a != b {
		t.Errorf("Same store, same cutoff, different snapshots:\n a=%+v\n b=%+v", a, b)
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name    string
		results []bool // KC game results, oldest first
		want    int
	}{
		{"empty", nil, 0},
		{"single win", []bool{true}, 1},
		{"single loss", []bool{false}, -1},
		{"w w l w", []bool{true, true, false, true}, 1},
		{"three straight", []bool{true, true, true}, 3},
		{"l l", []bool{true, false, false}, -2},
	}
	for _, tt := range tests {
		store := nfl.NewEventStore()
		for i, won := range tt.results {
			hs, as := 10, 20
			if won {
				hs, as = 20, 10
			}
			mustAdd(t, store, game(string(rune('a'+i)), 2023, i+1, "KC", "DEN", hs, as))
		}
		s := NewEngine(store, nil).Snapshot("KC", nfl.Cutoff{Season: 2023, Week: len(tt.results) + 1})
		if s.Streak != tt.want {
			t.Errorf("%s: Streak=%d, want %d", tt.name, s.Streak, tt.want)
		}
	}
}

func TestSplitsAccumulateAcrossSeasons(t *testing.T) {
	store := nfl.NewEventStore()
	// 2022: KC wins at home, loses away.
	mustAdd(t, store, game("g1", 2022, 1, "KC", "DEN", 27, 24))
	mustAdd(t, store, game("g2", 2022, 2, "LV", "KC", 30, 29))
	// 2023: KC wins at home again.
	mustAdd(t, store, game("g3", 2023, 1, "KC", "DET", 21, 20))

	s := NewEngine(store, nil).Snapshot("KC", nfl.Cutoff{Season: 2023, Week: 2})

	// Scoring stats are season-scoped (one 2023 game).
	if s.GamesPlayed != 1 {
		t.Errorf("GamesPlayed: got %d, want 1", s.GamesPlayed)
	}
	// Splits span both seasons: 2-0 home, 0-1 away.
	if s.HomeWinPct != 1.0 {
		t.Errorf("HomeWinPct: got %v, want 1.0", s.HomeWinPct)
	}
	if s.AwayWinPct != 0.0 {
		t.Errorf("AwayWinPct: got %v, want 0.0", s.AwayWinPct)
	}
	// Streak also spans seasons: W, L, W entering the cutoff.
	if s.Streak != 1 {
		t.Errorf("Streak: got %d, want 1", s.Streak)
	}
}

func TestLast3PaddingCollapsesToSeasonAverage(t *testing.T) {
	store := nfl.NewEventStore()
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DET", 30, 10))
	mustAdd(t, store, game("g2", 2023, 2, "KC", "CHI", 10, 20))

	s := NewEngine(store, nil).Snapshot("KC", nfl.Cutoff{Season: 2023, Week: 3})
	if s.Last3PointsFor != s.PointsForPerGame {
		t.Errorf("With <3 games Last3PointsFor should equal season PPG: %v vs %v",
			s.Last3PointsFor, s.PointsForPerGame)
	}
	if s.Last3PointsAgainst != s.PointsAgainstPerGame {
		t.Errorf("With <3 games Last3PointsAgainst should equal season PAG: %v vs %v",
			s.Last3PointsAgainst, s.PointsAgainstPerGame)
	}
}

func TestStrengthOfSchedule(t *testing.T) {
	store := nfl.NewEventStore()
	// Week 1: KC beats DEN; DET beats CHI.
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DEN", 20, 10))
	mustAdd(t, store, game("g2", 2023, 1, "DET", "CHI", 28, 7))
	// Week 2: KC plays DET (who was 1-0 entering week 2).
	mustAdd(t, store, game("g3", 2023, 2, "KC", "DET", 17, 21))

	s := NewEngine(store, nil).Snapshot("KC", nfl.Cutoff{Season: 2023, Week: 3})

	// Opponents: DEN faced in week 1 (0 prior games -> 0.5), DET faced in
	// week 2 (1-0 entering -> 1.0). Mean = 0.75.
	if want := 0.75; s.StrengthOfSchedule != want {
		t.Errorf("SOS: got %v, want %v", s.StrengthOfSchedule, want)
	}
}

func TestRestDays(t *testing.T) {
	store := nfl.NewEventStore()
	prev := game("g1", 2023, 1, "KC", "DET", 20, 10)
	prev.Kickoff = time.Date(2023, 9, 10, 17, 0, 0, 0, time.UTC)
	mustAdd(t, store, prev)

	engine := NewEngine(store, nil)
	c := nfl.Cutoff{Season: 2023, Week: 2}

	// Thursday game four days later.
	kickoff := time.Date(2023, 9, 14, 17, 0, 0, 0, time.UTC)
	s := engine.SnapshotAt("KC", c, kickoff)
	if s.RestDays != 4 {
		t.Errorf("RestDays: got %v, want 4", s.RestDays)
	}

	// Zero kickoff keeps the default.
	s = engine.SnapshotAt("KC", c, time.Time{})
	if s.RestDays != DefaultRestDays {
		t.Errorf("RestDays with zero kickoff: got %v, want %v", s.RestDays, DefaultRestDays)
	}

	// No same-season history keeps the default too.
	s = engine.SnapshotAt("SF", c, kickoff)
	if s.RestDays != DefaultRestDays {
		t.Errorf("RestDays with no history: got %v, want %v", s.RestDays, DefaultRestDays)
	}
}

func TestResetAfterStoreGrowth(t *testing.T) {
	store := nfl.NewEventStore()
	mustAdd(t, store, game("g1", 2023, 1, "KC", "DET", 20, 10))

	engine := NewEngine(store, nil)
	c := nfl.Cutoff{Season: 2023, Week: 3}

	first := engine.Snapshot("KC", c)
	if first.GamesPlayed != 1 {
		t.Fatalf("GamesPlayed: got %d, want 1", first.GamesPlayed)
	}

	mustAdd(t, store, game("g2", 2023, 2, "KC", "CHI", 27, 10))

	// Stale cache until Reset.
	engine.Reset()
	second := engine.Snapshot("KC", c)
	if second.GamesPlayed != 2 {
		t.Errorf("GamesPlayed after Reset: got %d, want 2", second.GamesPlayed)
	}
}
