package backtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unspoken95159/predict/pkg/nfl"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	data := `{
		"metadata": {"source": "test"},
		"data": [
			{
				"gameId": "2023_01_DET_KC",
				"season": 2023,
				"week": 1,
				"kickoff": "2023-09-07T20:20:00-04:00",
				"homeTeam": {"id": "KC", "name": "Kansas City Chiefs"},
				"awayTeam": {"id": "DET", "name": "Detroit Lions"},
				"outcome": {"homeScore": 20, "awayScore": 21, "completed": true},
				"lines": {"spread": 4.5, "total": 53, "books": 4},
				"weather": {"temperature": 75, "windSpeed": 4, "precipitation": 0, "isDome": false}
			},
			{
				"gameId": "2023_02_KC_JAX",
				"season": 2023,
				"week": 2,
				"homeTeam": {"id": "", "name": "Jacksonville Jaguars"},
				"awayTeam": {"id": "", "name": "Kansas City Chiefs"}
			}
		]
	}`
	path := writeTemp(t, "games.json", data)

	store, err := LoadJSON(path, nfl.NewTeamRegistry())
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Expected 2 games, got %d", store.Len())
	}

	g, ok := store.Get("2023_01_DET_KC")
	if !ok {
		t.Fatal("First game missing")
	}
	if g.HomeTeam != "KC" || g.AwayTeam != "DET" {
		t.Errorf("Teams: got %s/%s", g.HomeTeam, g.AwayTeam)
	}
	if !g.Final || g.HomeScore != 20 || g.AwayScore != 21 {
		t.Errorf("Outcome: final=%v %d-%d", g.Final, g.HomeScore, g.AwayScore)
	}
	if g.Weather == nil || g.Weather.Temperature != 75 {
		t.Errorf("Weather not loaded: %+v", g.Weather)
	}
	line, ok := store.Line(g.ID)
	if !ok || line.Spread != 4.5 || line.Total != 53 || line.Books != 4 {
		t.Errorf("Line: got %+v ok=%v", line, ok)
	}

	// Name-only references resolve through the registry; no outcome
	// means scheduled.
	g2, ok := store.Get("2023_02_KC_JAX")
	if !ok {
		t.Fatal("Second game missing")
	}
	if g2.HomeTeam != "JAX" || g2.AwayTeam != "KC" {
		t.Errorf("Resolved teams: got %s/%s", g2.HomeTeam, g2.AwayTeam)
	}
	if g2.Final {
		t.Error("Game without completed outcome should be scheduled")
	}
	if _, ok := store.Line(g2.ID); ok {
		t.Error("Game without lines should have no line")
	}
}

func TestLoadJSONSpreadOnlyLine(t *testing.T) {
	data := `{
		"data": [
			{
				"gameId": "g1",
				"season": 2023,
				"week": 1,
				"homeTeam": {"id": "KC"},
				"awayTeam": {"id": "DET"},
				"lines": {"spread": -2.5, "books": 3}
			}
		]
	}`
	path := writeTemp(t, "spread_only.json", data)

	store, err := LoadJSON(path, nfl.NewTeamRegistry())
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	line, ok := store.Line("g1")
	if !ok {
		t.Fatal("Spread-only line was dropped")
	}
	if line.Spread != -2.5 || line.Total != 0 || line.Books != 3 {
		t.Errorf("Line: got %+v", line)
	}
}

func TestLoadCSV(t *testing.T) {
	data := `game_id,season,week,kickoff,home_team,away_team,home_score,away_score,spread,total
g1,2023,1,2023-09-07T20:20:00Z,KC,DET,20,21,4.5,53
g2,2023,2,,Jacksonville Jaguars,Kansas City Chiefs,,,,
g3,2023,3,,KC,DET,,,,47.5
`
	path := writeTemp(t, "games.csv", data)

	store, err := LoadCSV(path, nfl.NewTeamRegistry())
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("Expected 3 games, got %d", store.Len())
	}

	g, _ := store.Get("g1")
	if !g.Final || g.ActualSpread() != -1 {
		t.Errorf("g1: final=%v spread=%v", g.Final, g.ActualSpread())
	}
	if line, ok := store.Line("g1"); !ok || line.Spread != 4.5 {
		t.Errorf("g1 line: %+v ok=%v", line, ok)
	}

	g2, _ := store.Get("g2")
	if g2.Final {
		t.Error("g2 should be scheduled")
	}
	if g2.HomeTeam != "JAX" || g2.AwayTeam != "KC" {
		t.Errorf("g2 teams: %s/%s", g2.HomeTeam, g2.AwayTeam)
	}

	// Total-only row still records a line.
	if line, ok := store.Line("g3"); !ok || line.Total != 47.5 || line.Spread != 0 {
		t.Errorf("g3 line: %+v ok=%v", line, ok)
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	path := writeTemp(t, "bad.csv", "game_id,season\ng1,2023\n")
	if _, err := LoadCSV(path, nfl.NewTeamRegistry()); err == nil {
		t.Fatal("Expected error for missing required columns")
	}
}

func TestLoadDispatch(t *testing.T) {
	if _, err := Load("games.parquet", nfl.NewTeamRegistry()); err == nil {
		t.Fatal("Expected error for unknown extension")
	}
}
