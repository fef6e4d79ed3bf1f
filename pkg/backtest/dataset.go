package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/unspoken95159/predict/pkg/nfl"
)

// datasetFile is the JSON layout produced by the ingest pipeline.
type datasetFile struct {
	Metadata struct {
		Source      string `json:"source"`
		GeneratedAt string `json:"generatedAt"`
	} `json:"metadata"`
	Data []datasetGame `json:"data"`
}

type datasetGame struct {
	GameID   string `json:"gameId"`
	Season   int    `json:"season"`
	Week     int    `json:"week"`
	Kickoff  string `json:"kickoff"`
	HomeTeam struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"awayTeam"`
	Outcome *struct {
		HomeScore int  `json:"homeScore"`
		AwayScore int  `json:"awayScore"`
		Completed bool `json:"completed"`
	} `json:"outcome"`
	Lines *struct {
		// Spread is the expected home margin: positive = home favored.
		Spread *float64 `json:"spread"`
		Total  *float64 `json:"total"`
		Books  int      `json:"books"`
	} `json:"lines"`
	Weather *nfl.Weather `json:"weather"`
}

// LoadJSON reads a dataset file into a fresh event store. Games are
// resolved to canonical team abbreviations through the registry; names
// the registry does not know are kept verbatim.
func LoadJSON(path string, registry *nfl.TeamRegistry) (*nfl.EventStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	defer file.Close()

	var ds datasetFile
	if err := json.NewDecoder(file).Decode(&ds); err != nil {
		return nil, fmt.Errorf("load dataset: decode: %w", err)
	}

	store := nfl.NewEventStore()
	for i, dg := range ds.Data {
		g := nfl.Game{
			ID:       dg.GameID,
			Season:   dg.Season,
			Week:     dg.Week,
			HomeTeam: resolveTeam(registry, dg.HomeTeam.ID, dg.HomeTeam.Name),
			AwayTeam: resolveTeam(registry, dg.AwayTeam.ID, dg.AwayTeam.Name),
			Weather:  dg.Weather,
		}
		if dg.Kickoff != "" {
			t, err := time.Parse(time.RFC3339, dg.Kickoff)
			if err != nil {
				return nil, fmt.Errorf("load dataset: game %d (%s): kickoff: %w", i, dg.GameID, err)
			}
			g.Kickoff = t
		}
		if dg.Outcome != nil && dg.Outcome.Completed {
			g.HomeScore = dg.Outcome.HomeScore
			g.AwayScore = dg.Outcome.AwayScore
			g.Final = true
		}
		if err := store.Add(g); err != nil {
			return nil, fmt.Errorf("load dataset: game %d: %w", i, err)
		}
		// A line with only one market posted still loads; the absent
		// market stays zero.
		if dg.Lines != nil && (dg.Lines.Spread != nil || dg.Lines.Total != nil) {
			line := nfl.MarketLine{Books: dg.Lines.Books}
			if dg.Lines.Spread != nil {
				line.Spread = *dg.Lines.Spread
			}
			if dg.Lines.Total != nil {
				line.Total = *dg.Lines.Total
			}
			if err := store.SetLine(dg.GameID, line); err != nil {
				return nil, fmt.Errorf("load dataset: game %d: %w", i, err)
			}
		}
	}
	return store, nil
}

// LoadCSV reads a flat per-game CSV into a fresh event store.
// Expected columns: game_id, season, week, kickoff, home_team,
// away_team, home_score, away_score, spread, total. Weather columns
// (temperature, wind_speed, precipitation, dome) are optional.
func LoadCSV(path string, registry *nfl.TeamRegistry) (*nfl.EventStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("load dataset: header: %w", err)
	}
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}
	for _, required := range []string{"game_id", "season", "week", "home_team", "away_team"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("load dataset: missing column %q", required)
		}
	}

	store := nfl.NewEventStore()
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load dataset: row %d: %w", row, err)
		}
		row++

		get := func(col string) string {
			if idx, ok := colIndex[col]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		season, err := strconv.Atoi(get("season"))
		if err != nil {
			return nil, fmt.Errorf("load dataset: row %d: season: %w", row, err)
		}
		week, err := strconv.Atoi(get("week"))
		if err != nil {
			return nil, fmt.Errorf("load dataset: row %d: week: %w", row, err)
		}

		g := nfl.Game{
			ID:       get("game_id"),
			Season:   season,
			Week:     week,
			HomeTeam: resolveTeam(registry, get("home_team"), ""),
			AwayTeam: resolveTeam(registry, get("away_team"), ""),
		}
		if raw := get("kickoff"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				g.Kickoff = t
			} else if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
				g.Kickoff = time.Unix(ts, 0).UTC()
			}
		}
		if hs, as := get("home_score"), get("away_score"); hs != "" && as != "" {
			g.HomeScore, err = strconv.Atoi(hs)
			if err != nil {
				return nil, fmt.Errorf("load dataset: row %d: home_score: %w", row, err)
			}
			g.AwayScore, err = strconv.Atoi(as)
			if err != nil {
				return nil, fmt.Errorf("load dataset: row %d: away_score: %w", row, err)
			}
			g.Final = true
		}
		if temp := get("temperature"); temp != "" {
			w := &nfl.Weather{}
			w.Temperature, _ = strconv.ParseFloat(temp, 64)
			w.WindSpeed, _ = strconv.ParseFloat(get("wind_speed"), 64)
			w.Precipitation, _ = strconv.ParseFloat(get("precipitation"), 64)
			w.Dome = get("dome") == "1" || strings.EqualFold(get("dome"), "true")
			g.Weather = w
		}

		if err := store.Add(g); err != nil {
			return nil, fmt.Errorf("load dataset: row %d: %w", row, err)
		}

		if sp, tot := get("spread"), get("total"); sp != "" || tot != "" {
			var line nfl.MarketLine
			if sp != "" {
				line.Spread, err = strconv.ParseFloat(sp, 64)
				if err != nil {
					return nil, fmt.Errorf("load dataset: row %d: spread: %w", row, err)
				}
			}
			if tot != "" {
				line.Total, err = strconv.ParseFloat(tot, 64)
				if err != nil {
					return nil, fmt.Errorf("load dataset: row %d: total: %w", row, err)
				}
			}
			if err := store.SetLine(g.ID, line); err != nil {
				return nil, fmt.Errorf("load dataset: row %d: %w", row, err)
			}
		}
	}
	return store, nil
}

// Load dispatches on the file extension.
func Load(path string, registry *nfl.TeamRegistry) (*nfl.EventStore, error) {
	switch {
	case strings.HasSuffix(path, ".json"):
		return LoadJSON(path, registry)
	case strings.HasSuffix(path, ".csv"):
		return LoadCSV(path, registry)
	}
	return nil, fmt.Errorf("load dataset: unknown format %q (expected .json or .csv)", path)
}

// resolveTeam canonicalizes a team reference, trying the abbreviation
// first and the full name second. Unknown teams pass through unchanged
// so historical data with defunct identifiers still loads.
func resolveTeam(registry *nfl.TeamRegistry, id, name string) string {
	if registry != nil {
		if abbr, ok := registry.Resolve(id); ok {
			return abbr
		}
		if abbr, ok := registry.Resolve(name); ok {
			return abbr
		}
	}
	if id != "" {
		return id
	}
	return name
}
