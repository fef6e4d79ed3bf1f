// Package sqlstore persists the event store in SQLite so the daemon
// survives restarts without replaying the feed from scratch.
package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/unspoken95159/predict/pkg/nfl"
)

// DB wraps the SQLite database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a connection and initializes the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		season INTEGER NOT NULL,
		week INTEGER NOT NULL,
		kickoff TEXT,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		home_score INTEGER NOT NULL DEFAULT 0,
		away_score INTEGER NOT NULL DEFAULT 0,
		final BOOLEAN NOT NULL DEFAULT false,
		temperature REAL,
		wind_speed REAL,
		precipitation REAL,
		dome BOOLEAN
	);

	CREATE TABLE IF NOT EXISTS lines (
		game_id TEXT PRIMARY KEY REFERENCES games(id),
		spread REAL NOT NULL,
		total REAL NOT NULL,
		books INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_games_calendar
		ON games(season, week);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// UpsertGame inserts or replaces a game row.
func (db *DB) UpsertGame(g nfl.Game) error {
	var kickoff interface{}
	if !g.Kickoff.IsZero() {
		kickoff = g.Kickoff.UTC().Format(time.RFC3339)
	}
	var temp, wind, precip interface{}
	var dome interface{}
	if g.Weather != nil {
		temp = g.Weather.Temperature
		wind = g.Weather.WindSpeed
		precip = g.Weather.Precipitation
		dome = g.Weather.Dome
	}

	_, err := db.conn.Exec(`
		INSERT INTO games
			(id, season, week, kickoff, home_team, away_team,
			 home_score, away_score, final,
			 temperature, wind_speed, precipitation, dome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			season = excluded.season,
			week = excluded.week,
			kickoff = excluded.kickoff,
			home_team = excluded.home_team,
			away_team = excluded.away_team,
			home_score = excluded.home_score,
			away_score = excluded.away_score,
			final = excluded.final,
			temperature = excluded.temperature,
			wind_speed = excluded.wind_speed,
			precipitation = excluded.precipitation,
			dome = excluded.dome
	`, g.ID, g.Season, g.Week, kickoff, g.HomeTeam, g.AwayTeam,
		g.HomeScore, g.AwayScore, g.Final,
		temp, wind, precip, dome)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert game %s: %w", g.ID, err)
	}
	return nil
}

// UpsertLine inserts or replaces a game's market line.
func (db *DB) UpsertLine(gameID string, l nfl.MarketLine) error {
	_, err := db.conn.Exec(`
		INSERT INTO lines (game_id, spread, total, books)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			spread = excluded.spread,
			total = excluded.total,
			books = excluded.books,
			updated_at = CURRENT_TIMESTAMP
	`, gameID, l.Spread, l.Total, l.Books)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert line %s: %w", gameID, err)
	}
	return nil
}

// LoadStore reads every persisted game and line into a fresh event
// store, in calendar order.
func (db *DB) LoadStore() (*nfl.EventStore, error) {
	rows, err := db.conn.Query(`
		SELECT g.id, g.season, g.week, g.kickoff,
		       g.home_team, g.away_team, g.home_score, g.away_score, g.final,
		       g.temperature, g.wind_speed, g.precipitation, g.dome,
		       l.spread, l.total, l.books
		FROM games g
		LEFT JOIN lines l ON l.game_id = g.id
		ORDER BY g.season, g.week, g.kickoff, g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load: %w", err)
	}
	defer rows.Close()

	store := nfl.NewEventStore()
	for rows.Next() {
		var g nfl.Game
		var kickoff sql.NullString
		var temp, wind, precip sql.NullFloat64
		var dome sql.NullBool
		var spread, total sql.NullFloat64
		var books sql.NullInt64

		if err := rows.Scan(
			&g.ID, &g.Season, &g.Week, &kickoff,
			&g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore, &g.Final,
			&temp, &wind, &precip, &dome,
			&spread, &total, &books,
		); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}

		if kickoff.Valid {
			t, err := time.Parse(time.RFC3339, kickoff.String)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: game %s: kickoff: %w", g.ID, err)
			}
			g.Kickoff = t
		}
		if temp.Valid {
			g.Weather = &nfl.Weather{
				Temperature:   temp.Float64,
				WindSpeed:     wind.Float64,
				Precipitation: precip.Float64,
				Dome:          dome.Bool,
			}
		}

		if err := store.Add(g); err != nil {
			return nil, fmt.Errorf("sqlstore: game %s: %w", g.ID, err)
		}
		if spread.Valid && total.Valid {
			line := nfl.MarketLine{
				Spread: spread.Float64,
				Total:  total.Float64,
				Books:  int(books.Int64),
			}
			if err := store.SetLine(g.ID, line); err != nil {
				return nil, fmt.Errorf("sqlstore: game %s: %w", g.ID, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: load: %w", err)
	}
	return store, nil
}
