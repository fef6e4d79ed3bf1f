// predictd is the live prediction daemon. It restores the event store
// from SQLite, follows the game feed, polls consensus lines, and serves
// model predictions for upcoming games over HTTP.
package main

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unspoken95159/predict/pkg/feed"
	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/model"
	"github.com/unspoken95159/predict/pkg/nfl"
	"github.com/unspoken95159/predict/pkg/nfl/features"
	"github.com/unspoken95159/predict/pkg/nfl/stats"
	"github.com/unspoken95159/predict/pkg/odds"
	"github.com/unspoken95159/predict/pkg/sqlstore"
)

// Config is the daemon's environment configuration.
type Config struct {
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"predict.db"`
	OddsAPIKey   string        `envconfig:"ODDS_API_KEY"`
	FeedURL      string        `envconfig:"FEED_URL"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"15m"`
	RidgeLambda  float64       `envconfig:"RIDGE_LAMBDA" default:"1.0"`
	MinEdge      float64       `envconfig:"MIN_EDGE" default:"0"`
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer d.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.FeedURL != "" {
		go func() {
			if err := d.feed.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Feed stopped: %v", err)
			}
		}()
		log.Printf("Following feed at %s", cfg.FeedURL)
	} else {
		log.Println("No FEED_URL configured - running from persisted data only")
	}

	if cfg.OddsAPIKey != "" {
		go d.pollOdds(ctx)
		log.Printf("Polling consensus lines every %s", cfg.PollInterval)
	} else {
		log.Println("No ODDS_API_KEY configured - line polling disabled")
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      d.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Goodbye!")
}

type daemon struct {
	cfg      Config
	db       *sqlstore.DB
	store    *nfl.EventStore
	registry *nfl.TeamRegistry
	oddsAPI  *odds.Client
	feed     *feed.Client
	met      *metrics.Pipeline
}

func newDaemon(cfg Config) (*daemon, error) {
	db, err := sqlstore.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store, err := db.LoadStore()
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("Restored %d games from %s", store.Len(), cfg.DBPath)

	d := &daemon{
		cfg:      cfg,
		db:       db,
		store:    store,
		registry: nfl.NewTeamRegistry(),
		met:      metrics.Default(),
	}
	d.oddsAPI = odds.NewClient(cfg.OddsAPIKey, d.registry, odds.WithMetrics(d.met))
	d.feed = feed.NewClient(feed.DefaultConfig(cfg.FeedURL), feed.Handlers{
		OnGame:  d.onGame,
		OnScore: d.onScore,
		OnLine:  d.onLine,
		OnError: func(err error) { log.Printf("[feed] %v", err) },
	}, d.met)
	return d, nil
}

// --- Feed handlers ---

func (d *daemon) onGame(g nfl.Game) {
	if err := d.store.Add(g); err != nil {
		// Duplicates arrive on reconnect replays.
		return
	}
	if err := d.db.UpsertGame(g); err != nil {
		log.Printf("[feed] persist game %s: %v", g.ID, err)
		return
	}
	d.met.RecordIngest("feed", 1, 0)
	log.Printf("[feed] new game %s: %s @ %s (week %d)", g.ID, g.AwayTeam, g.HomeTeam, g.Week)
}

func (d *daemon) onScore(s feed.ScoreUpdate) {
	if err := d.store.Settle(s.GameID, s.HomeScore, s.AwayScore); err != nil {
		log.Printf("[feed] settle %s: %v", s.GameID, err)
		return
	}
	if g, ok := d.store.Get(s.GameID); ok {
		if err := d.db.UpsertGame(g); err != nil {
			log.Printf("[feed] persist score %s: %v", s.GameID, err)
		}
		log.Printf("[feed] final %s: %s %d - %s %d",
			g.ID, g.AwayTeam, g.AwayScore, g.HomeTeam, g.HomeScore)
	}
}

func (d *daemon) onLine(l feed.LineUpdate) {
	line := nfl.MarketLine{Spread: l.Spread, Total: l.Total, Books: l.Books}
	if err := d.store.SetLine(l.GameID, line); err != nil {
		log.Printf("[feed] line %s: %v", l.GameID, err)
		return
	}
	if err := d.db.UpsertLine(l.GameID, line); err != nil {
		log.Printf("[feed] persist line %s: %v", l.GameID, err)
		return
	}
	d.met.RecordIngest("feed", 0, 1)
}

// --- Odds polling ---

func (d *daemon) pollOdds(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.refreshLines(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refreshLines(ctx)
		}
	}
}

// refreshLines matches fetched consensus lines to unsettled games by
// team pair and kickoff day.
func (d *daemon) refreshLines(ctx context.Context) {
	lines, err := d.oddsAPI.FetchLines(ctx)
	if err != nil {
		log.Printf("[odds] fetch: %v", err)
		return
	}

	updated := 0
	for _, gl := range lines {
		for _, g := range d.store.Unsettled() {
			if g.HomeTeam != gl.HomeTeam || g.AwayTeam != gl.AwayTeam {
				continue
			}
			if !sameDay(g.Kickoff, gl.Kickoff) {
				continue
			}
			if err := d.store.SetLine(g.ID, gl.Line); err != nil {
				log.Printf("[odds] line %s: %v", g.ID, err)
				continue
			}
			if err := d.db.UpsertLine(g.ID, gl.Line); err != nil {
				log.Printf("[odds] persist line %s: %v", g.ID, err)
				continue
			}
			updated++
			break
		}
	}
	if updated > 0 {
		d.met.RecordIngest("odds", 0, updated)
		log.Printf("[odds] updated %d consensus lines", updated)
	}
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// --- HTTP ---

func (d *daemon) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/games", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.store.All())
	})

	mux.HandleFunc("/api/predictions", d.handlePredictions)

	mux.Handle("/metrics", promhttp.HandlerFor(d.met.Registry(), promhttp.HandlerOpts{}))

	return mux
}

// gamePrediction is one upcoming game with model output for both
// markets and, where a line is posted, the model's lean.
type gamePrediction struct {
	Game            nfl.Game        `json:"game"`
	PredictedSpread float64         `json:"predictedSpread"`
	PredictedTotal  float64         `json:"predictedTotal"`
	Line            *nfl.MarketLine `json:"line,omitempty"`
	SpreadEdge      float64         `json:"spreadEdge,omitempty"`
	Playable        bool            `json:"playable"`
}

func (d *daemon) handlePredictions(w http.ResponseWriter, r *http.Request) {
	upcoming := d.store.Unsettled()
	if len(upcoming) == 0 {
		writeJSON(w, []gamePrediction{})
		return
	}

	preds, err := d.predict(upcoming)
	if err != nil {
		log.Printf("[http] predictions: %v", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, preds)
}

// predict trains fresh spread and total models on every settled game
// and applies them to the given games.
func (d *daemon) predict(games []nfl.Game) ([]gamePrediction, error) {
	engine := stats.NewEngine(d.store, d.met)
	builder := features.NewBuilder(features.Set{})

	final := d.store.Final()
	trainX := make([][]float64, 0, len(final))
	spreadY := make([]float64, 0, len(final))
	totalY := make([]float64, 0, len(final))
	for _, g := range final {
		cutoff := nfl.Cutoff{Season: g.Season, Week: g.Week}
		home := engine.SnapshotAt(g.HomeTeam, cutoff, g.Kickoff)
		away := engine.SnapshotAt(g.AwayTeam, cutoff, g.Kickoff)
		trainX = append(trainX, builder.Build(home, away, features.ContextForGame(d.registry, g, nil, nil)))
		spreadY = append(spreadY, g.ActualSpread())
		totalY = append(totalY, g.ActualTotal())
	}

	spreadModel := model.NewRidge(d.cfg.RidgeLambda)
	if err := spreadModel.Fit(trainX, spreadY); err != nil {
		return nil, err
	}
	totalModel := model.NewRidge(d.cfg.RidgeLambda)
	if err := totalModel.Fit(trainX, totalY); err != nil {
		return nil, err
	}

	out := make([]gamePrediction, 0, len(games))
	for _, g := range games {
		cutoff := nfl.Cutoff{Season: g.Season, Week: g.Week}
		home := engine.SnapshotAt(g.HomeTeam, cutoff, g.Kickoff)
		away := engine.SnapshotAt(g.AwayTeam, cutoff, g.Kickoff)
		vec := builder.Build(home, away, features.ContextForGame(d.registry, g, nil, nil))

		spread, err := spreadModel.Predict([][]float64{vec})
		if err != nil {
			return nil, err
		}
		total, err := totalModel.Predict([][]float64{vec})
		if err != nil {
			return nil, err
		}

		p := gamePrediction{
			Game:            g,
			PredictedSpread: spread[0],
			PredictedTotal:  total[0],
		}
		if line, ok := d.store.Line(g.ID); ok {
			l := line
			p.Line = &l
			p.SpreadEdge = math.Abs(p.PredictedSpread - line.Spread)
			p.Playable = p.SpreadEdge >= d.cfg.MinEdge
		}
		out = append(out, p)
	}
	d.met.RecordPredictions("spread", len(out))
	return out, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
