// Package backtest runs expanding-window walk-forward evaluation of a
// regressor over the event store and scores the resulting predictions
// against posted market lines.
package backtest

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/unspoken95159/predict/pkg/ats"
	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/model"
	"github.com/unspoken95159/predict/pkg/nfl"
	"github.com/unspoken95159/predict/pkg/nfl/features"
	"github.com/unspoken95159/predict/pkg/nfl/stats"
)

// Target selects which market the evaluator predicts and settles.
type Target int

const (
	TargetSpread Target = iota
	TargetTotal
)

func (t Target) String() string {
	if t == TargetTotal {
		return "total"
	}
	return "spread"
}

// label returns the realized value for a settled game in this target's
// units.
func (t Target) label(g nfl.Game) float64 {
	if t == TargetTotal {
		return g.ActualTotal()
	}
	return g.ActualSpread()
}

// line extracts this target's posted line.
func (t Target) line(l nfl.MarketLine) float64 {
	if t == TargetTotal {
		return l.Total
	}
	return l.Spread
}

// Granularity selects how coarse the walk-forward boundaries are.
type Granularity int

const (
	// BySeason trains on all prior seasons and predicts a whole season.
	BySeason Granularity = iota
	// ByWeek trains on everything strictly before a week and predicts
	// that week.
	ByWeek
)

func (g Granularity) String() string {
	if g == ByWeek {
		return "week"
	}
	return "season"
}

// Boundary is one walk-forward cutoff. Week is ignored for BySeason.
type Boundary struct {
	Season int `json:"season"`
	Week   int `json:"week,omitempty"`
}

func (b Boundary) String() string {
	if b.Week > 0 {
		return fmt.Sprintf("%d wk %d", b.Season, b.Week)
	}
	return fmt.Sprintf("%d", b.Season)
}

// trainCutoff is the exclusive upper bound of the boundary's training
// window. Weeks are 1-based, so week 1 as the cutoff excludes the whole
// boundary season in season mode.
func (b Boundary) trainCutoff(g Granularity) nfl.Cutoff {
	if g == ByWeek {
		return nfl.Cutoff{Season: b.Season, Week: b.Week}
	}
	return nfl.Cutoff{Season: b.Season, Week: 1}
}

// holdsOut reports whether the game belongs to this boundary's test
// slice.
func (b Boundary) holdsOut(g Granularity, game nfl.Game) bool {
	if g == ByWeek {
		return game.Season == b.Season && game.Week == b.Week
	}
	return game.Season == b.Season
}

// Prediction is one out-of-sample prediction, tagged with the boundary
// that produced it.
type Prediction struct {
	GameID    string   `json:"gameId"`
	Season    int      `json:"season"`
	Week      int      `json:"week"`
	Boundary  Boundary `json:"boundary"`
	Predicted float64  `json:"predicted"`
	Actual    float64  `json:"actual"`
	Line      float64  `json:"line,omitempty"`
	HasLine   bool     `json:"hasLine"`
}

// Config configures an evaluation run.
type Config struct {
	Target      Target
	Granularity Granularity
	FeatureSet  features.Set

	// NewModel builds the fresh regressor refit at every boundary.
	NewModel model.Factory

	// MinEdge settles a bet only when the model disagrees with the line
	// by at least this many points. Zero bets every lined game.
	MinEdge float64

	// Workers bounds concurrent boundary fits. Boundaries are
	// independent, so parallelism changes wall-clock time only, never
	// output. Values below 2 run sequentially.
	Workers int

	// Advanced optionally supplies externally computed per-team
	// metrics for a game (EPA block). Nil means the feature set's
	// documented defaults.
	Advanced func(g nfl.Game) (home, away *features.Advanced)

	// Metrics may be nil.
	Metrics *metrics.Pipeline
}

// Evaluator runs walk-forward evaluation over one store.
type Evaluator struct {
	store    *nfl.EventStore
	registry *nfl.TeamRegistry
	cfg      Config
}

// NewEvaluator validates the config and creates an evaluator.
func NewEvaluator(store *nfl.EventStore, registry *nfl.TeamRegistry, cfg Config) (*Evaluator, error) {
	if store == nil {
		return nil, fmt.Errorf("backtest: nil store")
	}
	if registry == nil {
		return nil, fmt.Errorf("backtest: nil registry")
	}
	if cfg.NewModel == nil {
		return nil, fmt.Errorf("backtest: NewModel factory is required")
	}
	if cfg.MinEdge < 0 {
		return nil, fmt.Errorf("backtest: negative MinEdge %f", cfg.MinEdge)
	}
	return &Evaluator{store: store, registry: registry, cfg: cfg}, nil
}

// Boundaries derives the full ascending boundary sequence the store
// supports: every slice except the earliest, which has no prior data to
// train on.
func (e *Evaluator) Boundaries() []Boundary {
	if e.cfg.Granularity == ByWeek {
		weeks := e.store.Weeks()
		if len(weeks) < 2 {
			return nil
		}
		out := make([]Boundary, 0, len(weeks)-1)
		for _, w := range weeks[1:] {
			out = append(out, Boundary{Season: w.Season, Week: w.Week})
		}
		return out
	}
	seasons := e.store.Seasons()
	if len(seasons) < 2 {
		return nil
	}
	out := make([]Boundary, 0, len(seasons)-1)
	for _, s := range seasons[1:] {
		out = append(out, Boundary{Season: s})
	}
	return out
}

// row is a settled game with its precomputed feature vector and label.
// Features are built once, before any boundary runs, through the same
// builder used everywhere: the training-time and prediction-time
// transformations cannot diverge.
type row struct {
	game  nfl.Game
	vec   []float64
	label float64
}

// Run evaluates every boundary and settles the predictions. Boundaries
// must be ascending; each one gets a fresh model fit on all data
// strictly before its cutoff.
func (e *Evaluator) Run(ctx context.Context, boundaries []Boundary) (*Report, error) {
	if len(boundaries) == 0 {
		return nil, fmt.Errorf("backtest: no boundaries")
	}
	for i := 1; i < len(boundaries); i++ {
		prev := boundaries[i-1].trainCutoff(e.cfg.Granularity)
		cur := boundaries[i].trainCutoff(e.cfg.Granularity)
		if cur.Season < prev.Season || (cur.Season == prev.Season && cur.Week <= prev.Week) {
			return nil, fmt.Errorf("backtest: boundaries not ascending at %s", boundaries[i])
		}
	}

	rows := e.buildRows()
	if len(rows) == 0 {
		return nil, fmt.Errorf("backtest: no settled games in store")
	}

	slices := make([]SliceResult, len(boundaries))
	perBoundary := make([][]Prediction, len(boundaries))
	errs := make([]error, len(boundaries))

	workers := e.cfg.Workers
	if workers < 2 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					continue
				}
				slices[i], perBoundary[i], errs[i] = e.runBoundary(boundaries[i], rows)
			}
		}()
	}
	for i := range boundaries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var predictions []Prediction
	var kept []SliceResult
	for i := range boundaries {
		if errs[i] != nil {
			return nil, fmt.Errorf("backtest: boundary %s: %w", boundaries[i], errs[i])
		}
		if slices[i].TestSize == 0 {
			continue
		}
		kept = append(kept, slices[i])
		predictions = append(predictions, perBoundary[i]...)
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("backtest: no boundary produced predictions")
	}

	return e.report(kept, predictions), nil
}

func (e *Evaluator) buildRows() []row {
	engine := stats.NewEngine(e.store, e.cfg.Metrics)
	builder := features.NewBuilder(e.cfg.FeatureSet)

	final := e.store.Final()
	rows := make([]row, 0, len(final))
	for _, g := range final {
		cutoff := nfl.Cutoff{Season: g.Season, Week: g.Week}
		home := engine.SnapshotAt(g.HomeTeam, cutoff, g.Kickoff)
		away := engine.SnapshotAt(g.AwayTeam, cutoff, g.Kickoff)

		var homeAdv, awayAdv *features.Advanced
		if e.cfg.Advanced != nil {
			homeAdv, awayAdv = e.cfg.Advanced(g)
		}
		ctx := features.ContextForGame(e.registry, g, homeAdv, awayAdv)

		rows = append(rows, row{
			game:  g,
			vec:   builder.Build(home, away, ctx),
			label: e.cfg.Target.label(g),
		})
	}
	return rows
}

func (e *Evaluator) runBoundary(b Boundary, rows []row) (SliceResult, []Prediction, error) {
	cutoff := b.trainCutoff(e.cfg.Granularity)

	var trainX [][]float64
	var trainY []float64
	var test []row
	for _, r := range rows {
		switch {
		case r.game.Before(cutoff):
			trainX = append(trainX, r.vec)
			trainY = append(trainY, r.label)
		case b.holdsOut(e.cfg.Granularity, r.game):
			test = append(test, r)
		}
	}

	sr := SliceResult{Boundary: b, TrainSize: len(trainX), TestSize: len(test)}
	if len(test) == 0 {
		return sr, nil, nil
	}
	if len(trainX) == 0 {
		log.Printf("backtest: skipping boundary %s: no training data", b)
		sr.TestSize = 0
		return sr, nil, nil
	}

	reg := e.cfg.NewModel()
	start := time.Now()
	if err := reg.Fit(trainX, trainY); err != nil {
		return sr, nil, fmt.Errorf("fit: %w", err)
	}
	e.cfg.Metrics.RecordFit(e.cfg.Target.String(), time.Since(start).Seconds())

	testX := make([][]float64, len(test))
	for i, r := range test {
		testX[i] = r.vec
	}
	preds, err := reg.Predict(testX)
	if err != nil {
		return sr, nil, fmt.Errorf("predict: %w", err)
	}
	e.cfg.Metrics.RecordPredictions(e.cfg.Target.String(), len(preds))

	out := make([]Prediction, len(test))
	absErr := 0.0
	for i, r := range test {
		p := Prediction{
			GameID:    r.game.ID,
			Season:    r.game.Season,
			Week:      r.game.Week,
			Boundary:  b,
			Predicted: preds[i],
			Actual:    r.label,
		}
		if l, ok := e.store.Line(r.game.ID); ok {
			p.Line = e.cfg.Target.line(l)
			p.HasLine = true
		}
		out[i] = p
		absErr += math.Abs(p.Predicted - p.Actual)
	}
	sr.MAE = absErr / float64(len(test))
	return sr, out, nil
}

// settle converts predictions into settled bets, excluding games without
// a line and bets below the confidence threshold.
func (e *Evaluator) settle(predictions []Prediction) []ats.Result {
	var results []ats.Result
	for _, p := range predictions {
		if !p.HasLine {
			continue
		}
		r := ats.NewResult(p.GameID, p.Predicted, p.Line, p.Actual)
		if r.Edge < e.cfg.MinEdge {
			continue
		}
		e.cfg.Metrics.RecordSettlement(e.cfg.Target.String(), r.Outcome.String())
		results = append(results, r)
	}
	return results
}
