// predict-backtest runs walk-forward evaluation of the spread/total
// model over a historical dataset and reports the against-the-spread
// record.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/unspoken95159/predict/pkg/ats"
	"github.com/unspoken95159/predict/pkg/backtest"
	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/model"
	"github.com/unspoken95159/predict/pkg/nfl"
	"github.com/unspoken95159/predict/pkg/nfl/features"
)

var (
	// Input flags
	dataFile    = flag.String("data", "", "Path to historical data file (JSON or CSV)")
	target      = flag.String("target", "spread", "Target: spread, total")
	granularity = flag.String("granularity", "season", "Walk-forward granularity: season, week")
	outputFile  = flag.String("output", "", "Output file for results (JSON or CSV)")

	// Config flags
	minEdge     = flag.Float64("min-edge", 0, "Only bet when |prediction - line| >= this many points")
	workers     = flag.Int("workers", 1, "Concurrent boundary fits")
	ridgeLambda = flag.Float64("ridge-lambda", 1.0, "Ridge regularization strength")
	advanced    = flag.Bool("advanced", false, "Include the advanced feature block")
	verbose     = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()

	if *dataFile == "" {
		log.Fatal("missing -data: path to a historical dataset (.json or .csv)")
	}

	cfg, err := parseConfig()
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	registry := nfl.NewTeamRegistry()
	store, err := backtest.Load(*dataFile, registry)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}
	log.Printf("Loaded %d games from %s", store.Len(), *dataFile)

	evaluator, err := backtest.NewEvaluator(store, registry, cfg)
	if err != nil {
		log.Fatalf("Failed to create evaluator: %v", err)
	}

	boundaries := evaluator.Boundaries()
	if len(boundaries) == 0 {
		log.Fatal("Dataset spans a single season/week; nothing to hold out")
	}
	log.Printf("Running %s walk-forward over %d boundaries (target: %s)",
		cfg.Granularity, len(boundaries), cfg.Target)

	report, err := evaluator.Run(context.Background(), boundaries)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	printReport(report)

	if *outputFile != "" {
		if err := export(report, *outputFile); err != nil {
			log.Printf("Failed to export results: %v", err)
		} else {
			log.Printf("Results exported to: %s", *outputFile)
		}
	}
}

func parseConfig() (backtest.Config, error) {
	cfg := backtest.Config{
		FeatureSet: features.Set{IncludeAdvanced: *advanced},
		MinEdge:    *minEdge,
		Workers:    *workers,
		NewModel:   func() model.Regressor { return model.NewRidge(*ridgeLambda) },
		Metrics:    metrics.Default(),
	}

	switch strings.ToLower(*target) {
	case "spread":
		cfg.Target = backtest.TargetSpread
	case "total":
		cfg.Target = backtest.TargetTotal
	default:
		return cfg, fmt.Errorf("unknown target %q (expected spread or total)", *target)
	}

	switch strings.ToLower(*granularity) {
	case "season":
		cfg.Granularity = backtest.BySeason
	case "week":
		cfg.Granularity = backtest.ByWeek
	default:
		return cfg, fmt.Errorf("unknown granularity %q (expected season or week)", *granularity)
	}

	return cfg, nil
}

func printReport(r *backtest.Report) {
	fmt.Println()
	fmt.Println("==================== BACKTEST RESULTS ====================")
	fmt.Println()
	fmt.Printf("  Target:          %s\n", r.Target)
	fmt.Printf("  Granularity:     %s\n", r.Granularity)
	if r.MinEdge > 0 {
		fmt.Printf("  Min Edge:        %.1f pts\n", r.MinEdge)
	}
	fmt.Printf("  Prediction MAE:  %.2f pts\n", r.PredictionMAE)
	fmt.Println()

	fmt.Println("  Slice            Train  Test   MAE     W-L-P       Win%")
	fmt.Println("  -----            -----  ----   ---     -----       ----")
	for _, s := range r.Slices {
		b := s.Betting
		fmt.Printf("  %-15s  %5d  %4d   %5.2f   %d-%d-%d   %6.1f%%\n",
			s.Boundary, s.TrainSize, s.TestSize, s.MAE,
			b.Wins, b.Losses, b.Pushes, b.WinRate*100)
	}
	fmt.Println()

	o := r.Overall
	fmt.Printf("  Record:          %d-%d-%d\n", o.Wins, o.Losses, o.Pushes)
	fmt.Printf("  Win Rate:        %.1f%% (breakeven %.2f%%)\n", o.WinRate*100, ats.BreakEven*100)
	fmt.Printf("  Edge:            %+.2f pts vs breakeven\n", o.Edge)
	fmt.Printf("  Profit:          $%.2f (per $110 risked at -110)\n", o.Profit.InexactFloat64())
	fmt.Printf("  ROI:             %.2f%%\n", o.ROI.InexactFloat64()*100)
	fmt.Printf("  p-value:         %.4f (one-sided vs coin flip)\n", o.PValue)
	fmt.Println()
	fmt.Println("===========================================================")

	if *verbose && len(r.Results) > 0 {
		fmt.Println()
		fmt.Println("Settled Bets:")
		fmt.Println("-------------")
		for i, res := range r.Results {
			fmt.Printf("  %d. %s pred %+.1f line %+.1f actual %+.1f -> %s\n",
				i+1, res.GameID, res.Predicted, res.Line, res.Actual, res.Outcome)
		}
	}
}

func export(r *backtest.Report, filename string) error {
	if strings.HasSuffix(filename, ".csv") {
		return r.ExportCSV(filename)
	}
	if strings.HasSuffix(filename, ".json") {
		return r.ExportJSON(filename)
	}
	return r.ExportJSON(filename + ".json")
}
