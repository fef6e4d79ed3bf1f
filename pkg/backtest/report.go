package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/unspoken95159/predict/pkg/ats"
)

// SliceResult is one boundary's out-of-sample record.
type SliceResult struct {
	Boundary  Boundary    `json:"boundary"`
	TrainSize int         `json:"trainSize"`
	TestSize  int         `json:"testSize"`
	MAE       float64     `json:"mae"`
	Betting   ats.Summary `json:"betting"`
}

// Report is the full output of one evaluation run.
type Report struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Target      string    `json:"target"`
	Granularity string    `json:"granularity"`
	MinEdge     float64   `json:"minEdge"`

	// PredictionMAE covers every out-of-sample prediction, including
	// games without a posted line.
	PredictionMAE float64 `json:"predictionMae"`

	Slices  []SliceResult `json:"slices"`
	Overall ats.Summary   `json:"overall"`

	Predictions []Prediction `json:"predictions"`
	Results     []ats.Result `json:"results"`
}

func (e *Evaluator) report(slices []SliceResult, predictions []Prediction) *Report {
	results := e.settle(predictions)

	byGame := make(map[string]ats.Result, len(results))
	for _, r := range results {
		byGame[r.GameID] = r
	}
	for i := range slices {
		var sliceResults []ats.Result
		for _, p := range predictions {
			if p.Boundary != slices[i].Boundary {
				continue
			}
			if r, ok := byGame[p.GameID]; ok {
				sliceResults = append(sliceResults, r)
			}
		}
		slices[i].Betting = ats.Summarize(sliceResults)
	}

	absErr := 0.0
	for _, p := range predictions {
		absErr += math.Abs(p.Predicted - p.Actual)
	}

	overall := ats.Summarize(results)
	e.cfg.Metrics.UpdatePerformance(e.cfg.Target.String(), overall.WinRate, overall.ROI.InexactFloat64())

	return &Report{
		ID:            uuid.New(),
		GeneratedAt:   time.Now().UTC(),
		Target:        e.cfg.Target.String(),
		Granularity:   e.cfg.Granularity.String(),
		MinEdge:       e.cfg.MinEdge,
		PredictionMAE: absErr / float64(len(predictions)),
		Slices:        slices,
		Overall:       overall,
		Predictions:   predictions,
		Results:       results,
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ExportJSON writes the report to a file.
func (r *Report) ExportJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	defer f.Close()
	if err := r.WriteJSON(f); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}

// ExportCSV writes the settled per-game results to a CSV file.
func (r *Report) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"game_id", "predicted", "line", "actual", "edge", "result"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	for _, res := range r.Results {
		rec := []string{
			res.GameID,
			strconv.FormatFloat(res.Predicted, 'f', 2, 64),
			strconv.FormatFloat(res.Line, 'f', 1, 64),
			strconv.FormatFloat(res.Actual, 'f', 1, 64),
			strconv.FormatFloat(res.Edge, 'f', 2, 64),
			res.Outcome.String(),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("export results: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
