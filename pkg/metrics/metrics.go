// Package metrics provides Prometheus metrics for the prediction
// pipeline. All recording helpers are nil-safe so library code can take
// an optional *Pipeline without guarding every call site.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline collects and exposes pipeline metrics.
type Pipeline struct {
	registry *prometheus.Registry

	// Statistics engine
	SnapshotsComputed prometheus.Counter
	SnapshotCacheHits prometheus.Counter

	// Model training and prediction
	ModelFits        *prometheus.CounterVec
	FitDuration      *prometheus.HistogramVec
	PredictionsTotal *prometheus.CounterVec

	// Settlement
	BetsSettled *prometheus.CounterVec
	WinRate     *prometheus.GaugeVec
	ROI         *prometheus.GaugeVec

	// Ingestion
	GamesIngested *prometheus.CounterVec
	LinesIngested *prometheus.CounterVec
	OddsRequests  *prometheus.CounterVec
	FeedMessages  *prometheus.CounterVec
}

// NewPipeline creates a new pipeline metrics collector with its own
// registry.
func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),

		SnapshotsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predict_snapshots_computed_total",
			Help: "Point-in-time team snapshots computed (cache misses)",
		}),
		SnapshotCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "predict_snapshot_cache_hits_total",
			Help: "Snapshot requests served from the memoization cache",
		}),

		ModelFits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_model_fits_total",
				Help: "Regressor fits performed",
			},
			[]string{"target"},
		),
		FitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predict_model_fit_duration_seconds",
				Help:    "Time spent fitting a regressor",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"target"},
		),
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_predictions_total",
				Help: "Predictions produced",
			},
			[]string{"target"},
		),

		BetsSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_bets_settled_total",
				Help: "Simulated bets settled against market lines",
			},
			[]string{"target", "outcome"},
		),
		WinRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predict_ats_win_rate",
				Help: "Latest aggregate ATS win rate (0-1, pushes excluded)",
			},
			[]string{"target"},
		),
		ROI: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predict_ats_roi",
				Help: "Latest aggregate ROI at -110 odds (fraction)",
			},
			[]string{"target"},
		),

		GamesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_games_ingested_total",
				Help: "Games added to the event store",
			},
			[]string{"source"},
		),
		LinesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_lines_ingested_total",
				Help: "Market lines attached to games",
			},
			[]string{"source"},
		),
		OddsRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_odds_requests_total",
				Help: "Requests made to the odds API",
			},
			[]string{"status"},
		),
		FeedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_feed_messages_total",
				Help: "Messages received on the results feed",
			},
			[]string{"type"},
		),
	}

	p.registry.MustRegister(
		p.SnapshotsComputed,
		p.SnapshotCacheHits,
		p.ModelFits,
		p.FitDuration,
		p.PredictionsTotal,
		p.BetsSettled,
		p.WinRate,
		p.ROI,
		p.GamesIngested,
		p.LinesIngested,
		p.OddsRequests,
		p.FeedMessages,
	)

	return p
}

// Registry returns the prometheus registry for serving /metrics.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// --- nil-safe recording helpers ---

// RecordSnapshot records a snapshot lookup.
func (p *Pipeline) RecordSnapshot(cacheHit bool) {
	if p == nil {
		return
	}
	if cacheHit {
		p.SnapshotCacheHits.Inc()
	} else {
		p.SnapshotsComputed.Inc()
	}
}

// RecordFit records a regressor fit.
func (p *Pipeline) RecordFit(target string, seconds float64) {
	if p == nil {
		return
	}
	p.ModelFits.WithLabelValues(target).Inc()
	p.FitDuration.WithLabelValues(target).Observe(seconds)
}

// RecordPredictions records produced predictions.
func (p *Pipeline) RecordPredictions(target string, n int) {
	if p == nil {
		return
	}
	p.PredictionsTotal.WithLabelValues(target).Add(float64(n))
}

// RecordSettlement records one settled bet.
func (p *Pipeline) RecordSettlement(target, outcome string) {
	if p == nil {
		return
	}
	p.BetsSettled.WithLabelValues(target, outcome).Inc()
}

// UpdatePerformance updates the aggregate performance gauges.
func (p *Pipeline) UpdatePerformance(target string, winRate, roi float64) {
	if p == nil {
		return
	}
	p.WinRate.WithLabelValues(target).Set(winRate)
	p.ROI.WithLabelValues(target).Set(roi)
}

// RecordIngest records games and lines added to the store.
func (p *Pipeline) RecordIngest(source string, games, lines int) {
	if p == nil {
		return
	}
	if games > 0 {
		p.GamesIngested.WithLabelValues(source).Add(float64(games))
	}
	if lines > 0 {
		p.LinesIngested.WithLabelValues(source).Add(float64(lines))
	}
}

// RecordOddsRequest records an odds API request by status.
func (p *Pipeline) RecordOddsRequest(status string) {
	if p == nil {
		return
	}
	p.OddsRequests.WithLabelValues(status).Inc()
}

// RecordFeedMessage records a feed message by type.
func (p *Pipeline) RecordFeedMessage(msgType string) {
	if p == nil {
		return
	}
	p.FeedMessages.WithLabelValues(msgType).Inc()
}

var (
	defaultPipeline *Pipeline
	once            sync.Once
)

// Default returns the process-wide pipeline metrics instance.
func Default() *Pipeline {
	once.Do(func() {
		defaultPipeline = NewPipeline()
	})
	return defaultPipeline
}
