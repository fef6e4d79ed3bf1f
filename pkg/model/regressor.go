// Package model defines the regressor contract the evaluator trains and
// scores. The pipeline is agnostic to the regression algorithm: anything
// that fits a numeric matrix to numeric targets and predicts
// deterministically can plug in.
package model

// Regressor is a trainable numeric regressor. Implementations must be
// deterministic: the same training data and the same inputs yield the
// same predictions.
type Regressor interface {
	// Fit trains on the feature matrix and aligned targets, replacing
	// any previous fit.
	Fit(features [][]float64, targets []float64) error

	// Predict returns one prediction per input row. It is an error to
	// call Predict before a successful Fit.
	Predict(features [][]float64) ([]float64, error)
}

// Factory creates a fresh, untrained regressor. The walk-forward
// evaluator calls it once per boundary: retraining is a full refit on
// the expanded window, never an incremental update.
type Factory func() Regressor
