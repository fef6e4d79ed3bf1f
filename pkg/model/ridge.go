package model

import (
	"fmt"
	"math"
)

// Ridge is an L2-regularized linear regressor solved by normal
// equations. It exists as the reference Regressor implementation: fully
// deterministic, no tuning knobs beyond lambda, and fast enough to refit
// at every walk-forward boundary. Production callers are expected to
// plug in a stronger regressor behind the same interface.
type Ridge struct {
	// Lambda is the regularization strength. The intercept is not
	// regularized.
	Lambda float64

	weights []float64 // last element is the intercept
}

// NewRidge creates a ridge regressor with the given lambda. Lambda <= 0
// degenerates to ordinary least squares, which can fail on singular
// design matrices.
func NewRidge(lambda float64) *Ridge {
	return &Ridge{Lambda: lambda}
}

// Fit solves (X'X + lambda*I) w = X'y with a bias column appended to X.
func (r *Ridge) Fit(features [][]float64, targets []float64) error {
	n := len(features)
	if n == 0 {
		return fmt.Errorf("ridge: empty training set")
	}
	if len(targets) != n {
		return fmt.Errorf("ridge: %d rows but %d targets", n, len(targets))
	}
	d := len(features[0])
	for i, row := range features {
		if len(row) != d {
			return fmt.Errorf("ridge: row %d has %d features, want %d", i, len(row), d)
		}
	}

	// Augmented dimension: d features + bias.
	m := d + 1
	ata := make([][]float64, m)
	for i := range ata {
		ata[i] = make([]float64, m)
	}
	aty := make([]float64, m)

	row := make([]float64, m)
	for i, x := range features {
		copy(row, x)
		row[d] = 1
		for j := 0; j < m; j++ {
			aty[j] += row[j] * targets[i]
			for k := j; k < m; k++ {
				ata[j][k] += row[j] * row[k]
			}
		}
	}
	for j := 0; j < m; j++ {
		for k := 0; k < j; k++ {
			ata[j][k] = ata[k][j]
		}
	}
	if r.Lambda > 0 {
		for j := 0; j < d; j++ { // leave the bias unregularized
			ata[j][j] += r.Lambda
		}
	}

	w, err := solve(ata, aty)
	if err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	r.weights = w
	return nil
}

// Predict applies the fitted weights.
func (r *Ridge) Predict(features [][]float64) ([]float64, error) {
	if r.weights == nil {
		return nil, fmt.Errorf("ridge: predict before fit")
	}
	d := len(r.weights) - 1
	out := make([]float64, len(features))
	for i, x := range features {
		if len(x) != d {
			return nil, fmt.Errorf("ridge: row %d has %d features, want %d", i, len(x), d)
		}
		y := r.weights[d]
		for j, v := range x {
			y += r.weights[j] * v
		}
		out[i] = y
	}
	return out, nil
}

// solve performs Gaussian elimination with partial pivoting on a dense
// symmetric positive system. a and b are consumed.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		// Pivot on the largest magnitude entry in this column.
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		inv := 1 / a[col][col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] * inv
			if f == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
