// Package ats settles predictions against posted market lines and
// aggregates the resulting betting record. One settlement rule serves
// both spreads and totals; only the substituted value differs.
package ats

import (
	"math"

	"github.com/shopspring/decimal"
)

// PushTolerance is the half-point window inside which a bet ties the
// line and is refunded, matching standard sportsbook push rules.
const PushTolerance = 0.5

// BreakEven is the win rate required to break even at -110 odds:
// 110/210.
const BreakEven = 110.0 / 210.0

// Outcome classifies a settled bet.
type Outcome int

const (
	Loss Outcome = iota
	Win
	Push
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "WIN"
	case Loss:
		return "LOSS"
	case Push:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// MarshalText makes outcomes readable in JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Settle classifies one bet. predicted, line, and actual must share
// units: home-margin points for spreads, combined points for totals.
// The bet pushes when the actual value lands within PushTolerance of the
// line; otherwise it wins exactly when the model and the result fall on
// the same side of the line.
func Settle(predicted, line, actual float64) Outcome {
	if math.Abs(actual-line) < PushTolerance {
		return Push
	}
	if (predicted > line) == (actual > line) {
		return Win
	}
	return Loss
}

// Result is the settled record for a single game.
type Result struct {
	GameID    string  `json:"gameId"`
	Predicted float64 `json:"predicted"`
	Line      float64 `json:"line"`
	Actual    float64 `json:"actual"`
	Outcome   Outcome `json:"result"`
	// Edge is the model's disagreement with the line in points; the
	// confidence filter bets only above a threshold of it.
	Edge float64 `json:"edge"`
}

// NewResult settles a single game and records its edge.
func NewResult(gameID string, predicted, line, actual float64) Result {
	return Result{
		GameID:    gameID,
		Predicted: predicted,
		Line:      line,
		Actual:    actual,
		Outcome:   Settle(predicted, line, actual),
		Edge:      math.Abs(predicted - line),
	}
}

// Summary aggregates a betting record under the standard -110 vig
// model: each win returns $100 on $110 risked, each loss costs $110,
// pushes are refunded and excluded from the win-rate denominator.
type Summary struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Pushes int `json:"pushes"`

	// WinRate is wins/(wins+losses), 0 when no bets resolved.
	WinRate float64 `json:"winRate"`
	// Profit in dollars: wins*100 - losses*110.
	Profit decimal.Decimal `json:"profit"`
	// ROI is profit over total risked: profit / ((wins+losses)*110).
	ROI decimal.Decimal `json:"roi"`
	// Edge is WinRate minus the 52.38% breakeven, in percentage points.
	Edge float64 `json:"edge"`
	// PValue is the one-sided binomial probability of at least this
	// many wins under a fair coin. 1 when no bets resolved.
	PValue float64 `json:"pValue"`
}

// Summarize aggregates settled results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case Win:
			s.Wins++
		case Loss:
			s.Losses++
		case Push:
			s.Pushes++
		}
	}
	return finalize(s)
}

func finalize(s Summary) Summary {
	bets := s.Wins + s.Losses
	s.Profit = decimal.NewFromInt(int64(s.Wins*100 - s.Losses*110))
	s.ROI = decimal.Zero
	s.PValue = 1
	if bets > 0 {
		s.WinRate = float64(s.Wins) / float64(bets)
		s.ROI = s.Profit.Div(decimal.NewFromInt(int64(bets * 110)))
		s.Edge = (s.WinRate - BreakEven) * 100
		s.PValue = BinomialPValue(s.Wins, bets)
	}
	return s
}

// BinomialPValue is the one-sided tail probability P(X >= wins) for
// X ~ Binomial(trials, 0.5): the chance a coin-flipping bettor does at
// least this well.
func BinomialPValue(wins, trials int) float64 {
	if trials <= 0 {
		return 1
	}
	if wins <= 0 {
		return 1
	}
	if wins > trials {
		return 0
	}
	logHalfN := float64(trials) * math.Log(0.5)
	p := 0.0
	for k := wins; k <= trials; k++ {
		p += math.Exp(logChoose(trials, k) + logHalfN)
	}
	if p > 1 {
		p = 1
	}
	return p
}

func logChoose(n, k int) float64 {
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk1, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk1
}
