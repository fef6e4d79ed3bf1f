// Package odds fetches NFL point spreads and totals from The Odds API
// and condenses per-bookmaker quotes into a single consensus line per
// game.
package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/unspoken95159/predict/pkg/metrics"
	"github.com/unspoken95159/predict/pkg/nfl"
)

const (
	// DefaultBaseURL is The Odds API base URL.
	DefaultBaseURL = "https://api.the-odds-api.com/v4"

	defaultSportKey = "americanfootball_nfl"

	// The free tier allows bursts but meters monthly quota, so the
	// client stays well under one request per second.
	defaultRateLimit = 0.5
	defaultBurst     = 2

	// minConsensusBooks is the minimum number of priority books that
	// must quote a market before the median counts as consensus.
	minConsensusBooks = 3

	fallbackBookmaker = "fanduel"
)

// PriorityBookmakers are the books whose quotes form the consensus, in
// fallback order.
var PriorityBookmakers = []string{"fanduel", "draftkings", "betmgm", "caesars"}

// Client is an Odds API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	registry   *nfl.TeamRegistry
	met        *metrics.Pipeline
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records request outcomes on the given pipeline.
func WithMetrics(met *metrics.Pipeline) ClientOption {
	return func(c *Client) {
		c.met = met
	}
}

// NewClient creates an Odds API client. The registry resolves the API's
// full team names to canonical abbreviations.
func NewClient(apiKey string, registry *nfl.TeamRegistry, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		registry: registry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-200 response from the Odds API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("odds api error %d: %s", e.StatusCode, e.Body)
}

// ErrNoConsensus reports that too few priority books quoted a market
// and no fallback quote existed.
var ErrNoConsensus = fmt.Errorf("odds: no consensus line")

// event is the Odds API response shape for one game.
type event struct {
	ID           string    `json:"id"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Bookmakers   []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Point float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// GameLine is one upcoming game with its consensus line.
type GameLine struct {
	EventID  string
	Kickoff  time.Time
	HomeTeam string
	AwayTeam string
	Line     nfl.MarketLine
}

// FetchLines fetches upcoming NFL games with consensus spread and total
// lines. Games where neither consensus nor fallback quotes exist are
// skipped.
func (c *Client) FetchLines(ctx context.Context) ([]GameLine, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", "us")
	params.Set("markets", "spreads,totals")
	params.Set("oddsFormat", "american")

	var events []event
	if err := c.get(ctx, "/sports/"+defaultSportKey+"/odds", params, &events); err != nil {
		return nil, err
	}

	out := make([]GameLine, 0, len(events))
	for _, ev := range events {
		line, err := c.consensusLine(ev)
		if err != nil {
			continue
		}
		out = append(out, GameLine{
			EventID:  ev.ID,
			Kickoff:  ev.CommenceTime,
			HomeTeam: c.resolve(ev.HomeTeam),
			AwayTeam: c.resolve(ev.AwayTeam),
			Line:     line,
		})
	}
	return out, nil
}

// consensusLine condenses per-book quotes into one line: the median
// across priority books when at least minConsensusBooks quote the
// market, otherwise the fallback book's quote alone.
//
// The API's spread "point" is sportsbook handicap notation (home -3
// when the home side is favored); the stored spread is the expected
// home margin, so the sign flips here.
func (c *Client) consensusLine(ev event) (nfl.MarketLine, error) {
	priority := make(map[string]bool, len(PriorityBookmakers))
	for _, b := range PriorityBookmakers {
		priority[b] = true
	}

	var spreads, totals []float64
	var fallbackSpread, fallbackTotal *float64
	for _, bm := range ev.Bookmakers {
		if !priority[bm.Key] {
			continue
		}
		for _, m := range bm.Markets {
			switch m.Key {
			case "spreads":
				for _, o := range m.Outcomes {
					if o.Name != ev.HomeTeam {
						continue
					}
					margin := -o.Point
					spreads = append(spreads, margin)
					if bm.Key == fallbackBookmaker {
						fallbackSpread = &margin
					}
				}
			case "totals":
				if len(m.Outcomes) == 0 {
					continue
				}
				total := m.Outcomes[0].Point
				totals = append(totals, total)
				if bm.Key == fallbackBookmaker {
					fallbackTotal = &total
				}
			}
		}
	}

	spread, nSpread, err := consensus(spreads, fallbackSpread)
	if err != nil {
		return nfl.MarketLine{}, err
	}
	total, nTotal, err := consensus(totals, fallbackTotal)
	if err != nil {
		return nfl.MarketLine{}, err
	}
	books := nSpread
	if nTotal < books {
		books = nTotal
	}
	return nfl.MarketLine{Spread: spread, Total: total, Books: books}, nil
}

// consensus returns the median when enough books quoted, else the
// fallback quote.
func consensus(quotes []float64, fallback *float64) (float64, int, error) {
	if len(quotes) >= minConsensusBooks {
		return median(quotes), len(quotes), nil
	}
	if fallback != nil {
		return *fallback, 1, nil
	}
	return 0, 0, ErrNoConsensus
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func (c *Client) resolve(name string) string {
	if c.registry != nil {
		if abbr, ok := c.registry.Resolve(name); ok {
			return abbr
		}
	}
	return name
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.met.RecordOddsRequest("error")
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.met.RecordOddsRequest(fmt.Sprintf("%d", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	c.met.RecordOddsRequest("ok")

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
