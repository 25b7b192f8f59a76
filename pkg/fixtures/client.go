// Package fixtures provides the client for the upstream fixture/result
// provider: per fixture id it supplies the kickoff date, a status code, final
// goals and a winner indicator.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the result provider base URL.
	DefaultBaseURL = "http://localhost:8090"

	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 2
)

// Detail is one fixture as reported by the provider.
type Detail struct {
	FixtureID string    `json:"fixture_id"`
	LeagueID  string    `json:"league_id"`
	Season    int       `json:"season"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	GoalsHome *int      `json:"goals_home"`
	GoalsAway *int      `json:"goals_away"`
	Winner    string    `json:"winner"` // "home", "away", "draw" or ""
}

// HasScore reports whether both goal counts are known.
func (d *Detail) HasScore() bool {
	return d.GoalsHome != nil && d.GoalsAway != nil
}

// Provider supplies fixture details for date backfill and result sync.
type Provider interface {
	FixtureByID(ctx context.Context, id string) (*Detail, error)
}

// finishedStatuses is the small set of status codes that mean a final score
// exists. Everything else is pending.
var finishedStatuses = map[string]bool{
	"FT":  true,
	"AET": true,
	"PEN": true,
}

// IsFinished reports whether a provider status code is from the finished set.
func IsFinished(status string) bool {
	return finishedStatuses[status]
}

// Client is an HTTP client for the fixture provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// NewClient creates a new fixture provider client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FixtureByID fetches one fixture. Callers control latency with the context;
// the client additionally respects the provider rate limit.
func (c *Client) FixtureByID(ctx context.Context, id string) (*Detail, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/fixtures/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching fixture %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fixture %s: provider returned %d", id, resp.StatusCode)
	}

	var detail Detail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decoding fixture %s: %w", id, err)
	}

	return &detail, nil
}
