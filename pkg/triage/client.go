// Package triage is a client for the causal-triage diagnosis service.
package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:8091"

// Client requests root-cause diagnoses for underperforming campaigns.
type Client interface {
	Diagnose(ctx context.Context, req DiagnoseRequest) (*Diagnosis, error)
}

// DiagnoseRequest is the request body for POST /diagnose. The service scores
// attribution and measurement causes from the window bounds and the gap
// between platform-reported and backend-verified conversions; the remaining
// fields are advisory context.
type DiagnoseRequest struct {
	CampaignID          string    `json:"campaign_id"`
	CampaignName        string    `json:"campaign_name"`
	WindowStart         time.Time `json:"window_start"`
	WindowEnd           time.Time `json:"window_end"`
	PlatformConversions *float64  `json:"platform_conversions"`
	VerifiedConversions *float64  `json:"verified_conversions"`

	CampaignType string   `json:"campaign_type,omitempty"`
	TrueROAS     *float64 `json:"true_roas,omitempty"`
	CPA          *float64 `json:"cpa,omitempty"`
	TotalSpend   float64  `json:"total_spend"`
	WindowDays   int      `json:"window_days"`
}

// Diagnosis is the service's ranked root-cause analysis for one campaign.
type Diagnosis struct {
	PrimaryCause string       `json:"primary_cause"`
	Confidence   float64      `json:"confidence"`
	Causes       []CauseScore `json:"causes"`
}

// CauseScore is one candidate cause with its score and supporting evidence.
type CauseScore struct {
	Cause    string  `json:"cause"`
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second to the diagnosis service.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a triage service client. The default rate limit of
// 10 req/s matches the service's documented capacity.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Diagnose(ctx context.Context, req DiagnoseRequest) (*Diagnosis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "triage: rate limit wait")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "triage: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diagnose", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "triage: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "triage: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "triage: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("triage: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var diag Diagnosis
	if err := json.Unmarshal(respBody, &diag); err != nil {
		return nil, eris.Wrap(err, "triage: unmarshal response")
	}

	return &diag, nil
}
