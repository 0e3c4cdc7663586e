// Package client provides the Canvas LMS HTTP client with request pacing,
// quota tracking, Link-header pagination and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/pagination"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Canvas client operations.
var (
	canvasRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas requests by endpoint and status",
	}, []string{"endpoint", "status"})

	canvasRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Canvas request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	canvasErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_errors_total",
		Help: "Total Canvas errors by kind",
	}, []string{"kind"})
)

// apiPrefix is appended to the base URL; all paths are relative to it.
const apiPrefix = "/api/v1"

// Client is the Canvas REST client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	apiBase    string
	token      string
	userAgent  string
	limiter    *ratelimit.Limiter
	quota      *ratelimit.Tracker
	walker     *pagination.Walker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Canvas instance, e.g. "https://school.instructure.com".
	// A missing scheme defaults to https.
	BaseURL string

	// Token is the bearer access token. Opaque to the client.
	Token string

	// RateInterval is the minimum spacing between requests.
	RateInterval time.Duration

	// Timeout applies to each outbound request.
	Timeout time.Duration

	// Pagination
	PerPage  int
	MaxPages int

	// Redis optionally shares quota state between processes. May be nil.
	Redis *redis.Client

	// UserAgent header value.
	UserAgent string
}

// DefaultConfig returns the defaults used by the MCP server.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:      baseURL,
		Token:        token,
		RateInterval: ratelimit.DefaultInterval,
		Timeout:      30 * time.Second,
		PerPage:      pagination.DefaultConfig().PerPage,
		MaxPages:     pagination.DefaultConfig().MaxPages,
		UserAgent:    "canvas-mcp/1.0.0",
	}
}

// NormalizeBaseURL infers the scheme, validates the URL and trims the trailing slash.
func NormalizeBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("canvas base URL is required")
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid Canvas base URL: %s. Please provide a valid URL like https://your-school.instructure.com", raw)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// New creates a new Canvas client.
func New(cfg Config) (*Client, error) {
	base, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("canvas access token is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "canvas-mcp/1.0.0"
	}

	logger := log.With().Str("component", "canvas-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   base,
		apiBase:   base.String() + apiPrefix,
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		limiter:   ratelimit.NewLimiter(cfg.RateInterval),
		quota:     ratelimit.NewTracker(cfg.Redis, ratelimit.QuotaScope(base.Host, cfg.Token), logger),
		config:    cfg,
		logger:    logger,
	}
	c.walker = pagination.NewWalker(c, pagination.Config{
		PerPage:  cfg.PerPage,
		MaxPages: cfg.MaxPages,
	})
	return c, nil
}

// BaseURL returns the normalized Canvas base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Stats returns the request counter and last admission time.
func (c *Client) Stats() ratelimit.Stats {
	return c.limiter.Stats()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Get performs a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do performs one paced request and decodes the response into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	data, _, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		canvasErrorsTotal.WithLabelValues(string(KindMalformed)).Inc()
		return malformed(method, path, err)
	}
	return nil
}

// FetchPage implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, target string, params url.Values) ([]byte, string, error) {
	data, header, err := c.send(ctx, http.MethodGet, target, params, nil)
	if err != nil {
		return nil, "", err
	}
	return data, pagination.ParseNextLink(header.Get("Link")), nil
}

// ListAll fetches every page of a list endpoint and concatenates the records
// in server order. Any page failure fails the call.
func ListAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	_, err := c.walker.Walk(ctx, path, params, func(page int, data []byte) error {
		var batch []T
		if err := json.Unmarshal(data, &batch); err != nil {
			canvasErrorsTotal.WithLabelValues(string(KindMalformed)).Inc()
			return malformed(http.MethodGet, fmt.Sprintf("%s (page %d)", path, page), err)
		}
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// send runs the request pipeline: quota gate, pacing, request, quota update, classification.
func (c *Client) send(ctx context.Context, method, target string, query url.Values, body any) ([]byte, http.Header, error) {
	reqURL, endpoint, err := c.resolve(target, query)
	if err != nil {
		canvasErrorsTotal.WithLabelValues(string(KindMalformed)).Inc()
		return nil, nil, malformed(method, target, err)
	}

	startTime := time.Now()
	defer func() {
		canvasRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Quota gate
	allowed, err := c.quota.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Quota check failed")
		if ctx.Err() != nil {
			return nil, nil, c.fail(endpoint, "quota_wait", Classify(method, endpoint, nil, nil, err))
		}
	} else if !allowed {
		return nil, nil, c.fail(endpoint, "quota_blocked", &Error{
			Kind:    KindRateLimited,
			Method:  method,
			Path:    endpoint,
			Message: "request blocked: Canvas quota critical",
		})
	}

	// Step 2: Pacing
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, nil, c.fail(endpoint, "cancelled", Classify(method, endpoint, nil, nil, err))
	}

	// Step 3: Build request
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing Canvas request")

	// Step 4: Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, c.fail(endpoint, "network_error", Classify(method, endpoint, nil, nil, err))
	}
	defer resp.Body.Close()

	// Step 5: Update quota from headers
	if err := c.quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update quota from headers")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, c.fail(endpoint, "read_error", Classify(method, endpoint, nil, nil, err))
	}

	// Step 6: Classify HTTP errors
	if resp.StatusCode >= 400 {
		ce := Classify(method, endpoint, resp, data, nil)
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("kind", string(ce.Kind)).
			Msg("Canvas request error")
		return nil, nil, c.fail(endpoint, strconv.Itoa(resp.StatusCode), ce)
	}

	canvasRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return data, resp.Header, nil
}

func (c *Client) fail(endpoint, status string, err *Error) *Error {
	canvasRequestsTotal.WithLabelValues(endpoint, status).Inc()
	canvasErrorsTotal.WithLabelValues(string(err.Kind)).Inc()
	return err
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// resolve builds the absolute request URL and a low-cardinality endpoint label.
// Absolute targets (pagination cursors) must point at the configured host.
func (c *Client) resolve(target string, query url.Values) (string, string, error) {
	var u *url.URL
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		parsed, err := url.Parse(target)
		if err != nil {
			return "", "", fmt.Errorf("parse cursor: %w", err)
		}
		if !strings.EqualFold(parsed.Host, c.baseURL.Host) {
			return "", "", fmt.Errorf("cursor host %q does not match %q", parsed.Host, c.baseURL.Host)
		}
		u = parsed
	} else {
		if !strings.HasPrefix(target, "/") {
			target = "/" + target
		}
		parsed, err := url.Parse(c.apiBase + target)
		if err != nil {
			return "", "", fmt.Errorf("parse path: %w", err)
		}
		u = parsed
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	endpoint := strings.TrimPrefix(u.Path, c.baseURL.Path+apiPrefix)
	for numericSegment.MatchString(endpoint) {
		endpoint = numericSegment.ReplaceAllString(endpoint, "/:id$1")
	}
	return u.String(), endpoint, nil
}
