package source

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sentichart/pkg/buildinfo"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/httputil"
	"github.com/matzehuels/sentichart/pkg/observability"
)

// DefaultBaseURL is where the backend listens in local development.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds a single simulation request. Simulations over long
// ranges take tens of seconds.
const DefaultTimeout = 60 * time.Second

const simulatePath = "/simulate_strategy"

// Client calls the strategy backend.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http     *http.Client
	baseURL  *url.URL
	logger   *log.Logger
	attempts int
	delay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient creates a client for the backend at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "backend url")
	}
	c := &Client{
		http:     &http.Client{Timeout: DefaultTimeout},
		baseURL:  u,
		logger:   log.New(io.Discard),
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL.String() }

type simulateRequest struct {
	Ticker string `json:"ticker"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// Simulate runs the backend strategy for ticker between start and end
// (YYYY-MM-DD, either may be empty) and returns the raw response body.
func (c *Client) Simulate(ctx context.Context, ticker, start, end string) ([]byte, error) {
	ticker = errors.NormalizeTicker(ticker)
	if err := errors.ValidateTicker(ticker); err != nil {
		return nil, err
	}
	if err := errors.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(simulateRequest{Ticker: ticker, Start: start, End: end})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode request")
	}
	endpoint := c.baseURL.JoinPath(simulatePath)

	var body []byte
	attempt := 0
	err = httputil.Retry(ctx, c.attempts, c.delay, func() error {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying backend request", "ticker", ticker, "attempt", attempt)
		}
		body, err = c.post(ctx, endpoint, payload)
		return err
	})
	if err != nil {
		return nil, classify(ticker, err)
	}
	return body, nil
}

// Fetch runs Simulate and decodes the response.
func (c *Client) Fetch(ctx context.Context, ticker, start, end string) (*Result, error) {
	body, err := c.Simulate(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(body)
}

func (c *Client) post(ctx context.Context, endpoint *url.URL, payload []byte) ([]byte, error) {
	hooks := observability.HTTP()
	host, path := endpoint.Host, endpoint.Path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := httputil.StatusError(resp); err != nil {
		// The backend reports an unknown ticker as a 500; retrying cannot help.
		var he *httputil.HTTPError
		if stderrors.As(err, &he) && isNoData(he) {
			return nil, he
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &httputil.RetryableError{Err: err}
	}
	if len(data) > MaxResponseSize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "response exceeds %d bytes", MaxResponseSize)
	}
	return data, nil
}

func isNoData(he *httputil.HTTPError) bool {
	return he.StatusCode == http.StatusNotFound || strings.Contains(he.Body, "No price data")
}

// classify maps transport failures onto error codes.
func classify(ticker string, err error) error {
	if errors.GetCode(err) != "" {
		return err
	}
	var he *httputil.HTTPError
	var ne net.Error
	switch {
	case stderrors.Is(err, context.Canceled):
		return err
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.As(err, &ne) && ne.Timeout():
		return errors.Wrap(errors.ErrCodeTimeout, err, "backend timed out for %s", ticker)
	case stderrors.As(err, &he) && isNoData(he):
		return errors.Wrap(errors.ErrCodeTickerNotFound, err, "no data for %s", ticker)
	case stderrors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests:
		return errors.Wrap(errors.ErrCodeRateLimited, err, "backend rate limited")
	case stderrors.As(err, &he) && he.StatusCode < 500:
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "backend rejected request for %s", ticker)
	default:
		return errors.Wrap(errors.ErrCodeNetwork, err, "fetch simulation for %s", ticker)
	}
}
