package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"walletMonitor/internal/retry"
)

const (
	DefaultTimeout    = 30 * time.Second
	// DefaultMaxRetries gives three attempts in total.
	DefaultMaxRetries = 2
	DefaultUserAgent  = "walletMonitor/1.0"

	maxErrorBody = 512
)

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxBackoff time.Duration
	UserAgent  string
}

// StatusError is returned for non-2xx responses. URL holds only scheme and
// host since bot APIs carry credentials in the path or query.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client wraps net/http with a per-request timeout and bounded retries.
type Client struct {
	http      *http.Client
	policy    retry.Policy
	userAgent string
	logger    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
	c.policy = retry.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxBackoff,
	}
	return c
}

// HTTPClient exposes the underlying client for transports that manage
// their own requests.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req and returns the body of a 2xx response. Network failures are
// retried for every method; 429 and 5xx only for idempotent methods.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if req.Body != nil && req.GetBody == nil {
		return nil, fmt.Errorf("request body for %s %s cannot be replayed", req.Method, redactURL(req.URL))
	}

	target := redactURL(req.URL)
	policy := c.policy
	policy.Retryable = func(err error) bool { return shouldRetry(req.Method, err) }
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.logger.Warn("http request retry",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	var body []byte
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			rc, err := req.GetBody()
			if err != nil {
				return err
			}
			attempt.Body = rc
		}
		if attempt.Header.Get("User-Agent") == "" {
			attempt.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.http.Do(attempt)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = target
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if len(data) > maxErrorBody {
				data = data[:maxErrorBody]
			}
			return &StatusError{Method: req.Method, URL: target, Code: resp.StatusCode, Body: string(data)}
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", redactURL(req.URL), err)
	}
	return nil
}

// PostJSON sends in as a JSON body and decodes the response into out when
// out is non-nil.
func (c *Client) PostJSON(ctx context.Context, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	body, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", redactURL(req.URL), err)
	}
	return nil
}

// redactURL keeps the scheme and host of u.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func shouldRetry(method string, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if !idempotent(method) {
			return false
		}
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
