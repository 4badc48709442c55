// Package engineclient is a client for the process engine's REST API.
//
// The engine owns tasks, process instances and identities. This client only
// reads them and forwards operator actions; it never retries a mutating call,
// so a claim or completion is submitted at most once per invocation.
//
// Example usage:
//
//	client, err := engineclient.New("http://localhost:5050/api/camunda",
//	    engineclient.WithLogger(logger),
//	    engineclient.WithRateLimit(20, 10),
//	)
//	snap, err := client.ProcessStatus(ctx, instanceID)
package engineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

// ErrNotFound is returned when the engine reports that an entity does not exist.
var ErrNotFound = errors.New("not found")

// StatusError is returned for unexpected HTTP status codes on read calls.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("engine returned status %d for %s %s", e.StatusCode, e.Method, e.Path)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps a 404 onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the engine REST API.
type Client struct {
	// Host is the base URL of the API, including any path prefix.
	Host   string
	Logger *slog.Logger

	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRateLimit limits requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client for the engine API at host. The host must include the
// scheme, e.g. "http://localhost:5050/api/camunda".
func New(host string, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host URL must include scheme and host: %q", host)
	}

	c := &Client{
		Host:   strings.TrimRight(host, "/"),
		Logger: slog.Default(),
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
}

// send performs the call and returns the response status and body. Transport
// failures are returned as errors; HTTP status handling is left to callers.
func (c *Client) send(ctx context.Context, req request) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	target := c.Host + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.Logger.Debug("engine request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp.StatusCode, data, nil
}

// get performs a read call and decodes a 2xx JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	status, data, err := c.send(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &StatusError{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: status,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// mutate performs a write call. Any non-2xx response becomes a RejectionError
// carrying the engine's message verbatim.
func (c *Client) mutate(ctx context.Context, op Operation, taskID string, req request) error {
	status, data, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &RejectionError{
			Op:         op,
			TaskID:     taskID,
			StatusCode: status,
			Message:    rejectionMessage(data),
		}
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
