package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"activityportal/internal/activities"
	"activityportal/internal/metrics"
)

const (
	OpList       = "list_activities"
	OpSignup     = "signup"
	OpUnregister = "unregister"
)

// Result is a successful write answered by the backend.
type Result struct {
	StatusCode int
	Message    string
}

// Client talks to the activities REST API. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// bounded only by their context and the transport defaults.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q is not absolute", baseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "backend")),
	}, nil
}

// ListActivities fetches every activity.
func (c *Client) ListActivities(ctx context.Context) (activities.Store, error) {
	resp, body, err := c.do(ctx, OpList, http.MethodGet, c.baseURL+"/activities")
	if err != nil {
		return activities.Store{}, err
	}

	if !ok(resp.StatusCode) {
		var env envelope
		_ = json.Unmarshal(body, &env)
		c.observe(OpList, "api_error")
		return activities.Store{}, &APIError{Op: OpList, StatusCode: resp.StatusCode, Detail: env.detailText()}
	}

	store, err := ParseActivities(body)
	if err != nil {
		c.observe(OpList, "transport_error")
		return activities.Store{}, &TransportError{Op: OpList, Err: err}
	}

	c.observe(OpList, "success")
	return store, nil
}

// Signup registers email for the named activity.
func (c *Client) Signup(ctx context.Context, activity, email string) (*Result, error) {
	return c.write(ctx, OpSignup, http.MethodPost, activity, "signup", email)
}

// Unregister removes email from the named activity.
func (c *Client) Unregister(ctx context.Context, activity, email string) (*Result, error) {
	return c.write(ctx, OpUnregister, http.MethodDelete, activity, "unregister", email)
}

// ActionURL builds /activities/{name}/{verb}?email={email} with both values
// percent-encoded.
func (c *Client) ActionURL(activity, verb, email string) string {
	q := url.Values{}
	q.Set("email", email)
	return fmt.Sprintf("%s/activities/%s/%s?%s", c.baseURL, url.PathEscape(activity), verb, q.Encode())
}

func (c *Client) write(ctx context.Context, op, method, activity, verb, email string) (*Result, error) {
	resp, body, err := c.do(ctx, op, method, c.ActionURL(activity, verb, email))
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.observe(op, "transport_error")
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if !ok(resp.StatusCode) {
		c.observe(op, "api_error")
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Detail: env.detailText()}
	}

	c.observe(op, "success")
	return &Result{StatusCode: resp.StatusCode, Message: env.Message}, nil
}

func (c *Client) do(ctx context.Context, op, method, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.observe(op, "transport_error")
		c.logger.Warn("backend request failed", zap.String("operation", op), zap.Error(err))
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(op, "transport_error")
		return nil, nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("backend response",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)
	return resp, body, nil
}

func (c *Client) observe(op, outcome string) {
	metrics.BackendRequests.WithLabelValues(op, outcome).Inc()
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
