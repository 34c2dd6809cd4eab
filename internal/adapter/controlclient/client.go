// Package controlclient drives a remote overlayd over its HTTP control API.
package controlclient

import (
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

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
	"github.com/pscheid92/overlayd/internal/platform/retry"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 4
	maxErrorBody       = 4096
)

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	Code     int
	Response apperrors.ErrorResponse
}

func (e *StatusError) Error() string {
	if e.Response.Error != "" {
		return fmt.Sprintf("overlayd returned %d: %s", e.Code, e.Response.Error)
	}
	return fmt.Sprintf("overlayd returned %d", e.Code)
}

// Options configures the client. Zero values select defaults.
type Options struct {
	Timeout          time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	Clock            clockwork.Clock
}

// Client implements domain.CommandSender against the HTTP API. Requests are retried with
// backoff, so delivery is at-least-once; the daemon treats repeated commands as no-ops.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	policy  retry.Policy
}

// New creates a client for the daemon at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid control URL %q", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 100 * time.Millisecond
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = time.Second
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: opts.Timeout},
		policy: retry.Policy{
			MaxAttempts:      opts.MaxAttempts,
			InitialBackoff:   opts.InitialBackoff,
			RateLimitBackoff: opts.RateLimitBackoff,
			MaxBackoff:       5 * time.Second,
			Clock:            opts.Clock,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Control request failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}, nil
}

// Send delivers cmd. The correlation ID in ctx, or a fresh one, travels in X-Correlation-ID.
func (c *Client) Send(ctx context.Context, cmd domain.Command) error {
	ctx, _ = correlation.Ensure(ctx)
	path := "/api/overlay/" + strings.ToLower(cmd.String())

	err := retry.DoVoid(ctx, c.policy, classify, func() error {
		resp, err := c.do(ctx, http.MethodPost, path)
		if err != nil {
			return err
		}
		defer drain(resp)
		return checkStatus(resp)
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// Status fetches the controller status.
func (c *Client) Status(ctx context.Context) (domain.OverlayStatus, error) {
	ctx, _ = correlation.Ensure(ctx)

	status, err := retry.Do(ctx, c.policy, classify, func() (domain.OverlayStatus, error) {
		resp, err := c.do(ctx, http.MethodGet, "/api/overlay/status")
		if err != nil {
			return domain.OverlayStatus{}, err
		}
		defer drain(resp)
		if err := checkStatus(resp); err != nil {
			return domain.OverlayStatus{}, err
		}

		var status domain.OverlayStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return domain.OverlayStatus{}, &retry.PermanentError{Err: fmt.Errorf("decode status: %w", err)}
		}
		return status, nil
	})
	if err != nil {
		return domain.OverlayStatus{}, fmt.Errorf("fetch status: %w", err)
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return nil, &retry.PermanentError{Err: err}
	}
	if id, ok := correlation.ID(ctx); ok {
		req.Header.Set(correlation.Header, id)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := &StatusError{Code: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(body, &statusErr.Response)
	return statusErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

// classify retries transport failures, 5xx and 429; other responses are final.
func classify(err error) retry.Action {
	var permErr *retry.PermanentError
	if errors.As(err, &permErr) {
		return retry.Stop
	}
	if errors.Is(err, context.Canceled) {
		return retry.Stop
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return retry.After
		case statusErr.Code >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	return retry.Retry
}
