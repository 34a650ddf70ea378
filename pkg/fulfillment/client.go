package fulfillment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/storehawk/apple-pickup-cn/internal/domain"
	"github.com/storehawk/apple-pickup-cn/pkg/httpclient"
)

// Client issues availability queries against the fulfillment endpoint with a
// bounded retry loop. It holds no per-invocation state.
type Client struct {
	endpoint string
	http     httpclient.Client
}

// NewClient builds a client for the given endpoint. A nil transport falls
// back to the default resty client.
func NewClient(endpoint string, hc httpclient.Client) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if hc == nil {
		hc = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	return &Client{endpoint: endpoint, http: hc}
}

// Execute performs the HTTP call described by spec. Network errors and 5xx
// statuses are retried up to policy.MaxAttempts total attempts with a fixed
// sleep between them; a 4xx status fails immediately with ErrUpstreamRejected.
// On success the raw response body is returned.
func (c *Client) Execute(ctx context.Context, spec RequestSpec, policy domain.RetryPolicy) ([]byte, error) {
	policy = policy.Normalize()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, policy.Delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Get(ctx, spec.URL, spec.Headers)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		status := resp.StatusCode()
		switch {
		case status >= http.StatusOK && status < http.StatusMultipleChoices:
			return resp.Body(), nil
		case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
			return nil, &RejectedError{Status: status, Body: responseSnippet(resp.Body())}
		default:
			lastErr = fmt.Errorf("status %d: %s", status, responseSnippet(resp.Body()))
		}
	}

	return nil, fmt.Errorf("%w after %d attempt(s): %v", ErrUpstreamUnavailable, policy.MaxAttempts, lastErr)
}

// Fetch builds the request for q and executes it.
func (c *Client) Fetch(ctx context.Context, q domain.Query, policy domain.RetryPolicy) ([]byte, error) {
	spec, err := c.BuildRequest(q)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, spec, policy)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
