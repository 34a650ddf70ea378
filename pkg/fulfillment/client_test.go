package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/storehawk/apple-pickup-cn/internal/domain"
	"github.com/storehawk/apple-pickup-cn/pkg/httpclient"
)

type scriptedResponse struct {
	status int
	body   string
	err    error
}

// scriptedClient replays a fixed sequence of responses; the last entry
// repeats if the client is called more often than scripted.
type scriptedClient struct {
	t         *testing.T
	expectURL string
	script    []scriptedResponse
	calls     int
}

type stubResponse struct {
	body       []byte
	statusCode int
}

func (r stubResponse) Body() []byte    { return r.body }
func (r stubResponse) StatusCode() int { return r.statusCode }

func (c *scriptedClient) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	if c.expectURL != "" && url != c.expectURL {
		c.t.Fatalf("expected url %q, got %q", c.expectURL, url)
	}
	idx := c.calls
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	c.calls++
	step := c.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	status := step.status
	if status == 0 {
		status = 200
	}
	return stubResponse{body: []byte(step.body), statusCode: status}, nil
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{
		{status: 500},
		{status: 503},
		{status: 200, body: `{"ok":true}`},
	}}
	client := NewClient("", mock)

	body, err := client.Execute(context.Background(), RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{MaxAttempts: 3})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if mock.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", mock.calls)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{{status: 502, body: "bad gateway"}}}
	client := NewClient("", mock)

	_, err := client.Execute(context.Background(), RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{MaxAttempts: 4})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if mock.calls != 4 {
		t.Errorf("expected exactly 4 attempts, got %d", mock.calls)
	}
}

func TestExecuteDoesNotRetryRejections(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{{status: 429, body: "slow down"}}}
	client := NewClient("", mock)

	_, err := client.Execute(context.Background(), RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{MaxAttempts: 5})
	if !errors.Is(err, ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected *RejectedError, got %T", err)
	}
	if rejected.Status != 429 {
		t.Errorf("expected status 429, got %d", rejected.Status)
	}
	if mock.calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", mock.calls)
	}
}

func TestExecuteRetriesNetworkErrors(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{
		{err: fmt.Errorf("connection reset")},
		{status: 200, body: "{}"},
	}}
	client := NewClient("", mock)

	_, err := client.Execute(context.Background(), RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{MaxAttempts: 2})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", mock.calls)
	}
}

func TestExecuteNormalizesZeroPolicy(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{{status: 500}}}
	client := NewClient("", mock)

	_, err := client.Execute(context.Background(), RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("expected a single attempt for a zero policy, got %d", mock.calls)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	mock := &scriptedClient{t: t, script: []scriptedResponse{{err: context.Canceled}}}
	client := NewClient("", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Execute(ctx, RequestSpec{URL: "http://example.test"}, domain.RetryPolicy{MaxAttempts: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 attempt before bailing, got %d", mock.calls)
	}
}

func TestFetchTargetsConfiguredEndpoint(t *testing.T) {
	mock := &scriptedClient{
		t:         t,
		expectURL: "http://upstream.test/check?location=Shanghai&mt=regular&pl=true&search=iPhone+17+Pro",
		script:    []scriptedResponse{{status: 200, body: "{}"}},
	}
	client := NewClient("http://upstream.test/check", mock)

	_, err := client.Fetch(context.Background(), domain.Query{
		Location:   "Shanghai",
		SearchTerm: "iPhone 17 Pro",
	}, domain.RetryPolicy{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
}
