// Package probe issues single HTTP calls against the camera server and
// records their classified outcomes.
package probe

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"camstress/internal/classify"
	"camstress/internal/core"
)

const (
	// maxBodySize bounds how much of a response body is kept for
	// classification. The rest is drained so the connection can be reused.
	maxBodySize = 1 << 20

	dialTimeout     = 5 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
)

// Request describes one call against the server.
type Request struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
}

// Client performs requests with a fixed per-request deadline.
// It holds no mutable state and may be shared by every worker.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
	Debug   *DebugLogger
	Clock   core.Clock
}

// NewClient builds a Client with a pooled transport sized for bursts of
// concurrent workers.
func NewClient(baseURL string, timeout time.Duration, maxConns int) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAlive,
		}).DialContext,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		IdleConnTimeout:     idleConnTimeout,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Transport: transport, Timeout: timeout},
		Timeout: timeout,
		Clock:   core.RealClock{},
	}
}

// WithTimeout returns a copy of c that uses a different deadline and the
// same connection pool.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *c
	clone.Timeout = timeout
	if c.HTTP != nil {
		httpClient := *c.HTTP
		httpClient.Timeout = timeout
		clone.HTTP = &httpClient
	}
	return &clone
}

// Do performs req and reports what happened. It never returns an error:
// transport problems are carried in Attempt.Err for the classifier.
func (c *Client) Do(ctx context.Context, name string, req Request) classify.Attempt {
	clock := c.Clock
	if clock == nil {
		clock = core.RealClock{}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	start := clock.Now()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.BaseURL+req.Path, body)
	if err != nil {
		return c.failed(name, err, clock.Since(start))
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	c.Debug.LogRequest(name, httpReq, req.Body)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return c.failed(name, err, clock.Since(start))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err == nil {
		_, err = io.Copy(io.Discard, resp.Body)
	}
	elapsed := clock.Since(start)
	if err != nil {
		return c.failed(name, err, elapsed)
	}

	attempt := classify.Attempt{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
		Elapsed:     elapsed,
	}
	c.Debug.LogResponse(name, attempt)
	return attempt
}

func (c *Client) failed(name string, err error, elapsed time.Duration) classify.Attempt {
	c.Debug.LogError(name, err, elapsed)
	return classify.Attempt{Err: err, Elapsed: elapsed}
}
