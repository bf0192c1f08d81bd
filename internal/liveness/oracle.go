// Package liveness reports whether the camera server is currently streaming.
package liveness

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"camstress/internal/probe"
)

// DefaultTimeout is the deadline for a single liveness query.
const DefaultTimeout = 5 * time.Second

const streamingPath = "camera.isStreaming"

// Oracle queries the server-reported streaming state. Its checks are not
// recorded as load outcomes.
type Oracle struct {
	client *probe.Client
	log    zerolog.Logger
}

// NewOracle creates an Oracle that shares client's connection pool but uses
// its own deadline.
func NewOracle(client *probe.Client, timeout time.Duration, log zerolog.Logger) *Oracle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Oracle{client: client.WithTimeout(timeout), log: log}
}

// IsStreamAlive performs one status query. Any transport error, non-200
// response or unreadable body counts as not alive.
func (o *Oracle) IsStreamAlive(ctx context.Context) bool {
	a := o.client.Do(ctx, "liveness", probe.Request{Method: http.MethodGet, Path: "/status"})
	if a.Err != nil {
		o.log.Debug().Err(a.Err).Msg("liveness query failed")
		return false
	}
	if a.StatusCode != http.StatusOK {
		o.log.Debug().Int("status", a.StatusCode).Msg("liveness query rejected")
		return false
	}
	return Streaming(a.Body)
}

// Streaming reports whether a /status body says the camera is streaming.
func Streaming(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	v := gjson.GetBytes(body, streamingPath)
	return v.Type == gjson.True
}
