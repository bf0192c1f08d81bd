package liveness

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"camstress/internal/probe"
)

func newOracle(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Oracle {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewOracle(probe.NewClient(srv.URL, 10*time.Second, 4), timeout, zerolog.Nop())
}

func statusBody(streaming bool) string {
	return fmt.Sprintf(`{"camera":{"isStreaming":%t,"targetFps":30},"server":{"uptime":12}}`, streaming)
}

func TestIsStreamAlive(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"streaming", http.StatusOK, statusBody(true), true},
		{"stopped", http.StatusOK, statusBody(false), false},
		{"server error", http.StatusInternalServerError, statusBody(true), false},
		{"malformed json", http.StatusOK, `{"camera":{"isStreaming":tru`, false},
		{"missing camera", http.StatusOK, `{"server":{}}`, false},
		{"string flag", http.StatusOK, `{"camera":{"isStreaming":"true"}}`, false},
		{"empty body", http.StatusOK, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/status", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, time.Second)

			assert.Equal(t, tt.want, o.IsStreamAlive(context.Background()))
		})
	}
}

func TestIsStreamAlive_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := NewOracle(probe.NewClient(url, time.Second, 1), time.Second, zerolog.Nop())
	assert.False(t, o.IsStreamAlive(context.Background()))
}

func TestIsStreamAlive_UsesOwnDeadline(t *testing.T) {
	release := make(chan struct{})
	o := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		fmt.Fprint(w, statusBody(true))
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	assert.False(t, o.IsStreamAlive(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewOracle_DefaultTimeout(t *testing.T) {
	client := probe.NewClient("http://localhost:1", 10*time.Second, 1)
	o := NewOracle(client, 0, zerolog.Nop())

	assert.Equal(t, DefaultTimeout, o.client.Timeout)
	assert.Equal(t, 10*time.Second, client.Timeout, "base client must not be modified")
}
