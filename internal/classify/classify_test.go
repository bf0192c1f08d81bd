package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camstress/internal/core"
)

const statusBody = `{"camera":{"isStreaming":true,"streamResolution":"1280x720","targetFps":30,"jpegQuality":80,"focusMode":"auto"},"server":{"uptime":12}}`

func TestClassify_CaptureToleratesBusy(t *testing.T) {
	c := New(Options{})

	o := c.Classify("quick-photo", Capture, Attempt{StatusCode: 429, Elapsed: 40 * time.Millisecond})
	assert.Equal(t, core.KindSuccess, o.Kind)
	assert.Equal(t, 40*time.Millisecond, o.Latency)

	o = c.Classify("full-photo", Capture, Attempt{StatusCode: 200, ContentType: "image/jpeg", Elapsed: time.Second})
	assert.Equal(t, core.KindSuccess, o.Kind)
	assert.Equal(t, time.Second, o.Latency)
}

func TestClassify_CaptureStrictBusy(t *testing.T) {
	c := New(Options{StrictBusy: true})

	o := c.Classify("quick-photo", Capture, Attempt{StatusCode: 429})
	assert.Equal(t, core.KindFailure, o.Kind)
	assert.Equal(t, "HTTP 429", o.Tag)
}

func TestClassify_CaptureRequiresJPEG(t *testing.T) {
	c := New(Options{})

	cases := []struct {
		name        string
		contentType string
		want        core.Kind
	}{
		{"exact", "image/jpeg", core.KindSuccess},
		{"with params", "image/jpeg; charset=binary", core.KindSuccess},
		{"upper case", "IMAGE/JPEG", core.KindSuccess},
		{"json", "application/json", core.KindFailure},
		{"missing", "", core.KindFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := c.Classify("quick-photo", Capture, Attempt{StatusCode: 200, ContentType: tc.contentType})
			assert.Equal(t, tc.want, o.Kind)
			if tc.want == core.KindFailure {
				assert.Equal(t, "HTTP 200", o.Tag)
			}
		})
	}
}

func TestClassify_NonCaptureNon200IsTaggedFailure(t *testing.T) {
	c := New(Options{})
	policies := []Policy{Default, Health, Status, ConfigRead}

	for _, p := range policies {
		for _, code := range []int{201, 204, 400, 404, 429, 500, 503} {
			o := c.Classify("probe", p, Attempt{StatusCode: code, Body: []byte(statusBody)})
			assert.Equal(t, core.KindFailure, o.Kind, "%s/%d", p, code)
			assert.Equal(t, fmt.Sprintf("HTTP %d", code), o.Tag, "%s/%d", p, code)
		}
	}
}

func TestClassify_Status(t *testing.T) {
	c := New(Options{})

	o := c.Classify("status", Status, Attempt{StatusCode: 200, Body: []byte(statusBody)})
	assert.Equal(t, core.KindSuccess, o.Kind)

	o = c.Classify("status", Status, Attempt{StatusCode: 200, Body: []byte(`{"camera":{}}`)})
	assert.Equal(t, core.KindFailure, o.Kind)
	assert.Equal(t, "HTTP 200", o.Tag)

	o = c.Classify("status", Status, Attempt{StatusCode: 200, Body: []byte(`not json`)})
	assert.Equal(t, core.KindFailure, o.Kind)
}

func TestClassify_ConfigRead(t *testing.T) {
	c := New(Options{})

	o := c.Classify("config-get", ConfigRead, Attempt{StatusCode: 200, Body: []byte(`{"width":1280,"height":720,"fps":30}`)})
	assert.Equal(t, core.KindSuccess, o.Kind)

	o = c.Classify("config-get", ConfigRead, Attempt{StatusCode: 200, Body: []byte(`{"width":1280,"height":720}`)})
	assert.Equal(t, core.KindFailure, o.Kind)
}

func TestClassify_Health(t *testing.T) {
	c := New(Options{})

	o := c.Classify("health", Health, Attempt{StatusCode: 200, Body: []byte(`{"status":"ok"}`)})
	assert.Equal(t, core.KindSuccess, o.Kind)

	o = c.Classify("health", Health, Attempt{StatusCode: 200, Body: []byte(`{"status":"degraded"}`)})
	assert.Equal(t, core.KindFailure, o.Kind)
}

func TestClassify_DefaultIsIdempotent(t *testing.T) {
	c := New(Options{})
	a := Attempt{StatusCode: 200, Elapsed: 5 * time.Millisecond}

	first := c.Classify("config-post", Default, a)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, c.Classify("config-post", Default, a))
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_TransportTimeout(t *testing.T) {
	c := New(Options{})
	errs := []error{
		context.DeadlineExceeded,
		&url.Error{Op: "Get", URL: "http://x/status", Err: timeoutErr{}},
		fmt.Errorf("reading body: %w", context.DeadlineExceeded),
	}

	for _, err := range errs {
		o := c.Classify("status", Capture, Attempt{Err: err})
		assert.Equal(t, core.KindTimeout, o.Kind, "%v", err)
		assert.Empty(t, o.Tag)
	}
}

func TestCategory(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	reset := &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}}

	cases := []struct {
		err  error
		want string
	}{
		{refused, "ConnectionRefused"},
		{reset, "ConnectionReset"},
		{&url.Error{Op: "Get", URL: "http://x", Err: io.EOF}, "EOF"},
		{&url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Err: "no such host", Name: "x"}}, "DNSError"},
		{context.Canceled, "Canceled"},
		{errors.New("boom"), "RequestError"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Category(tc.err), "%v", tc.err)
	}
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "capture", Capture.String())
	assert.Equal(t, "policy(42)", Policy(42).String())
}
