// Package classify maps completed HTTP attempts to outcomes.
//
// Classification is pure: the caller performs the request and hands the
// already-read response (or transport error) to Classify.
package classify

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"camstress/internal/core"
)

// Policy selects the endpoint-specific success rule.
type Policy int

const (
	// Default accepts only HTTP 200.
	Default Policy = iota
	// Health requires 200 and a JSON body with status "ok".
	Health
	// Status requires 200 and a JSON body with camera and server sections.
	Status
	// ConfigRead requires 200 and a JSON body with width, height and fps.
	ConfigRead
	// Capture requires 200 with an image/jpeg body, and tolerates 429 as busy.
	Capture
)

var policyNames = map[Policy]string{
	Default:    "default",
	Health:     "health",
	Status:     "status",
	ConfigRead: "config-read",
	Capture:    "capture",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Attempt is one finished request as seen by the client.
// Err is set when no usable response arrived.
type Attempt struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
	Err         error
}

// Options tune classification.
type Options struct {
	// StrictBusy turns the capture endpoints' 429 tolerance off.
	StrictBusy bool
}

// Classifier applies a Policy to an Attempt.
type Classifier struct {
	opts Options
}

func New(opts Options) Classifier {
	return Classifier{opts: opts}
}

// Classify produces exactly one outcome for the attempt.
func (c Classifier) Classify(probe string, policy Policy, a Attempt) core.Outcome {
	if a.Err != nil {
		if IsTimeout(a.Err) {
			return core.Timeout(probe)
		}
		return core.Failure(probe, Category(a.Err))
	}

	if c.accepts(policy, a) {
		return core.Success(probe, a.Elapsed)
	}
	return core.Failure(probe, StatusTag(a.StatusCode))
}

func (c Classifier) accepts(policy Policy, a Attempt) bool {
	switch policy {
	case Capture:
		if a.StatusCode == http.StatusTooManyRequests {
			return !c.opts.StrictBusy
		}
		return a.StatusCode == http.StatusOK && isJPEG(a.ContentType)
	case Health:
		return a.StatusCode == http.StatusOK && gjson.GetBytes(a.Body, "status").String() == "ok"
	case Status:
		return a.StatusCode == http.StatusOK && hasObjects(a.Body, "camera", "server")
	case ConfigRead:
		return a.StatusCode == http.StatusOK && hasFields(a.Body, "width", "height", "fps")
	default:
		return a.StatusCode == http.StatusOK
	}
}

// StatusTag is the failure tag for an unexpected HTTP status.
func StatusTag(code int) string {
	return fmt.Sprintf("HTTP %d", code)
}

func isJPEG(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "image/jpeg")
}

func hasObjects(body []byte, keys ...string) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	for _, k := range keys {
		if !gjson.GetBytes(body, k).IsObject() {
			return false
		}
	}
	return true
}

func hasFields(body []byte, keys ...string) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	for _, k := range keys {
		if !gjson.GetBytes(body, k).Exists() {
			return false
		}
	}
	return true
}
