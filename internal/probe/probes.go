package probe

import (
	"context"
	"net/http"
	"sort"

	"github.com/goccy/go-json"

	"camstress/internal/classify"
	"camstress/internal/core"
)

// Probe names, used as outcome labels and on the command line.
const (
	NameHealth      = "health"
	NameStatus      = "status"
	NameConfigGet   = "config-get"
	NameConfigPost  = "config-post"
	NameStreamStart = "stream-start"
	NameStreamStop  = "stream-stop"
	NameQuickPhoto  = "quick-photo"
	NameFullPhoto   = "full-photo"
)

// Func performs one attempt and reports whether it counted as acceptable.
type Func func(ctx context.Context) bool

// ConfigPayload is the body sent by the config-write probe. Every write
// carries the same values, so repeated writes are idempotent.
type ConfigPayload struct {
	Width   int `json:"width" yaml:"width"`
	Height  int `json:"height" yaml:"height"`
	FPS     int `json:"fps" yaml:"fps"`
	Quality int `json:"quality" yaml:"quality"`
}

// DefaultConfigPayload is 720p at 30fps, JPEG quality 80.
func DefaultConfigPayload() ConfigPayload {
	return ConfigPayload{Width: 1280, Height: 720, FPS: 30, Quality: 80}
}

type endpoint struct {
	policy classify.Policy
	req    Request
}

// Set binds the endpoint probes to one client, recorder and classifier.
type Set struct {
	client     *Client
	recorder   core.Recorder
	classifier classify.Classifier
	endpoints  map[string]endpoint
}

// NewSet creates the probes for every endpoint of the camera server.
func NewSet(client *Client, rec core.Recorder, classifier classify.Classifier, payload ConfigPayload) (*Set, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = core.NullRecorder
	}

	return &Set{
		client:     client,
		recorder:   rec,
		classifier: classifier,
		endpoints: map[string]endpoint{
			NameHealth:      {classify.Health, Request{Method: http.MethodGet, Path: "/health"}},
			NameStatus:      {classify.Status, Request{Method: http.MethodGet, Path: "/status"}},
			NameConfigGet:   {classify.ConfigRead, Request{Method: http.MethodGet, Path: "/stream/config"}},
			NameConfigPost:  {classify.Default, Request{Method: http.MethodPost, Path: "/stream/config", Body: body, ContentType: "application/json"}},
			NameStreamStart: {classify.Default, Request{Method: http.MethodPost, Path: "/stream/start"}},
			NameStreamStop:  {classify.Default, Request{Method: http.MethodPost, Path: "/stream/stop"}},
			NameQuickPhoto:  {classify.Capture, Request{Method: http.MethodPost, Path: "/photo/quick"}},
			NameFullPhoto:   {classify.Capture, Request{Method: http.MethodPost, Path: "/photo"}},
		},
	}, nil
}

// Attempt performs one call to the named endpoint, records the outcome and
// returns it.
func (s *Set) Attempt(ctx context.Context, name string) core.Outcome {
	ep, ok := s.endpoints[name]
	if !ok {
		o := core.Failure(name, "UnknownProbe")
		s.recorder.Record(o)
		return o
	}
	a := s.client.Do(ctx, name, ep.req)
	o := s.classifier.Classify(name, ep.policy, a)
	s.recorder.Record(o)
	return o
}

func (s *Set) probe(name string) Func {
	return func(ctx context.Context) bool {
		return s.Attempt(ctx, name).Acceptable()
	}
}

func (s *Set) Health() Func      { return s.probe(NameHealth) }
func (s *Set) Status() Func      { return s.probe(NameStatus) }
func (s *Set) ConfigGet() Func   { return s.probe(NameConfigGet) }
func (s *Set) ConfigPost() Func  { return s.probe(NameConfigPost) }
func (s *Set) StreamStart() Func { return s.probe(NameStreamStart) }
func (s *Set) StreamStop() Func  { return s.probe(NameStreamStop) }
func (s *Set) QuickPhoto() Func  { return s.probe(NameQuickPhoto) }
func (s *Set) FullPhoto() Func   { return s.probe(NameFullPhoto) }

// Lookup returns the probe with the given name.
func (s *Set) Lookup(name string) (Func, bool) {
	if _, ok := s.endpoints[name]; !ok {
		return nil, false
	}
	return s.probe(name), true
}

// Names lists every probe name in lexical order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.endpoints))
	for name := range s.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
