// Package core defines the outcome types shared by every camstress component.
package core

import "time"

// Kind is the classified category of a single request attempt.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindTimeout
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTimeout:
		return "timeout"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the immutable result of classifying one attempt.
// Tag is only set for failures; Latency is only meaningful for successes.
type Outcome struct {
	Probe   string
	Kind    Kind
	Tag     string
	Latency time.Duration
}

func Success(probe string, latency time.Duration) Outcome {
	return Outcome{Probe: probe, Kind: KindSuccess, Latency: latency}
}

func Timeout(probe string) Outcome {
	return Outcome{Probe: probe, Kind: KindTimeout}
}

func Failure(probe, tag string) Outcome {
	return Outcome{Probe: probe, Kind: KindFailure, Tag: tag}
}

// Acceptable reports whether the attempt counts towards a burst's success tally.
func (o Outcome) Acceptable() bool {
	return o.Kind == KindSuccess
}

// Recorder consumes outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(Outcome)
}

// NullRecorder discards all outcomes.
var NullRecorder Recorder = nullRecorder{}

type nullRecorder struct{}

func (nullRecorder) Record(Outcome) {}

type multiRecorder []Recorder

func (m multiRecorder) Record(o Outcome) {
	for _, r := range m {
		r.Record(o)
	}
}

// Recorders fans each outcome out to every non-nil recorder, in order.
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
