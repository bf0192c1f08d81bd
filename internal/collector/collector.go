// Package collector aggregates request outcomes and renders run summaries.
package collector

import (
	"sync"
	"time"

	"camstress/internal/core"
)

// untaggedFailure tags failures recorded without a cause.
const untaggedFailure = "unclassified"

// Aggregator accumulates outcomes from concurrent probes.
// Every record and every snapshot runs under the same lock, so no caller
// can observe a half-applied outcome.
type Aggregator struct {
	mu        sync.Mutex
	total     uint64
	success   uint64
	failure   uint64
	timeout   uint64
	errorTags map[string]uint64
	latencies []time.Duration
	probes    map[string]*probeState
	clock     core.Clock
	startTime time.Time
}

type probeState struct {
	total, success, failure, timeout uint64
	latencies                        []time.Duration
}

// NewAggregator creates an empty Aggregator for one run.
func NewAggregator() *Aggregator {
	return NewAggregatorWithClock(core.RealClock{})
}

// NewAggregatorWithClock creates an Aggregator that measures run time with clock.
func NewAggregatorWithClock(clock core.Clock) *Aggregator {
	return &Aggregator{
		errorTags: make(map[string]uint64),
		probes:    make(map[string]*probeState),
		clock:     clock,
		startTime: clock.Now(),
	}
}

func (a *Aggregator) RecordSuccess(latency time.Duration) {
	a.Record(core.Success("", latency))
}

func (a *Aggregator) RecordFailure(tag string) {
	a.Record(core.Failure("", tag))
}

func (a *Aggregator) RecordTimeout() {
	a.Record(core.Timeout(""))
}

// Record applies one outcome. Safe for concurrent use.
func (a *Aggregator) Record(o core.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ps, ok := a.probes[o.Probe]
	if !ok {
		ps = &probeState{}
		a.probes[o.Probe] = ps
	}

	a.total++
	ps.total++
	switch o.Kind {
	case core.KindSuccess:
		a.success++
		ps.success++
		a.latencies = append(a.latencies, o.Latency)
		ps.latencies = append(ps.latencies, o.Latency)
	case core.KindTimeout:
		a.timeout++
		ps.timeout++
	default:
		tag := o.Tag
		if tag == "" {
			tag = untaggedFailure
		}
		a.failure++
		ps.failure++
		a.errorTags[tag]++
	}
}

// Summary returns a copy of the current state. The copy shares nothing with
// the Aggregator.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Total:     a.total,
		Success:   a.success,
		Failure:   a.failure,
		Timeout:   a.timeout,
		ErrorTags: make(map[string]uint64, len(a.errorTags)),
		Latencies: append([]time.Duration(nil), a.latencies...),
		Probes:    make(map[string]ProbeSummary, len(a.probes)),
		Elapsed:   a.clock.Since(a.startTime),
	}
	for tag, n := range a.errorTags {
		s.ErrorTags[tag] = n
	}
	for name, ps := range a.probes {
		if name == "" {
			continue
		}
		s.Probes[name] = ProbeSummary{
			Total:     ps.total,
			Success:   ps.success,
			Failure:   ps.failure,
			Timeout:   ps.timeout,
			Latencies: append([]time.Duration(nil), ps.latencies...),
		}
	}
	return s
}
