// Package coordinator runs bursts of probe invocations on a bounded pool of
// worker goroutines.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gregwebs/go-recovery"
	"github.com/rs/zerolog"

	"camstress/internal/core"
	"camstress/internal/probe"
	"camstress/internal/ratelimit"
)

// PanicTag is the failure tag recorded when a probe panics.
const PanicTag = "panic"

var ErrNoProbe = errors.New("burst has no probe")

// Descriptor configures one burst. Exactly one of Probe or Pick is used;
// Pick wins when both are set.
type Descriptor struct {
	Label    string
	Probe    probe.Func
	Pick     func(i int) probe.Func
	Requests int
	Workers  int
	// RPS caps dispatch rate; zero dispatches as fast as workers free up.
	RPS float64
}

func (d Descriptor) Validate() error {
	if d.Probe == nil && d.Pick == nil {
		return fmt.Errorf("%s: %w", d.Label, ErrNoProbe)
	}
	if d.Requests < 0 {
		return fmt.Errorf("%s: negative request count %d", d.Label, d.Requests)
	}
	return nil
}

func (d Descriptor) probeFor(i int) probe.Func {
	if d.Pick != nil {
		return d.Pick(i)
	}
	return d.Probe
}

// workerCount clamps Workers to [1, Requests].
func (d Descriptor) workerCount() int {
	w := d.Workers
	if w > d.Requests {
		w = d.Requests
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Result reports how a burst went. Succeeded is for display only.
type Result struct {
	Label      string
	Requests   int
	Dispatched int
	Succeeded  int
	Workers    int
	Elapsed    time.Duration
}

// Complete reports whether every requested invocation was dispatched.
func (r Result) Complete() bool {
	return r.Dispatched == r.Requests
}

// Coordinator executes bursts. It is safe to run bursts from several
// goroutines, though the scenario runs them one at a time.
type Coordinator struct {
	recorder core.Recorder
	clock    core.Clock
	log      zerolog.Logger
	active   atomic.Int32
}

// NewCoordinator creates a Coordinator. rec receives a failure outcome for
// every probe invocation that panics.
func NewCoordinator(rec core.Recorder, log zerolog.Logger) *Coordinator {
	if rec == nil {
		rec = core.NullRecorder
	}
	return &Coordinator{recorder: rec, clock: core.RealClock{}, log: log}
}

// ActiveWorkers returns the number of workers currently running.
func (c *Coordinator) ActiveWorkers() int {
	return int(c.active.Load())
}

// RunBurst dispatches d.Requests probe invocations across at most d.Workers
// workers and waits for all of them to finish.
//
// Cancelling ctx stops further dispatch, but invocations already handed to a
// worker run to completion under the probe's own deadline.
func (c *Coordinator) RunBurst(ctx context.Context, d Descriptor) (Result, error) {
	if err := d.Validate(); err != nil {
		return Result{}, err
	}

	result := Result{Label: d.Label, Requests: d.Requests}
	if d.Requests == 0 {
		return result, nil
	}

	workers := d.workerCount()
	result.Workers = workers
	limiter := ratelimit.NewRateLimiter(d.RPS, workers)
	probeCtx := context.WithoutCancel(ctx)

	start := c.clock.Now()
	jobs := make(chan int)
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		c.active.Add(1)
		go func() {
			defer func() {
				c.active.Add(-1)
				wg.Done()
			}()
			for i := range jobs {
				if c.invoke(probeCtx, d, i) {
					succeeded.Add(1)
				}
			}
		}()
	}

dispatch:
	for i := 0; i < d.Requests; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			result.Dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	result.Succeeded = int(succeeded.Load())
	result.Elapsed = c.clock.Since(start)

	if !result.Complete() {
		c.log.Warn().
			Str("burst", d.Label).
			Int("dispatched", result.Dispatched).
			Int("requests", d.Requests).
			Msg("burst interrupted before all requests were dispatched")
	}
	return result, nil
}

// invoke runs one probe, turning a panic into a recorded failure so that
// every dispatched index yields exactly one outcome.
func (c *Coordinator) invoke(ctx context.Context, d Descriptor, i int) bool {
	fn := d.probeFor(i)
	if fn == nil {
		c.recorder.Record(core.Failure(d.Label, "NoProbe"))
		return false
	}

	var ok bool
	err := recovery.Call(func() error {
		ok = fn(ctx)
		return nil
	})
	if err != nil {
		c.log.Error().Str("burst", d.Label).Int("index", i).Err(err).Msg("probe panicked")
		c.recorder.Record(core.Failure(d.Label, PanicTag))
		return false
	}
	return ok
}
