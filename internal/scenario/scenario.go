// Package scenario drives the staged stress run against a camera server and
// checks that the video stream survives each stage.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gregwebs/go-recovery"
	"github.com/rs/zerolog"

	"camstress/internal/classify"
	"camstress/internal/collector"
	"camstress/internal/config"
	"camstress/internal/coordinator"
	"camstress/internal/core"
	"camstress/internal/liveness"
	"camstress/internal/probe"
)

var (
	ErrPreflight    = errors.New("preflight health check failed")
	ErrStageCrashed = errors.New("stage crashed")
)

// teardownTimeout bounds the cleanup performed after the stages.
const teardownTimeout = 30 * time.Second

// Printer receives the human-readable stage lines.
type Printer interface {
	Print(message string)
}

type writerPrinter struct{ w io.Writer }

func (p writerPrinter) Print(message string) { fmt.Fprintln(p.w, message) }

// PrintTo adapts an io.Writer to a Printer.
func PrintTo(w io.Writer) Printer { return writerPrinter{w} }

// Options carries the collaborators of an Orchestrator. All are optional.
type Options struct {
	Logger zerolog.Logger
	// Printer receives stage lines; nil discards them.
	Printer Printer
	// Aggregator collects the run's statistics; nil creates a fresh one.
	Aggregator *collector.Aggregator
	// Recorder receives every outcome in addition to the Aggregator.
	Recorder core.Recorder
	// Debug logs every request and response.
	Debug *probe.DebugLogger
}

// Orchestrator runs the stages of one scenario. It owns the run's
// Aggregator; a fresh run needs a fresh Orchestrator.
type Orchestrator struct {
	cfg       *config.Config
	agg       *collector.Aggregator
	probes    *probe.Set
	preflight *probe.Set
	oracle    *liveness.Oracle
	coord     *coordinator.Coordinator
	printer   Printer
	log       zerolog.Logger
}

// New wires the probes, oracle and burst coordinator for cfg.
func New(cfg *config.Config, opts Options) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	agg := opts.Aggregator
	if agg == nil {
		agg = collector.NewAggregator()
	}
	rec := core.Recorders(agg, opts.Recorder)
	classifier := classify.New(classify.Options{StrictBusy: cfg.StrictBusy})

	client := probe.NewClient(cfg.BaseURL, cfg.Timeout, cfg.Stages.MaxWorkers())
	client.Debug = opts.Debug

	probes, err := probe.NewSet(client, rec, classifier, cfg.ConfigPayload)
	if err != nil {
		return nil, fmt.Errorf("building probes: %w", err)
	}
	preflight, err := probe.NewSet(client.WithTimeout(cfg.LivenessTimeout), core.NullRecorder, classifier, cfg.ConfigPayload)
	if err != nil {
		return nil, fmt.Errorf("building preflight probe: %w", err)
	}

	printer := opts.Printer
	if printer == nil {
		printer = PrintTo(io.Discard)
	}

	return &Orchestrator{
		cfg:       cfg,
		agg:       agg,
		probes:    probes,
		preflight: preflight,
		oracle:    liveness.NewOracle(client, cfg.LivenessTimeout, opts.Logger),
		coord:     coordinator.NewCoordinator(rec, opts.Logger),
		printer:   printer,
		log:       opts.Logger,
	}, nil
}

// Aggregator returns the run's statistics.
func (o *Orchestrator) Aggregator() *collector.Aggregator {
	return o.agg
}

// Run executes preflight, the stages and teardown. The returned report is
// always non-nil.
//
// Only a failed preflight or a crashed stage produce an error. Cancelling
// ctx stops the stages early; teardown still runs and the report is marked
// interrupted. Cancelling during preflight skips the stages and teardown.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	o.printer.Print(heading("camera server stress test: " + o.cfg.BaseURL))

	if err := o.checkHealth(ctx); err != nil {
		report.finish(o.agg.Summary(), o.cfg.Thresholds)
		report.Passed = false
		if ctx.Err() != nil {
			report.Interrupted = true
			o.printer.Print(warned("run interrupted before the health check finished"))
			return report, nil
		}
		o.printer.Print(failed(err.Error()))
		return report, err
	}
	o.printer.Print(passed("server reachable"))

	var stageErr error
	panicErr := recovery.Call(func() error {
		stageErr = o.runStages(ctx, report)
		return nil
	})

	o.teardown(ctx, report)

	var err error
	switch {
	case panicErr != nil:
		o.log.Error().Err(panicErr).Msg("stage crashed")
		o.printer.Print(failed("stage crashed: " + panicErr.Error()))
		report.Crashed = true
		err = fmt.Errorf("%w: %v", ErrStageCrashed, panicErr)
	case stageErr != nil && ctx.Err() != nil:
		report.Interrupted = true
		o.printer.Print(warned("run interrupted, statistics are partial"))
	case stageErr != nil:
		report.Crashed = true
		err = fmt.Errorf("%w: %v", ErrStageCrashed, stageErr)
	}

	report.finish(o.agg.Summary(), o.cfg.Thresholds)
	o.printVerdict(report)
	return report, err
}

func (o *Orchestrator) checkHealth(ctx context.Context) error {
	outcome := o.preflight.Attempt(ctx, probe.NameHealth)
	switch outcome.Kind {
	case core.KindSuccess:
		return nil
	case core.KindTimeout:
		return fmt.Errorf("%w: no answer within %v", ErrPreflight, o.cfg.LivenessTimeout)
	default:
		return fmt.Errorf("%w: %s", ErrPreflight, outcome.Tag)
	}
}

func (o *Orchestrator) runStages(ctx context.Context, report *Report) error {
	o.printer.Print(heading("starting stream"))
	o.probes.StreamStart()(context.WithoutCancel(ctx))
	if !pause(ctx, o.cfg.StreamSettle) {
		return ctx.Err()
	}
	report.StreamStarted = o.oracle.IsStreamAlive(ctx)
	if report.StreamStarted {
		o.printer.Print(passed("stream is live"))
	} else {
		o.printer.Print(warned("stream is not live, continuing anyway"))
	}

	for i, s := range plan(o.cfg, o.probes) {
		if i > 0 && !pause(ctx, o.cfg.StageDelay) {
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		sr, err := o.runStage(ctx, s)
		report.Stages = append(report.Stages, sr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, s stage) (StageReport, error) {
	o.printer.Print(heading(fmt.Sprintf("%s: %d requests, %d workers", s.name, s.size.Requests, s.size.Workers)))

	var before bool
	if s.watch {
		before = o.oracle.IsStreamAlive(ctx)
		o.printer.Print("  stream before: " + aliveWord(before))
	}

	res, err := o.coord.RunBurst(ctx, coordinator.Descriptor{
		Label:    s.name,
		Probe:    s.probe,
		Pick:     s.pick,
		Requests: s.size.Requests,
		Workers:  s.size.Workers,
		RPS:      s.size.RPS,
	})
	sr := StageReport{
		Name:       s.name,
		Requests:   res.Requests,
		Dispatched: res.Dispatched,
		Succeeded:  res.Succeeded,
		Workers:    res.Workers,
		Elapsed:    res.Elapsed,
	}
	if err != nil {
		return sr, err
	}

	line := fmt.Sprintf("done in %s, acceptable %d/%d", collector.FormatDuration(res.Elapsed), res.Succeeded, res.Requests)
	if res.Succeeded == res.Requests {
		o.printer.Print("  " + passed(line))
	} else {
		o.printer.Print("  " + warned(line))
	}
	if !res.Complete() {
		return sr, ctx.Err()
	}

	if !s.watch {
		return sr, nil
	}
	if !pause(ctx, s.size.Settle) {
		return sr, ctx.Err()
	}
	after := o.oracle.IsStreamAlive(ctx)
	o.printer.Print("  stream after: " + aliveWord(after))

	sr.Liveness = &Liveness{Before: before, After: after, Verdict: Transition(before, after)}
	switch sr.Liveness.Verdict {
	case Pass:
		o.printer.Print("  " + passed("stream stayed live"))
	case Regression:
		o.log.Warn().Str("stage", s.name).Msg("stream dropped under load")
		o.printer.Print("  " + failed("STREAM DROPPED during "+s.name))
	default:
		o.printer.Print("  " + warned("stream was not live before the stage, result inconclusive"))
	}
	return sr, nil
}

// teardown runs with a context detached from ctx so an interrupt cannot
// skip it.
func (o *Orchestrator) teardown(ctx context.Context, report *Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	o.printer.Print(heading("final stream check"))
	report.StreamAliveAtEnd = o.oracle.IsStreamAlive(ctx)
	if report.StreamAliveAtEnd {
		o.printer.Print(passed("stream is live"))
	} else {
		o.printer.Print(warned("stream is not live"))
	}

	if !o.probes.StreamStop()(ctx) {
		o.log.Warn().Msg("stopping the stream failed")
	}
}

func (o *Orchestrator) printVerdict(r *Report) {
	for _, v := range r.Thresholds.Violations() {
		o.printer.Print(failed(fmt.Sprintf("threshold %s: limit %s, actual %s", v.Name, v.Threshold, v.Actual)))
	}
	switch {
	case r.Passed && r.Interrupted:
		o.printer.Print(warned("interrupted before all stages ran"))
	case r.Passed:
		o.printer.Print(passed("all stages passed"))
	default:
		o.printer.Print(failed("stress test FAILED"))
	}
}

// pause sleeps for d, returning false if ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func aliveWord(alive bool) string {
	if alive {
		return "live"
	}
	return "NOT live"
}
