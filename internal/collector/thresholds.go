package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Thresholds defines optional pass/fail criteria for a run.
type Thresholds struct {
	MaxFailureRate string             `yaml:"maxFailureRate"`
	Latency        *LatencyThresholds `yaml:"latency"`
}

// LatencyThresholds bounds successful-request latency. Zero disables a bound.
type LatencyThresholds struct {
	Avg time.Duration `yaml:"avg"`
	P95 time.Duration `yaml:"p95"`
	P99 time.Duration `yaml:"p99"`
	Max time.Duration `yaml:"max"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Validate checks that the configured failure rate parses.
func (t *Thresholds) Validate() error {
	if t == nil || t.MaxFailureRate == "" {
		return nil
	}
	if _, err := parsePercentage(t.MaxFailureRate); err != nil {
		return fmt.Errorf("thresholds.maxFailureRate: %w", err)
	}
	return nil
}

// Check evaluates the thresholds against a summary. A nil receiver passes.
func (t *Thresholds) Check(s Summary) *ThresholdResults {
	results := &ThresholdResults{Passed: true, Results: make([]ThresholdResult, 0)}
	if t == nil {
		return results
	}

	if t.Latency != nil {
		results.checkLatency(t.Latency, s.Latency())
	}
	if t.MaxFailureRate != "" {
		results.checkFailureRate(t.MaxFailureRate, s)
	}
	return results
}

func (r *ThresholdResults) checkLatency(limits *LatencyThresholds, actual DurationStats) {
	checks := []struct {
		name      string
		threshold time.Duration
		actual    time.Duration
	}{
		{"latency.avg", limits.Avg, actual.Avg},
		{"latency.p95", limits.P95, actual.P95},
		{"latency.p99", limits.P99, actual.P99},
		{"latency.max", limits.Max, actual.Max},
	}

	for _, check := range checks {
		if check.threshold == 0 {
			continue
		}
		passed := check.actual < check.threshold
		r.add(ThresholdResult{
			Name:      check.name,
			Passed:    passed,
			Threshold: FormatDuration(check.threshold),
			Actual:    FormatDuration(check.actual),
		})
	}
}

// checkFailureRate counts timeouts as failures. The bound is inclusive so
// that "0%" means "no failures allowed".
func (r *ThresholdResults) checkFailureRate(limit string, s Summary) {
	thresholdRate, err := parsePercentage(limit)
	if err != nil {
		r.add(ThresholdResult{Name: "failure.rate", Passed: false, Threshold: limit, Actual: err.Error()})
		return
	}

	actual := s.FailureRate()
	r.add(ThresholdResult{
		Name:      "failure.rate",
		Passed:    actual <= thresholdRate,
		Threshold: limit,
		Actual:    fmt.Sprintf("%.2f%%", actual),
	})
}

func (r *ThresholdResults) add(result ThresholdResult) {
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	if r == nil {
		return violations
	}
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}

func parsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}
