package collector

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// FormatText writes the consolidated run summary in human-readable form.
func FormatText(w io.Writer, s Summary, thresholds *ThresholdResults) {
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "camstress - Test Summary")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Duration:       %v\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Requests: %d\n", s.Total)
	fmt.Fprintf(w, "Successful:     %d (%.1f%%)\n", s.Success, percent(s.Success, s.Total))
	fmt.Fprintf(w, "Failed:         %d (%.1f%%)\n", s.Failure, percent(s.Failure, s.Total))
	fmt.Fprintf(w, "Timeouts:       %d (%.1f%%)\n", s.Timeout, percent(s.Timeout, s.Total))

	if len(s.Latencies) > 0 {
		lat := s.Latency()
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Response Times:")
		fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(lat.Min))
		fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(lat.Avg))
		fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(lat.P50))
		fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(lat.P95))
		fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(lat.P99))
		fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(lat.Max))
	}

	if tags := s.Tags(); len(tags) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Failure Tags:")
		for _, tc := range tags {
			fmt.Fprintf(w, "  %-20s %d\n", tc.Tag, tc.Count)
		}
	}

	if names := s.ProbeNames(); len(names) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "By Probe:")
		for _, name := range names {
			ps := s.Probes[name]
			lat := ComputeDurationStats(ps.Latencies)
			fmt.Fprintf(w, "  %-14s %4d reqs  ok=%-4d fail=%-4d timeout=%-4d avg=%s  p95=%s\n",
				name, ps.Total, ps.Success, ps.Failure, ps.Timeout,
				FormatDuration(lat.Avg), FormatDuration(lat.P95))
		}
	}

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s <= %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
	fmt.Fprintln(w, rule)
}

// FormatJSON writes the summary as indented JSON.
func FormatJSON(w io.Writer, s Summary, thresholds *ThresholdResults) error {
	output := struct {
		Duration    string                      `json:"duration"`
		Total       uint64                      `json:"total"`
		Success     uint64                      `json:"success"`
		Failure     uint64                      `json:"failure"`
		Timeout     uint64                      `json:"timeout"`
		SuccessRate float64                     `json:"successRate"`
		Latency     jsonDurationStats           `json:"latency"`
		ErrorTags   []TagCount                  `json:"errorTags"`
		Probes      map[string]jsonProbeSummary `json:"probes"`
		Thresholds  *ThresholdResults           `json:"thresholds,omitempty"`
	}{
		Duration:    s.Elapsed.Round(time.Millisecond).String(),
		Total:       s.Total,
		Success:     s.Success,
		Failure:     s.Failure,
		Timeout:     s.Timeout,
		SuccessRate: s.SuccessRate(),
		Latency:     toJSONDurationStats(s.Latency()),
		ErrorTags:   s.Tags(),
		Probes:      make(map[string]jsonProbeSummary, len(s.Probes)),
		Thresholds:  thresholds,
	}

	for name, ps := range s.Probes {
		output.Probes[name] = jsonProbeSummary{
			Total:   ps.Total,
			Success: ps.Success,
			Failure: ps.Failure,
			Timeout: ps.Timeout,
			Latency: toJSONDurationStats(ComputeDurationStats(ps.Latencies)),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonDurationStats struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonProbeSummary struct {
	Total   uint64            `json:"total"`
	Success uint64            `json:"success"`
	Failure uint64            `json:"failure"`
	Timeout uint64            `json:"timeout"`
	Latency jsonDurationStats `json:"latency"`
}

func toJSONDurationStats(d DurationStats) jsonDurationStats {
	return jsonDurationStats{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}
