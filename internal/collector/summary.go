package collector

import (
	"sort"
	"time"
)

// Summary is a point-in-time snapshot of an Aggregator.
type Summary struct {
	Total     uint64
	Success   uint64
	Failure   uint64
	Timeout   uint64
	ErrorTags map[string]uint64
	Latencies []time.Duration
	Probes    map[string]ProbeSummary
	Elapsed   time.Duration
}

// ProbeSummary holds the counts for a single probe.
type ProbeSummary struct {
	Total     uint64
	Success   uint64
	Failure   uint64
	Timeout   uint64
	Latencies []time.Duration
}

// TagCount is one entry of the failure-tag histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count uint64 `json:"count"`
}

// Consistent reports whether every recorded attempt landed in exactly one bucket.
func (s Summary) Consistent() bool {
	return s.Total == s.Success+s.Failure+s.Timeout
}

// SuccessRate is the share of successful attempts in percent.
func (s Summary) SuccessRate() float64 {
	return percent(s.Success, s.Total)
}

// FailureRate is the share of failed or timed-out attempts in percent.
func (s Summary) FailureRate() float64 {
	return percent(s.Failure+s.Timeout, s.Total)
}

// Latency computes latency statistics over successful attempts.
func (s Summary) Latency() DurationStats {
	return ComputeDurationStats(s.Latencies)
}

// Tags returns the failure-tag histogram, most frequent first.
func (s Summary) Tags() []TagCount {
	tags := make([]TagCount, 0, len(s.ErrorTags))
	for tag, n := range s.ErrorTags {
		tags = append(tags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	return tags
}

// ProbeNames returns the probe names in lexical order.
func (s Summary) ProbeNames() []string {
	names := make([]string, 0, len(s.Probes))
	for name := range s.Probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
