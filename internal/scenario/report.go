package scenario

import (
	"bytes"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"camstress/internal/collector"
)

// Liveness records the stream samples taken around a stage.
type Liveness struct {
	Before  bool    `json:"before"`
	After   bool    `json:"after"`
	Verdict Verdict `json:"verdict"`
}

// StageReport describes one completed (or interrupted) stage.
type StageReport struct {
	Name       string        `json:"name"`
	Requests   int           `json:"requests"`
	Dispatched int           `json:"dispatched"`
	Succeeded  int           `json:"succeeded"`
	Workers    int           `json:"workers"`
	Elapsed    time.Duration `json:"-"`
	Liveness   *Liveness     `json:"liveness,omitempty"`
}

// Report is the outcome of a scenario run.
type Report struct {
	Stages           []StageReport
	StreamStarted    bool
	StreamAliveAtEnd bool
	Summary          collector.Summary
	Thresholds       *collector.ThresholdResults
	Interrupted      bool
	Crashed          bool
	Passed           bool
}

// Regressions returns the stages where a live stream went down.
func (r *Report) Regressions() []StageReport {
	var out []StageReport
	for _, s := range r.Stages {
		if s.Liveness != nil && s.Liveness.Verdict == Regression {
			out = append(out, s)
		}
	}
	return out
}

// Stage returns the report of the named stage.
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

func (r *Report) finish(s collector.Summary, t *collector.Thresholds) {
	r.Summary = s
	if t != nil {
		r.Thresholds = t.Check(s)
	}
	r.Passed = !r.Crashed && len(r.Regressions()) == 0 &&
		(r.Thresholds == nil || r.Thresholds.Passed)
}

// WriteJSON writes the stage reports together with the aggregated summary.
func WriteJSON(w io.Writer, r *Report) error {
	var summary bytes.Buffer
	if err := collector.FormatJSON(&summary, r.Summary, r.Thresholds); err != nil {
		return err
	}

	output := struct {
		Passed           bool            `json:"passed"`
		Interrupted      bool            `json:"interrupted"`
		Crashed          bool            `json:"crashed"`
		StreamStarted    bool            `json:"streamStarted"`
		StreamAliveAtEnd bool            `json:"streamAliveAtEnd"`
		Stages           []jsonStage     `json:"stages"`
		Summary          json.RawMessage `json:"summary"`
	}{
		Passed:           r.Passed,
		Interrupted:      r.Interrupted,
		Crashed:          r.Crashed,
		StreamStarted:    r.StreamStarted,
		StreamAliveAtEnd: r.StreamAliveAtEnd,
		Stages:           make([]jsonStage, 0, len(r.Stages)),
		Summary:          json.RawMessage(bytes.TrimSpace(summary.Bytes())),
	}
	for _, s := range r.Stages {
		output.Stages = append(output.Stages, jsonStage{
			StageReport: s,
			Duration:    s.Elapsed.Round(time.Millisecond).String(),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

type jsonStage struct {
	StageReport
	Duration string `json:"duration"`
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func heading(s string) string { return headingStyle.Render("▶ " + s) }
func passed(s string) string  { return passStyle.Render("✓ " + s) }
func warned(s string) string  { return warnStyle.Render("⚠ " + s) }
func failed(s string) string  { return failStyle.Render("✗ " + s) }
