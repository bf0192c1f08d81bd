package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"camstress/internal/collector"
	"camstress/internal/core"
)

func TestNewProgress(t *testing.T) {
	agg := collector.NewAggregator()

	progress := NewProgress(agg, false)

	if progress.source != agg {
		t.Error("source not assigned")
	}
	if progress.quiet {
		t.Error("quiet should be false")
	}
}

func TestNewProgress_Quiet(t *testing.T) {
	progress := NewProgress(collector.NewAggregator(), true)

	if !progress.quiet {
		t.Error("quiet should be true")
	}
}

func TestProgress_QuietMode(t *testing.T) {
	progress := NewProgress(collector.NewAggregator(), true)

	// Start and stop should not panic in quiet mode
	progress.Start()
	time.Sleep(10 * time.Millisecond)
	progress.Stop()
}

func TestProgress_DoubleStop(t *testing.T) {
	progress := NewProgress(collector.NewAggregator(), false)
	progress.SetOutput(&bytes.Buffer{})
	progress.Start()

	progress.Stop()
	progress.Stop()
}

func TestProgress_StopWithoutStart(t *testing.T) {
	progress := NewProgress(collector.NewAggregator(), false)
	progress.SetOutput(&bytes.Buffer{})

	progress.Stop()
}

func TestProgress_TicksWithLiveCounts(t *testing.T) {
	agg := collector.NewAggregator()
	agg.Record(core.Success("status", 5*time.Millisecond))
	agg.Record(core.Failure("status", "HTTP 500"))
	agg.Record(core.Timeout("status"))

	var out core.SyncBuffer
	progress := NewProgress(agg, false)
	progress.SetOutput(&out)
	progress.SetInterval(10 * time.Millisecond)

	progress.Start()
	time.Sleep(60 * time.Millisecond)
	progress.Stop()

	if !strings.Contains(out.String(), "Requests: 3 | OK: 1 | Failed: 1 | Timeouts: 1") {
		t.Errorf("expected live counts in output, got: %q", out.String())
	}
}

func TestLine(t *testing.T) {
	s := collector.Summary{Total: 50, Success: 45, Failure: 3, Timeout: 2}

	line := Line(s, 83*time.Second)

	expected := "[01:23] Requests: 50 | OK: 45 | Failed: 3 | Timeouts: 2 (90.0% ok)"
	if line != expected {
		t.Errorf("expected %q, got %q", expected, line)
	}
}

func TestLine_Empty(t *testing.T) {
	line := Line(collector.Summary{}, 0)

	if !strings.HasPrefix(line, "[00:00] Requests: 0") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(collector.NewAggregator(), false)
	progress.SetOutput(&buf)

	progress.Print("light-reads: 50/50 ok")

	output := buf.String()

	if !strings.Contains(output, "\033[K") {
		t.Error("expected output to contain line clear escape sequence")
	}
	if !strings.Contains(output, "light-reads: 50/50 ok\n") {
		t.Errorf("expected message ending with newline, got: %q", output)
	}
}

func TestProgress_Print_QuietModeDoesNotPrint(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(collector.NewAggregator(), true)
	progress.SetOutput(&buf)

	progress.Print("light-reads")

	if buf.String() != "" {
		t.Errorf("expected no output in quiet mode, got: %q", buf.String())
	}
}

func TestProgress_SetOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	progress := NewProgress(collector.NewAggregator(), false)

	progress.SetOutput(&buf1)
	progress.Print("message1")

	progress.SetOutput(&buf2)
	progress.Print("message2")

	if !strings.Contains(buf1.String(), "message1") {
		t.Error("expected message1 in buf1")
	}
	if !strings.Contains(buf2.String(), "message2") {
		t.Error("expected message2 in buf2")
	}
	if strings.Contains(buf1.String(), "message2") {
		t.Error("buf1 should not contain message2")
	}
}
