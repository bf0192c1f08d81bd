package core

import (
	"sync"
	"testing"
	"time"
)

type sliceRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (s *sliceRecorder) Record(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

func TestOutcomeConstructors(t *testing.T) {
	ok := Success("status", 20*time.Millisecond)
	if ok.Kind != KindSuccess || ok.Latency != 20*time.Millisecond || ok.Tag != "" {
		t.Errorf("unexpected success outcome: %+v", ok)
	}
	if !ok.Acceptable() {
		t.Error("success should be acceptable")
	}

	to := Timeout("status")
	if to.Kind != KindTimeout || to.Tag != "" || to.Acceptable() {
		t.Errorf("unexpected timeout outcome: %+v", to)
	}

	fail := Failure("status", "HTTP 500")
	if fail.Kind != KindFailure || fail.Tag != "HTTP 500" || fail.Acceptable() {
		t.Errorf("unexpected failure outcome: %+v", fail)
	}
}

func TestKind_ZeroValueIsNotSuccess(t *testing.T) {
	var o Outcome
	if o.Acceptable() {
		t.Error("zero Outcome must not count as success")
	}
	if o.Kind.String() != "unknown" {
		t.Errorf("expected unknown, got %s", o.Kind)
	}
}

func TestRecorders_FansOutAndSkipsNil(t *testing.T) {
	a, b := &sliceRecorder{}, &sliceRecorder{}
	rec := Recorders(a, nil, b)

	rec.Record(Success("health", time.Millisecond))
	rec.Record(Timeout("health"))

	if len(a.outcomes) != 2 || len(b.outcomes) != 2 {
		t.Errorf("expected both recorders to see 2 outcomes, got %d and %d", len(a.outcomes), len(b.outcomes))
	}
}

func TestRecorders_SingleIsUnwrapped(t *testing.T) {
	a := &sliceRecorder{}
	if rec := Recorders(nil, a); rec != Recorder(a) {
		t.Errorf("expected the single recorder to be returned as is, got %T", rec)
	}
}

func TestNullRecorder(t *testing.T) {
	NullRecorder.Record(Failure("x", "y"))
}

func TestSyncBuffer_Lines(t *testing.T) {
	var buf SyncBuffer
	buf.Write([]byte("first\n\nsecond\n"))
	buf.Write([]byte("third"))

	lines := buf.Lines()
	if len(lines) != 3 || lines[0] != "first" || lines[2] != "third" {
		t.Errorf("unexpected lines %q", lines)
	}
}
