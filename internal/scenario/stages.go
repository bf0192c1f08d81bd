package scenario

import (
	"camstress/internal/config"
	"camstress/internal/probe"
)

// Stage names, in execution order.
const (
	StageLightReads   = "light-reads"
	StageMixedReads   = "mixed-reads"
	StageConfigWrites = "config-writes"
	StageCapture      = "capture-under-load"
	StageFullCapture  = "full-capture-under-load"
	StageExtremeMix   = "extreme-mixed-load"
)

// MixedReads picks the probe for request i of the mixed-reads stage:
// status, health and config-get in turn.
func MixedReads(i int) string {
	switch i % 3 {
	case 0:
		return probe.NameStatus
	case 1:
		return probe.NameHealth
	default:
		return probe.NameConfigGet
	}
}

// ExtremeMix picks the probe for request i of the extreme-mixed-load stage.
// Every fifth request captures, and the remainder is spread over config
// reads, config writes and status queries.
func ExtremeMix(i int) string {
	switch {
	case i%5 == 0:
		return probe.NameQuickPhoto
	case i%4 == 0:
		return probe.NameConfigGet
	case i%3 == 0:
		return probe.NameConfigPost
	default:
		return probe.NameStatus
	}
}

type stage struct {
	name  string
	size  config.Stage
	probe probe.Func
	pick  func(i int) probe.Func
	// watch samples stream liveness around the burst.
	watch bool
}

// picker maps a name-selecting function onto a probe set.
func picker(set *probe.Set, choose func(int) string) func(int) probe.Func {
	probes := make(map[string]probe.Func)
	for _, name := range set.Names() {
		fn, _ := set.Lookup(name)
		probes[name] = fn
	}
	return func(i int) probe.Func {
		return probes[choose(i)]
	}
}

func plan(cfg *config.Config, set *probe.Set) []stage {
	s := cfg.Stages
	return []stage{
		{name: StageLightReads, size: s.LightReads, probe: set.Status()},
		{name: StageMixedReads, size: s.MixedReads, pick: picker(set, MixedReads)},
		{name: StageConfigWrites, size: s.ConfigWrites, probe: set.ConfigPost()},
		{name: StageCapture, size: s.Capture, probe: set.QuickPhoto(), watch: true},
		{name: StageFullCapture, size: s.FullCapture, probe: set.FullPhoto(), watch: true},
		{name: StageExtremeMix, size: s.ExtremeMix, pick: picker(set, ExtremeMix), watch: true},
	}
}
