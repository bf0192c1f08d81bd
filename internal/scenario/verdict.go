package scenario

import "fmt"

// Verdict classifies the stream state observed around a stage.
type Verdict int

const (
	Pass Verdict = iota + 1
	Regression
	Inconclusive
)

// Transition compares the liveness samples taken before and after a stage.
// A stream that was already down tells us nothing about the stage.
func Transition(before, after bool) Verdict {
	switch {
	case !before:
		return Inconclusive
	case after:
		return Pass
	default:
		return Regression
	}
}

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Regression:
		return "regression"
	case Inconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
