// Package tolerance decides pass or fail for a measured value against a
// dimension's nominal value and tolerance band.
package tolerance

// UnitGoNoGo marks an attribute gauge check rather than a variable
// measurement. The recorded value is 1 for go, anything else for no-go.
const UnitGoNoGo = "go/nogo"

// Verdict is the outcome of evaluating one measurement.
type Verdict string

const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

// Dimension carries the fields of a measurable feature that the evaluation
// consults. Tolerances are signed offsets from nominal; the minus tolerance is
// conventionally negative.
type Dimension struct {
	Nominal        float64
	TolerancePlus  *float64
	ToleranceMinus *float64
	Unit           string
}

// Evaluate returns the verdict for an actual measured value.
//
// A go/nogo dimension passes only when the recorded value is exactly 1. A
// dimension with both tolerances passes when the value lies inside the
// inclusive band [nominal+minus, nominal+plus]. A dimension missing either
// tolerance cannot fail.
func Evaluate(dim Dimension, actual float64) Verdict {
	if dim.Unit == UnitGoNoGo {
		if actual == 1 {
			return Pass
		}
		return Fail
	}
	if dim.TolerancePlus == nil || dim.ToleranceMinus == nil {
		return Pass
	}
	lower := dim.Nominal + *dim.ToleranceMinus
	upper := dim.Nominal + *dim.TolerancePlus
	if actual < lower || actual > upper {
		return Fail
	}
	return Pass
}
