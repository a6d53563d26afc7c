package leveling

import "math"

const (
	// ExpCurveCoef is the constant from the progression curve:
	// total XP required for level L is 100 * (e^(L/5) - 1).
	ExpCurveCoef = 100.0

	// ExpCurveScale divides the level before exponentiation.
	ExpCurveScale = 5.0
)

// TotalExpForLevel returns the cumulative XP threshold required to reach the
// given level. Level 0 requires 0 XP.
func TotalExpForLevel(level int) float64 {
	if level <= 0 {
		return 0
	}
	return ExpCurveCoef * (math.Exp(float64(level)/ExpCurveScale) - 1)
}

// CurrentLevelFromExp is the inverse mapping. Negative XP is clamped to 0
// before taking the log so the domain guard holds for corrupt inputs.
func CurrentLevelFromExp(xp float64) int {
	if xp < 0 {
		xp = 0
	}
	// The tiny offset keeps floor() from dropping a level when xp sits
	// exactly on a threshold and the log picks up float rounding.
	return int(math.Floor(math.Log(xp/ExpCurveCoef+1)*ExpCurveScale + 1e-9))
}

// XPDeltaForLevel returns the XP span of a single level, used for
// progress-bar fractions.
func XPDeltaForLevel(level int) float64 {
	return ExpCurveCoef * math.Exp(float64(level)/ExpCurveScale) * (math.Exp(1/ExpCurveScale) - 1)
}

// PenaltyResult reports the outcome of a floor-protected penalty.
type PenaltyResult struct {
	NewXP         float64
	ActualPenalty float64
}

// ApplyXPPenaltyWithFloor erodes XP within the current level only. The floor
// for the current level is a hard lower bound: a penalty can never de-level
// a user, so the actual penalty applied may be smaller than requested.
func ApplyXPPenaltyWithFloor(currentXP, penalty float64) PenaltyResult {
	if currentXP < 0 {
		currentXP = 0
	}
	floor := TotalExpForLevel(CurrentLevelFromExp(currentXP))
	newXP := currentXP - math.Abs(penalty)
	if newXP < floor {
		newXP = floor
	}
	return PenaltyResult{
		NewXP:         newXP,
		ActualPenalty: currentXP - newXP,
	}
}
