package leveling

import (
	"math"
)

// Curve is the exponential level curve. The XP required to advance out of
// level l is floor(base * l^growth); each term is floored on its own so
// cumulative totals stay stable when parameters produce fractional steps.
type Curve struct {
	BaseXP     float64
	GrowthRate float64
}

// Progress describes where inside the current level an XP total sits.
type Progress struct {
	XPIntoLevel      int64
	XPNeededForLevel int64
	Fraction         float64
}

// CumulativeXPForLevel returns the total XP required to reach the given
// level. Level 1 requires 0.
func (c Curve) CumulativeXPForLevel(level int) int64 {
	if level <= 1 || c.BaseXP <= 0 {
		return 0
	}
	var total int64
	for l := 1; l < level; l++ {
		total += int64(math.Floor(c.BaseXP * math.Pow(float64(l), c.GrowthRate)))
	}
	return total
}

// StepXP returns the XP needed to advance from level to level+1.
func (c Curve) StepXP(level int) int64 {
	if level < 1 || c.BaseXP <= 0 {
		return 0
	}
	return int64(math.Floor(c.BaseXP * math.Pow(float64(level), c.GrowthRate)))
}

// LevelForXP returns the largest level whose cumulative requirement does not
// exceed xp. Negative xp is treated as 0. The curve is strictly increasing
// for base > 0 and growth > 1, so a forward walk terminates.
func (c Curve) LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	if c.BaseXP <= 0 {
		return 1
	}

	level := 1
	var cumulative int64
	for {
		step := c.StepXP(level)
		if step <= 0 || cumulative+step > xp {
			return level
		}
		cumulative += step
		level++
	}
}

// ProgressWithinLevel reports how far into the given level an XP total is.
func (c Curve) ProgressWithinLevel(level int, xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	floor := c.CumulativeXPForLevel(level)
	needed := c.StepXP(level)

	into := xp - floor
	if into < 0 {
		into = 0
	}

	var fraction float64
	if needed > 0 {
		fraction = float64(into) / float64(needed)
		if fraction > 1 {
			fraction = 1
		}
	}

	return Progress{
		XPIntoLevel:      into,
		XPNeededForLevel: needed,
		Fraction:         fraction,
	}
}
