package leveling

import (
	"testing"
)

func TestCumulativeXPForLevel(t *testing.T) {
	curve := Curve{BaseXP: 100, GrowthRate: 1.5}

	tests := []struct {
		name  string
		level int
		want  int64
	}{
		{"level 1 is free", 1, 0},
		{"level 2", 2, 100},              // floor(100*1^1.5)
		{"level 3", 3, 382},              // 100 + floor(100*2^1.5) = 100 + 282
		{"level 4", 4, 901},              // 382 + floor(100*3^1.5) = 382 + 519
		{"level 0 clamps", 0, 0},
		{"negative clamps", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := curve.CumulativeXPForLevel(tt.level); got != tt.want {
				t.Errorf("CumulativeXPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestCumulativeXPFloorsPerTerm(t *testing.T) {
	// With base 10.7 and growth 1.0 the per-term floors are 10+21+32 = 63;
	// flooring the summed exact value would give floor(10.7*6) = 64.
	curve := Curve{BaseXP: 10.7, GrowthRate: 1.0}
	if got := curve.CumulativeXPForLevel(4); got != 63 {
		t.Errorf("CumulativeXPForLevel(4) = %d, want 63 (per-term flooring)", got)
	}
}

func TestCurveMonotonicity(t *testing.T) {
	curve := Curve{BaseXP: 100, GrowthRate: 1.5}

	prev := curve.CumulativeXPForLevel(1)
	for level := 2; level <= 60; level++ {
		cur := curve.CumulativeXPForLevel(level)
		if cur <= prev {
			t.Fatalf("curve not strictly increasing: level %d requires %d, level %d requires %d",
				level-1, prev, level, cur)
		}
		prev = cur
	}
}

func TestLevelForXPInvertsCumulative(t *testing.T) {
	curve := Curve{BaseXP: 100, GrowthRate: 1.5}

	for level := 2; level <= 25; level++ {
		threshold := curve.CumulativeXPForLevel(level)
		if got := curve.LevelForXP(threshold); got != level {
			t.Errorf("LevelForXP(%d) = %d, want %d", threshold, got, level)
		}
		if got := curve.LevelForXP(threshold - 1); got != level-1 {
			t.Errorf("LevelForXP(%d) = %d, want %d", threshold-1, got, level-1)
		}
	}
}

func TestLevelForXPEdgeCases(t *testing.T) {
	curve := Curve{BaseXP: 100, GrowthRate: 1.5}

	if got := curve.LevelForXP(0); got != 1 {
		t.Errorf("LevelForXP(0) = %d, want 1", got)
	}
	if got := curve.LevelForXP(-50); got != 1 {
		t.Errorf("LevelForXP(-50) = %d, want 1", got)
	}
	if got := (Curve{}).LevelForXP(10000); got != 1 {
		t.Errorf("zero-value curve LevelForXP = %d, want 1", got)
	}
}

func TestProgressWithinLevel(t *testing.T) {
	curve := Curve{BaseXP: 100, GrowthRate: 1.5}

	p := curve.ProgressWithinLevel(2, 150)
	if p.XPIntoLevel != 50 {
		t.Errorf("XPIntoLevel = %d, want 50", p.XPIntoLevel)
	}
	if p.XPNeededForLevel != 282 {
		t.Errorf("XPNeededForLevel = %d, want 282", p.XPNeededForLevel)
	}
	if p.Fraction <= 0 || p.Fraction >= 1 {
		t.Errorf("Fraction = %f, want in (0,1)", p.Fraction)
	}
}
