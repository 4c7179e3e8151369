package fixedpoint_test

import (
	"testing"

	"PoolLedger/internal/fixedpoint"
)

func TestMulDiv_Rounding(t *testing.T) {
	cases := []struct {
		name  string
		a, b  int64
		denom int64
		mode  fixedpoint.RoundingMode
		want  int64
	}{
		{"exact", 10, 10, 4, fixedpoint.RoundHalfEven, 25},
		{"half_even_rounds_to_even_down", 5, 1, 2, fixedpoint.RoundHalfEven, 2},  // 2.5 -> 2
		{"half_even_rounds_to_even_up", 7, 1, 2, fixedpoint.RoundHalfEven, 4},    // 3.5 -> 4
		{"above_half_rounds_up", 7, 1, 4, fixedpoint.RoundHalfEven, 2},           // 1.75 -> 2
		{"below_half_rounds_down", 5, 1, 4, fixedpoint.RoundHalfEven, 1},         // 1.25 -> 1
		{"round_down_truncates", 7, 1, 2, fixedpoint.RoundDown, 3},
		{"round_up_bumps", 5, 1, 4, fixedpoint.RoundUp, 2},
		{"round_up_exact_stays", 8, 1, 4, fixedpoint.RoundUp, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fixedpoint.MulDiv(tc.a, tc.b, tc.denom, tc.mode)
			if got != tc.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tc.a, tc.b, tc.denom, got, tc.want)
			}
		})
	}
}

func TestMulDiv_LargeIntermediate(t *testing.T) {
	// a*b overflows int64; result fits
	a := int64(5_000_000_000_000)
	b := int64(4_000_000_000)
	got := fixedpoint.MulDiv(a, b, 10_000_000_000, fixedpoint.RoundHalfEven)
	want := int64(2_000_000_000_000)
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestCompoundScale_OneYearAtTenPercent(t *testing.T) {
	yearMicros := int64(fixedpoint.SecondsPerYear) * fixedpoint.MicrosPerSecond
	rate := int64(100_000_000) // 0.10 at rate precision

	got := fixedpoint.CompoundScale(fixedpoint.ScaleOne, rate, yearMicros)
	want := int64(1_100_000_000_000) // 1.10 at scale precision
	if got != want {
		t.Errorf("CompoundScale = %d, want %d", got, want)
	}
}

func TestCompoundScale_ZeroRateOrElapsed(t *testing.T) {
	if got := fixedpoint.CompoundScale(fixedpoint.ScaleOne, 0, 1_000_000); got != fixedpoint.ScaleOne {
		t.Errorf("zero rate: got %d", got)
	}
	if got := fixedpoint.CompoundScale(fixedpoint.ScaleOne, 100_000_000, 0); got != fixedpoint.ScaleOne {
		t.Errorf("zero elapsed: got %d", got)
	}
}

func TestBlendRate_EqualWeights(t *testing.T) {
	// 100 @ 0.10 + 100 @ 0.20 -> 0.15
	got := fixedpoint.BlendRate(100_000_000, 100_000_000, 200_000_000, 100_000_000)
	want := int64(150_000_000)
	if got != want {
		t.Errorf("BlendRate = %d, want %d", got, want)
	}
}

func TestBlendRate_ZeroTotal(t *testing.T) {
	if got := fixedpoint.BlendRate(100_000_000, 0, 200_000_000, 0); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestUnblendRate_Inverse(t *testing.T) {
	blended := fixedpoint.BlendRate(100_000_000, 100_000_000, 200_000_000, 50_000_000)

	// Removing the second contribution restores the first rate
	got := fixedpoint.UnblendRate(blended, 150_000_000, 200_000_000, 50_000_000)
	if got != 100_000_000 {
		t.Errorf("UnblendRate = %d, want %d", got, int64(100_000_000))
	}
}

func TestUnblendRate_FloorsAtZero(t *testing.T) {
	// Removing more weighted rate than held clamps to zero instead of going negative
	got := fixedpoint.UnblendRate(100_000_000, 100_000_000, 900_000_000, 50_000_000)
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestAnnualizedRate_RoundTrip(t *testing.T) {
	// A 5% annual return on 1000 over half a year yields share = 25.
	principal := int64(1_000_000_000) // 1000.0
	durationMicros := int64(fixedpoint.SecondsPerYear) * fixedpoint.MicrosPerSecond / 2
	share := int64(25_000_000) // 25.0

	got := fixedpoint.AnnualizedRate(share, principal, durationMicros)
	want := int64(50_000_000) // 0.05
	if got != want {
		t.Errorf("AnnualizedRate = %d, want %d", got, want)
	}
}

func TestAnnualizedRate_DegenerateInputs(t *testing.T) {
	if got := fixedpoint.AnnualizedRate(100, 0, 1000); got != 0 {
		t.Errorf("zero principal: got %d", got)
	}
	if got := fixedpoint.AnnualizedRate(100, 1000, 0); got != 0 {
		t.Errorf("zero duration: got %d", got)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	scale := int64(1_234_567_890_123)
	value := int64(500_000_000) // 500.0

	raw := fixedpoint.RawFromValue(value, scale, fixedpoint.RoundHalfEven)
	back := fixedpoint.ApplyScale(raw, scale, fixedpoint.RoundHalfEven)

	diff := value - back
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 {
		t.Errorf("round trip drift: value=%d back=%d", value, back)
	}
}
