package elo

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/duel/internal/domain/model"
)

func floatEqual(a, b float64) bool {
	const tolerance = 1e-9
	return math.Abs(a-b) < tolerance
}

func TestUpdate(t *testing.T) {
	testcases := []struct {
		name    string
		a, b    float64
		outcome model.Outcome
		wantA   float64
		wantB   float64
	}{
		{"equal ratings, A wins", 1200, 1200, model.AWinsB, 1216, 1184},
		{"equal ratings, B wins", 1200, 1200, model.BWinsA, 1184, 1216},
		// E(A) = 1/(1+10^-1) = 0.909090...
		{"favourite wins", 1600, 1200, model.AWinsB, 1600 + 32*(1-1/1.1), 1200 - 32*(1-1/1.1)},
		{"upset", 1600, 1200, model.BWinsA, 1600 - 32/1.1, 1200 + 32/1.1},
	}

	for _, tc := range testcases {
		gotA, gotB, err := Update(tc.a, tc.b, tc.outcome)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !floatEqual(gotA, tc.wantA) || !floatEqual(gotB, tc.wantB) {
			t.Fatalf("%s: expected (%v, %v), got (%v, %v)", tc.name, tc.wantA, tc.wantB, gotA, gotB)
		}
	}
}

func TestUpdateRejectsSkip(t *testing.T) {
	a, b, err := Update(1300, 1100, model.Skipped)
	if !errors.Is(err, ErrUnratedOutcome) {
		t.Fatalf("expected ErrUnratedOutcome, got %v", err)
	}
	if a != 1300 || b != 1100 {
		t.Fatalf("ratings must be returned unchanged, got (%v, %v)", a, b)
	}
}

func TestUpdateIsZeroSum(t *testing.T) {
	r := New(WithK(24))
	for _, gap := range []float64{-800, -200, 0, 35, 400, 1500} {
		a, b, err := r.Update(1200+gap, 1200, model.AWinsB)
		if err != nil {
			t.Fatal(err)
		}
		if !floatEqual(a+b, 2400+gap) {
			t.Fatalf("gap %v: sum drifted to %v", gap, a+b)
		}
	}
}

func TestRepeatedWinsShrink(t *testing.T) {
	r := New()
	a, b := 1200.0, 1200.0
	lastGain := math.Inf(1)
	for i := 0; i < 15; i++ {
		na, nb, err := r.Update(a, b, model.AWinsB)
		if err != nil {
			t.Fatal(err)
		}
		gain := na - a
		if na <= a || nb >= b {
			t.Fatalf("round %d: winner must rise and loser must fall (%v->%v, %v->%v)", i, a, na, b, nb)
		}
		if gain >= lastGain {
			t.Fatalf("round %d: gain %v did not shrink below %v", i, gain, lastGain)
		}
		lastGain = gain
		a, b = na, nb
	}
}

func TestExpected(t *testing.T) {
	r := New()
	if !floatEqual(r.Expected(1200, 1200), 0.5) {
		t.Fatalf("expected 0.5 for equal ratings")
	}
	if !floatEqual(r.Expected(1600, 1200)+r.Expected(1200, 1600), 1) {
		t.Fatalf("expected scores must be complementary")
	}
	if r.Expected(1300, 1200) <= r.Expected(1250, 1200) {
		t.Fatalf("expected score must grow with the rating gap")
	}
}

func TestOptionsIgnoreInvalid(t *testing.T) {
	r := New(WithK(-1), WithScale(0))
	if r.K != DefaultK || r.Scale != DefaultScale {
		t.Fatalf("invalid options must keep defaults, got %+v", r)
	}
	r = New(WithK(16), WithScale(200))
	if r.K != 16 || r.Scale != 200 {
		t.Fatalf("options not applied, got %+v", r)
	}
}

func BenchmarkUpdate(b *testing.B) {
	r := New()
	for b.Loop() {
		_, _, _ = r.Update(1432.5, 1188.25, model.BWinsA)
	}
}
