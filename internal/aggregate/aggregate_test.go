package aggregate

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestMeanIsExact(t *testing.T) {
	if got := Mean([]float64{0.2, 0.4, 0.6}); got != 0.4 {
		t.Fatalf("Mean(0.2, 0.4, 0.6) = %v, want 0.4", got)
	}
	if got := Mean([]float64{0.6, 0.2, 0.4}); got != 0.4 {
		t.Fatalf("Mean is order dependent: got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("Mean(nil) = %v, want 0", got)
	}
}

func TestOpenScoreSinglePillarArithmetic(t *testing.T) {
	pillar := Mean([]float64{0.2, 0.4, 0.6})
	if got := OpenScore(ArithmeticMean, []float64{pillar}); got != 40.0 {
		t.Fatalf("OpenScore = %v, want 40.0", got)
	}
}

func TestOpenScoreEmpty(t *testing.T) {
	for _, m := range Methods() {
		if got := OpenScore(m, nil); got != 0 {
			t.Errorf("%s: OpenScore(nil) = %v, want 0", m, got)
		}
	}
}

func TestOpenScoreWithinRange(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		n := 1 + r.IntN(6)
		scores := make([]float64, n)
		for j := range scores {
			scores[j] = r.Float64()
		}
		for _, m := range Methods() {
			got := OpenScore(m, scores)
			if got < 0 || got > 100 || math.IsNaN(got) {
				t.Fatalf("%s: OpenScore(%v) = %v out of [0,100]", m, scores, got)
			}
		}
	}
}

func TestMeanInequality(t *testing.T) {
	const tol = 1e-9
	r := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 1000; i++ {
		n := 1 + r.IntN(8)
		scores := make([]float64, n)
		for j := range scores {
			scores[j] = r.Float64()
		}
		hm := Reduce(HarmonicMean, scores)
		gm := Reduce(GeometricMean, scores)
		am := Reduce(ArithmeticMean, scores)
		if hm > gm+tol || gm > am+tol {
			t.Fatalf("expected HM <= GM <= AM for %v: hm=%v gm=%v am=%v", scores, hm, gm, am)
		}
	}
}

func TestGeometricPenalizesZero(t *testing.T) {
	if got := Reduce(GeometricMean, []float64{0, 0.9, 0.9}); got != 0 {
		t.Fatalf("expected 0 with a zero pillar, got %v", got)
	}
	if got := Reduce(HarmonicMean, []float64{0, 0.9}); got > 1e-9 {
		t.Fatalf("expected near-zero harmonic mean, got %v", got)
	}
}

func TestReduceUniformScores(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5}
	for _, m := range Methods() {
		if got := Reduce(m, scores); math.Abs(got-0.5) > 1e-9 {
			t.Errorf("%s: got %v, want 0.5", m, got)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		strict   bool
		want     Method
		fallback bool
		wantErr  bool
	}{
		{"", false, GeometricMean, false, false},
		{"arithmetic_mean", false, ArithmeticMean, false, false},
		{"harmonic_mean", true, HarmonicMean, false, false},
		{"median", false, GeometricMean, true, false},
		{"median", true, "", false, true},
	}
	for _, tt := range tests {
		choice, err := Resolve(tt.name, tt.strict)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownAggregation) {
				t.Errorf("Resolve(%q, strict): expected ErrUnknownAggregation, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.name, err)
		}
		if choice.Method != tt.want || choice.Fallback != tt.fallback {
			t.Errorf("Resolve(%q) = %+v, want method %s fallback %v", tt.name, choice, tt.want, tt.fallback)
		}
	}
}
