package outlier

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"netgof/domain/quartet"
)

// TestPValue_ExactMatch verifies a perfect fit gives statistic 0 and p = 1
func TestPValue_ExactMatch(t *testing.T) {
	cf := quartet.CF{0.9, 0.05, 0.05}
	for _, kind := range []Kind{LRT, Qlog, Pearson} {
		s, err := Statistic(kind, cf, cf, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if s != 0 {
			t.Errorf("%s: expected statistic 0, got %g", kind, s)
		}
		p, err := PValue(kind, cf, cf, 100)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if p != 1 {
			t.Errorf("%s: expected p-value 1, got %g", kind, p)
		}
	}
}

// TestStatistic_KnownValues checks each formula against a hand computation
func TestStatistic_KnownValues(t *testing.T) {
	obs := quartet.CF{0.6, 0.3, 0.1}
	exp := quartet.CF{0.5, 0.25, 0.25}
	n := 50.0

	wantLRT := 2 * n * (0.6*math.Log(0.6/0.5) + 0.3*math.Log(0.3/0.25) + 0.1*math.Log(0.1/0.25))
	wantPearson := n * (0.01/0.5 + 0.0025/0.25 + 0.0225/0.25)
	wantQlog := 2 * n * (0.01/(0.5*math.Log(0.6/0.5)) + 0.0025/(0.25*math.Log(0.3/0.25)) + 0.0225/(0.25*math.Log(0.1/0.25)))

	tests := []struct {
		kind Kind
		want float64
	}{
		{LRT, wantLRT},
		{Qlog, wantQlog},
		{Pearson, wantPearson},
	}
	for _, tt := range tests {
		got, err := Statistic(tt.kind, obs, exp, n)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.kind, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %g, got %g", tt.kind, tt.want, got)
		}
		p, _ := PValue(tt.kind, obs, exp, n)
		if want := (distuv.ChiSquared{K: 2}).Survival(tt.want); math.Abs(p-want) > 1e-12 {
			t.Errorf("%s: expected p-value %g, got %g", tt.kind, want, p)
		}
	}
}

// TestStatistic_ZeroObservedIsFinite guards the log(0) terms
func TestStatistic_ZeroObservedIsFinite(t *testing.T) {
	obs := quartet.CF{1, 0, 0}
	exp := quartet.CF{0.8, 0.1, 0.1}
	for _, kind := range []Kind{LRT, Qlog, Pearson} {
		s, _ := Statistic(kind, obs, exp, 20)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Errorf("%s: expected a finite statistic, got %g", kind, s)
		}
	}
	want := 2 * 20 * math.Log(1/0.8)
	if s, _ := Statistic(LRT, obs, exp, 20); math.Abs(s-want) > 1e-12 {
		t.Errorf("LRT: expected %g, got %g", want, s)
	}
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{"lrt": LRT, "QLOG": Qlog, " Pearson ": Pearson} {
		got, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", name, got, want)
		}
	}
	if _, err := ParseKind("gtest"); err == nil {
		t.Error("expected an error for an unknown statistic")
	}
}

func TestPValues_ReusesBuffer(t *testing.T) {
	obs := []quartet.CF{{0.9, 0.05, 0.05}, {0.2, 0.4, 0.4}}
	exp := []quartet.CF{{0.9, 0.05, 0.05}, {0.8, 0.1, 0.1}}
	ngenes := []float64{100, 100}
	buf := make([]float64, 0, 8)

	out, err := PValues(LRT, obs, exp, ngenes, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || &out[0] != &buf[:1][0] {
		t.Fatalf("expected the caller's buffer to be reused")
	}
	if out[0] != 1 {
		t.Errorf("expected p = 1 for an exact fit, got %g", out[0])
	}
	if out[1] >= quartet.OutlierThreshold {
		t.Errorf("expected an outlier, got p = %g", out[1])
	}

	if _, err := PValues(LRT, obs, exp[:1], ngenes, nil); err == nil {
		t.Error("expected an error for misaligned inputs")
	}
}

func TestAggregateZ(t *testing.T) {
	pvals := make([]float64, 100)
	for i := range pvals {
		pvals[i] = 0.5
	}
	for i := 0; i < 5; i++ {
		pvals[i] = 0.01
	}
	z, nonFinite, err := AggregateZ(pvals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(z) > 1e-12 || nonFinite != 0 {
		t.Errorf("expected z = 0 with 5%% outliers, got z = %g (%d non-finite)", z, nonFinite)
	}

	for i := range pvals {
		pvals[i] = 1
	}
	z, _, _ = AggregateZ(pvals)
	want := -0.05 / math.Sqrt(0.05*0.95/100)
	if math.Abs(z-want) > 1e-12 || z > -2 {
		t.Errorf("expected z = %g without outliers, got %g", want, z)
	}
}

func TestAggregateZ_NonFinite(t *testing.T) {
	pvals := []float64{math.NaN(), 0.01, 0.5, math.Inf(1)}
	z, nonFinite, err := AggregateZ(pvals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nonFinite != 2 {
		t.Errorf("expected 2 non-finite p-values, got %d", nonFinite)
	}
	want := (0.5 - 0.05) / math.Sqrt(0.05*0.95/2)
	if math.Abs(z-want) > 1e-12 {
		t.Errorf("expected z = %g over the finite values, got %g", want, z)
	}
	if CountOutliers(pvals) != 1 {
		t.Errorf("expected 1 outlier, got %d", CountOutliers(pvals))
	}

	if _, _, err := AggregateZ([]float64{math.NaN()}); err == nil {
		t.Error("expected an error without finite p-values")
	}
}

func TestCorrectedPValue(t *testing.T) {
	if p := UncorrectedPValue(0); math.Abs(p-0.5) > 1e-12 {
		t.Errorf("expected 0.5 at z = 0, got %g", p)
	}
	if CorrectedPValue(3, 2) <= UncorrectedPValue(3) {
		t.Error("a larger sigma should give a larger p-value")
	}
	if p := CorrectedPValue(2, 1); math.Abs(p-UncorrectedPValue(2)) > 1e-15 {
		t.Errorf("sigma = 1 should leave the p-value unchanged, got %g", p)
	}
	for _, tt := range []struct{ z, want float64 }{{0, 1}, {-1, 1}, {2, 0}} {
		if p := CorrectedPValue(tt.z, 0); p != tt.want {
			t.Errorf("CorrectedPValue(%g, 0) = %g, want %g", tt.z, p, tt.want)
		}
	}
}
