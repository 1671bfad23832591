// Package outlier turns observed and expected quartet concordance factors
// into per-quartet outlier p-values and aggregates them into a z-value.
//
// Each statistic compares the three observed CFs of a four-taxon set, from
// n genes, to the expected CFs and refers the result to a chi-squared
// distribution with 2 degrees of freedom.
package outlier

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"netgof/domain/quartet"
	"netgof/internal/errors"
)

// Kind selects the goodness-of-fit statistic.
type Kind int

const (
	LRT Kind = iota
	Qlog
	Pearson
)

func (k Kind) String() string {
	switch k {
	case LRT:
		return "lrt"
	case Qlog:
		return "qlog"
	case Pearson:
		return "pearson"
	}
	return "unknown"
}

// ParseKind accepts lrt, qlog and pearson in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lrt":
		return LRT, nil
	case "qlog":
		return Qlog, nil
	case "pearson":
		return Pearson, nil
	}
	return 0, errors.InvalidInputf("unknown outlier statistic %q (want lrt, qlog or pearson)", s)
}

// MarshalText writes the lowercase name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is ParseKind.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// epsilon below which an observed CF counts as 0, and within which an
// observed CF counts as equal to the expected one.
const epsilon = 1e-20

// chiSquared2 is the reference distribution of all three statistics.
var chiSquared2 = distuv.ChiSquared{K: 2}

// Func computes an outlier p-value from observed CFs, expected CFs and a
// gene count.
type Func func(observed, expected quartet.CF, n float64) float64

// PValueFunc resolves a kind once so that callers looping over quartets do
// not dispatch on every call.
func (k Kind) PValueFunc() (Func, error) {
	var stat func(observed, expected quartet.CF, n float64) float64
	switch k {
	case LRT:
		stat = lrt
	case Qlog:
		stat = qlog
	case Pearson:
		stat = pearson
	default:
		return nil, errors.InvalidInputf("unknown outlier statistic %d", int(k))
	}
	return func(observed, expected quartet.CF, n float64) float64 {
		return chiSquared2.Survival(stat(observed, expected, n))
	}, nil
}

// Statistic returns the value of the chosen statistic.
func Statistic(kind Kind, observed, expected quartet.CF, n float64) (float64, error) {
	switch kind {
	case LRT:
		return lrt(observed, expected, n), nil
	case Qlog:
		return qlog(observed, expected, n), nil
	case Pearson:
		return pearson(observed, expected, n), nil
	}
	return math.NaN(), errors.InvalidInputf("unknown outlier statistic %d", int(kind))
}

// PValue is the upper chi-squared(2) tail of Statistic.
func PValue(kind Kind, observed, expected quartet.CF, n float64) (float64, error) {
	s, err := Statistic(kind, observed, expected, n)
	if err != nil {
		return math.NaN(), err
	}
	return chiSquared2.Survival(s), nil
}

// PValues writes one p-value per quartet into buf, which is grown when it
// is too short, and returns it. observed, expected and ngenes are aligned
// by index.
func PValues(kind Kind, observed, expected []quartet.CF, ngenes []float64, buf []float64) ([]float64, error) {
	if len(observed) != len(expected) || len(observed) != len(ngenes) {
		return buf, errors.InvalidInputf("%d observed, %d expected and %d gene counts do not line up",
			len(observed), len(expected), len(ngenes))
	}
	pvalue, err := kind.PValueFunc()
	if err != nil {
		return buf, err
	}
	if cap(buf) < len(observed) {
		buf = make([]float64, len(observed))
	}
	buf = buf[:len(observed)]
	for i := range observed {
		buf[i] = pvalue(observed[i], expected[i], ngenes[i])
	}
	return buf, nil
}

func lrt(observed, expected quartet.CF, n float64) float64 {
	s := 0.0
	for j := 0; j < 3; j++ {
		phat := observed[j]
		if math.Abs(phat) <= epsilon {
			continue
		}
		s += phat * math.Log(phat/expected[j])
	}
	return 2 * n * s
}

func qlog(observed, expected quartet.CF, n float64) float64 {
	s := 0.0
	for j := 0; j < 3; j++ {
		phat, p := observed[j], expected[j]
		if math.Abs(phat) <= epsilon || math.Abs(phat-p) <= epsilon {
			continue
		}
		s += (phat - p) * (phat - p) / (p * (math.Log(phat) - math.Log(p)))
	}
	return 2 * n * s
}

func pearson(observed, expected quartet.CF, n float64) float64 {
	s := 0.0
	for j := 0; j < 3; j++ {
		d := observed[j] - expected[j]
		s += d * d / expected[j]
	}
	return n * s
}
