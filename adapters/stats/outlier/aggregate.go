package outlier

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/logging"
)

var log = logging.Get("outlier")

// AggregateZ tests for an excess of outlier quartets. It returns
//
//	z = (f - 0.05) / sqrt(0.05 * 0.95 / N)
//
// where f is the fraction of p-values below 0.05 and N counts the finite
// p-values only. Non-finite p-values are left out and counted.
func AggregateZ(pvals []float64) (z float64, nonFinite int, err error) {
	n, below := 0, 0
	for _, p := range pvals {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			nonFinite++
			continue
		}
		n++
		if p < quartet.OutlierThreshold {
			below++
		}
	}
	if nonFinite > 0 {
		log.Warningf("%d of %d outlier p-values are not finite and were left out", nonFinite, len(pvals))
	}
	if n == 0 {
		return math.NaN(), nonFinite, errors.InvalidInputf("no finite outlier p-value among %d", len(pvals))
	}
	const alpha = quartet.OutlierThreshold
	frac := float64(below) / float64(n)
	return (frac - alpha) / math.Sqrt(alpha*(1-alpha)/float64(n)), nonFinite, nil
}

// CountOutliers counts finite p-values below the outlier threshold.
func CountOutliers(pvals []float64) int {
	count := 0
	for _, p := range pvals {
		if p < quartet.OutlierThreshold {
			count++
		}
	}
	return count
}

// UncorrectedPValue is the standard normal upper tail of z, valid when the
// quartet p-values are independent.
func UncorrectedPValue(z float64) float64 {
	return distuv.UnitNormal.Survival(z)
}

// CorrectedPValue rescales z by the standard deviation estimated under
// dependence before taking the normal upper tail. Without spread
// (sigma == 0) every simulated z sits at 0 and the tail is 1 for z <= 0
// and 0 above.
func CorrectedPValue(z, sigma float64) float64 {
	if !(sigma > 0) {
		if z > 0 {
			return 0
		}
		return 1
	}
	return distuv.UnitNormal.Survival(z / sigma)
}
