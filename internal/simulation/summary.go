package simulation

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"netgof/internal/errors"
)

// ZSummary describes the spread of the replicate z-values. Under the
// null, with independent four-taxon sets, they would be standard normal.
type ZSummary struct {
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"sd" yaml:"sd"`
	Min      float64 `json:"min" yaml:"min"`
	Q05      float64 `json:"q05" yaml:"q05"`
	Median   float64 `json:"median" yaml:"median"`
	Q95      float64 `json:"q95" yaml:"q95"`
	Max      float64 `json:"max" yaml:"max"`
	Skewness float64 `json:"skewness" yaml:"skewness"`
}

// SummarizeZ needs at least two values.
func SummarizeZ(z []float64) (ZSummary, error) {
	var s ZSummary
	if len(z) < 2 {
		return s, errors.InvalidInputf("%d z-values; at least 2 are needed for a summary", len(z))
	}
	var err error
	if s.Mean, err = stats.Mean(z); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviationSample(z); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(z); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(z); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(z); err != nil {
		return s, err
	}
	if s.Q05, err = stats.PercentileNearestRank(z, 5); err != nil {
		return s, err
	}
	if s.Q95, err = stats.PercentileNearestRank(z, 95); err != nil {
		return s, err
	}
	if s.StdDev > 0 {
		s.Skewness = stat.Skew(z, nil)
	}
	return s, nil
}
