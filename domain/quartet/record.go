package quartet

import (
	"encoding/json"
	"math"

	"netgof/internal/errors"
)

// OutlierThreshold is the per-quartet p-value below which a four-taxon
// set counts as an outlier.
const OutlierThreshold = 0.05

// Record is one observed four-taxon set. Observed CFs and Expected CFs
// both use the slot order of Taxa.
type Record struct {
	Taxa     [4]string `json:"taxa" yaml:"taxa"`
	Observed CF        `json:"observed" yaml:"observed"`
	NGenes   float64   `json:"ngenes" yaml:"ngenes"`
	Expected CF        `json:"expected" yaml:"expected"`
	PValue   float64   `json:"pvalue" yaml:"pvalue"`
}

// cfSumTolerance allows for CFs rounded to a few decimals in a table.
const cfSumTolerance = 0.01

// Validate requires a positive gene count, four distinct taxa and finite
// observed CFs summing to 1.
func (r *Record) Validate() error {
	if !(r.NGenes > 0) {
		return errors.InvalidInputf("four-taxon set %v has %g genes; at least one is required", r.Taxa, r.NGenes)
	}
	seen := make(map[string]bool, 4)
	for _, t := range r.Taxa {
		if t == "" || seen[t] {
			return errors.InvalidInputf("four-taxon set %v must name four distinct taxa", r.Taxa)
		}
		seen[t] = true
	}
	for _, v := range r.Observed {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.InvalidInputf("four-taxon set %v has invalid observed CFs %v", r.Taxa, r.Observed)
		}
	}
	if math.Abs(r.Observed.Sum()-1) > cfSumTolerance {
		return errors.InvalidInputf("observed CFs %v of four-taxon set %v sum to %g, not 1", r.Observed, r.Taxa, r.Observed.Sum())
	}
	return nil
}

// Outlier reports whether the record's p-value is below OutlierThreshold.
func (r *Record) Outlier() bool {
	return r.PValue < OutlierThreshold
}

// MarshalJSON writes a non-finite p-value as null; JSON has no NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	out := struct {
		plain
		PValue *float64 `json:"pvalue"`
	}{plain: plain(r)}
	if !math.IsNaN(r.PValue) && !math.IsInf(r.PValue, 0) {
		out.PValue = &r.PValue
	}
	return json.Marshal(out)
}
