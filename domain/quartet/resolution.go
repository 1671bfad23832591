package quartet

import (
	"sort"

	"netgof/internal/errors"
)

// CF holds the concordance factors of the three resolutions of a
// four-taxon set (t1,t2,t3,t4), in slot order:
//
//	slot 0: t1t2|t3t4
//	slot 1: t1t3|t2t4
//	slot 2: t1t4|t2t3
type CF [3]float64

// Sum adds the three values.
func (c CF) Sum() float64 { return c[0] + c[1] + c[2] }

// Add returns c + w*o.
func (c CF) Add(o CF, w float64) CF {
	return CF{c[0] + w*o[0], c[1] + w*o[1], c[2] + w*o[2]}
}

// Scale returns w*c.
func (c CF) Scale(w float64) CF {
	return CF{w * c[0], w * c[1], w * c[2]}
}

// PairSlot returns the slot of the resolution in which order[0] is sister
// to the partner implied by the pair {a,b}: when order[0] is in the pair
// its partner is the other member, otherwise its partner is the element of
// the complement that is not order[0]. a and b must be two distinct
// members of order.
func PairSlot[T comparable](order [4]T, a, b T) (int, error) {
	first := order[0]
	var partner T
	switch first {
	case a:
		partner = b
	case b:
		partner = a
	default:
		found := false
		for _, t := range order[1:] {
			if t != a && t != b {
				partner, found = t, true
				break
			}
		}
		if !found {
			return 0, errors.Invariantf("pair %v,%v does not split %v", a, b, order)
		}
	}
	for k := 1; k < 4; k++ {
		if order[k] == partner {
			return k - 1, nil
		}
	}
	return 0, errors.Invariantf("pair %v,%v does not split %v", a, b, order)
}

// Permute re-expresses cf, given in the slot order of from, in the slot
// order of to. Both must hold the same four taxa.
func Permute[T comparable](cf CF, from, to [4]T) (CF, error) {
	var out CF
	for j := 0; j < 3; j++ {
		slot, err := PairSlot(to, from[0], from[j+1])
		if err != nil {
			return out, err
		}
		out[slot] = cf[j]
	}
	return out, nil
}

// Canonical resolves a four-taxon record against a taxon index: it returns
// the sorted index tuple, its rank, and cf re-permuted to the sorted slot
// order.
func Canonical(taxa [4]string, cf CF, index map[string]int) ([4]int, int, CF, error) {
	var idx [4]int
	for i, t := range taxa {
		k, ok := index[t]
		if !ok {
			return idx, 0, cf, errors.InvalidInputf("taxon %q is not in the taxon list", t)
		}
		idx[i] = k
	}
	sorted := idx
	sort.Ints(sorted[:])
	for i := 1; i < 4; i++ {
		if sorted[i] == sorted[i-1] {
			return idx, 0, cf, errors.InvalidInputf("four-taxon set %v repeats a taxon", taxa)
		}
	}
	rank, err := Rank(sorted, len(index))
	if err != nil {
		return sorted, 0, cf, err
	}
	out, err := Permute(cf, idx, sorted)
	if err != nil {
		return sorted, 0, cf, err
	}
	return sorted, rank, out, nil
}

// Index maps each taxon of a sorted list to its position.
func Index(taxa []string) map[string]int {
	index := make(map[string]int, len(taxa))
	for i, t := range taxa {
		index[t] = i
	}
	return index
}
