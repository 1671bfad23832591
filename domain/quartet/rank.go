// Package quartet identifies four-taxon sets and fixes the order in which
// their three concordance factors are reported.
//
// A four-taxon set over a sorted taxon list is the sorted index tuple
// (i<j<k<l). Its rank is its position in the lexicographic enumeration of
// all C(n,4) tuples, which makes the rank a dense bijection onto
// [0, C(n,4)).
package quartet

import (
	"gonum.org/v1/gonum/stat/combin"

	"netgof/internal/errors"
)

// Binomial returns n choose k, 0 when k is out of range.
func Binomial(n, k int) int {
	if k < 0 || n < k {
		return 0
	}
	return combin.Binomial(n, k)
}

// Count is the number of four-taxon sets over n taxa.
func Count(n int) int { return Binomial(n, 4) }

// Rank returns the lexicographic rank of the sorted index tuple c over n
// taxa.
func Rank(c [4]int, n int) (int, error) {
	prev := -1
	for _, v := range c {
		if v <= prev || v >= n {
			return 0, errors.InvalidInputf("indices %v are not a strictly increasing 4-subset of [0,%d)", c, n)
		}
		prev = v
	}
	return combin.CombinationIndex(c[:], n, 4), nil
}

// Unrank is the inverse of Rank.
func Unrank(rank, n int) ([4]int, error) {
	var c [4]int
	if rank < 0 || rank >= Count(n) {
		return c, errors.InvalidInputf("rank %d out of range for %d taxa", rank, n)
	}
	combin.IndexToCombination(c[:], rank, n, 4)
	return c, nil
}

// Combinations calls fn for every four-taxon set over n taxa, in rank
// order.
func Combinations(n int, fn func(rank int, c [4]int)) {
	if n < 4 {
		return
	}
	gen := combin.NewCombinationGenerator(n, 4)
	var c [4]int
	for rank := 0; gen.Next(); rank++ {
		gen.Combination(c[:])
		fn(rank, c)
	}
}
