package quartet

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinomial(t *testing.T) {
	assert.Equal(t, 1, Binomial(4, 4))
	assert.Equal(t, 5, Binomial(5, 4))
	assert.Equal(t, 210, Binomial(10, 4))
	assert.Equal(t, 0, Binomial(3, 4))
	assert.Equal(t, 0, Count(3))
}

func TestRankUnrankRoundTrip(t *testing.T) {
	for _, n := range []int{4, 5, 9} {
		seen := 0
		Combinations(n, func(rank int, c [4]int) {
			got, err := Rank(c, n)
			require.NoError(t, err)
			assert.Equal(t, rank, got)
			back, err := Unrank(rank, n)
			require.NoError(t, err)
			assert.Equal(t, c, back)
			seen++
		})
		assert.Equal(t, Count(n), seen)
	}
}

func TestRankIsLexicographic(t *testing.T) {
	r, err := Rank([4]int{0, 1, 2, 3}, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, r)
	r, err = Rank([4]int{0, 1, 2, 4}, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, r)
	r, err = Rank([4]int{2, 3, 4, 5}, 6)
	require.NoError(t, err)
	assert.Equal(t, Count(6)-1, r)
}

func TestCombinationsFollowLexicographicOrder(t *testing.T) {
	for _, n := range []int{4, 5, 9, 15} {
		var prev [4]int
		Combinations(n, func(rank int, c [4]int) {
			if rank > 0 {
				assert.Less(t, lexKey(prev, n), lexKey(c, n), "n=%d rank %d", n, rank)
			}
			prev = c
		})
	}
	last, err := Unrank(Count(15)-1, 15)
	require.NoError(t, err)
	assert.Equal(t, [4]int{11, 12, 13, 14}, last)

	called := false
	Combinations(3, func(int, [4]int) { called = true })
	assert.False(t, called)
	_, err = Rank([4]int{-2, 0, 1, 2}, 5)
	assert.Error(t, err)
	_, err = Unrank(-1, 5)
	assert.Error(t, err)
}

// lexKey orders index tuples lexicographically as base-n numbers.
func lexKey(c [4]int, n int) int {
	return ((c[0]*n+c[1])*n+c[2])*n + c[3]
}

func TestRankRejectsInvalidTuples(t *testing.T) {
	_, err := Rank([4]int{0, 2, 1, 3}, 5)
	assert.Error(t, err)
	_, err = Rank([4]int{0, 1, 2, 5}, 5)
	assert.Error(t, err)
	_, err = Unrank(5, 5)
	assert.Error(t, err)
}

func TestPairSlot(t *testing.T) {
	order := [4]string{"a", "b", "c", "d"}
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", 0},
		{"c", "d", 0},
		{"a", "c", 1},
		{"d", "b", 1},
		{"d", "a", 2},
		{"b", "c", 2},
	}
	for _, tt := range tests {
		got, err := PairSlot(order, tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s%s", tt.a, tt.b)
	}
}

func TestCanonicalPermutesCF(t *testing.T) {
	index := Index([]string{"a", "b", "c", "d", "e"})
	// slots of (d,a,e,b): da|eb, de|ab, db|ae
	idx, rank, cf, err := Canonical([4]string{"d", "a", "e", "b"}, CF{0.7, 0.2, 0.1}, index)
	require.NoError(t, err)
	assert.Equal(t, [4]int{0, 1, 3, 4}, idx)
	want, err := Rank([4]int{0, 1, 3, 4}, 5)
	require.NoError(t, err)
	assert.Equal(t, want, rank)
	// slots of (a,b,d,e): ab|de, ad|be, ae|bd
	assert.Equal(t, CF{0.2, 0.7, 0.1}, cf)
}

func TestCanonicalErrors(t *testing.T) {
	index := Index([]string{"a", "b", "c", "d"})
	_, _, _, err := Canonical([4]string{"a", "b", "c", "x"}, CF{}, index)
	assert.Error(t, err)
	_, _, _, err = Canonical([4]string{"a", "b", "c", "a"}, CF{}, index)
	assert.Error(t, err)
}

func TestRecordValidate(t *testing.T) {
	ok := Record{Taxa: [4]string{"a", "b", "c", "d"}, Observed: CF{0.5, 0.25, 0.25}, NGenes: 10}
	assert.NoError(t, ok.Validate())

	zero := ok
	zero.NGenes = 0
	assert.Error(t, zero.Validate())

	dup := ok
	dup.Taxa[3] = "a"
	assert.Error(t, dup.Validate())

	counts := ok
	counts.Observed = CF{90, 5, 5}
	assert.Error(t, counts.Validate())

	inf := ok
	inf.Observed = CF{math.Inf(1), 0, 0}
	assert.Error(t, inf.Validate())

	rounded := ok
	rounded.Observed = CF{0.333, 0.333, 0.333}
	assert.NoError(t, rounded.Validate())

	ok.PValue = 0.01
	assert.True(t, ok.Outlier())
	ok.PValue = 0.05
	assert.False(t, ok.Outlier())
}

func TestRecordJSONWritesNonFinitePValueAsNull(t *testing.T) {
	r := Record{Taxa: [4]string{"a", "b", "c", "d"}, Observed: CF{1, 0, 0}, NGenes: 5, PValue: math.NaN()}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pvalue":null`)

	r.PValue = 0.25
	b, err = json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pvalue":0.25`)
	assert.Contains(t, string(b), `"ngenes":5`)
}
