// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Pairs of individuals are ranked in colexicographic order: pair (i, j),
// i < j, has rank j*(j-1)/2 + i, so (0,1), (0,2), (1,2), (0,3), ...  The
// rank of a pair does not depend on the number of individuals, which lets
// a worker start anywhere in the pair space without enumerating it.

// binomial is combin.Binomial extended with C(n, k) = 0 for n < k.
func binomial(n, k int) int {
	if n < k {
		return 0
	}
	return combin.Binomial(n, k)
}

// NumPairs returns the number of unordered pairs of n individuals.
func NumPairs(n int) int { return binomial(n, 2) }

// PairAt returns the pair (i, j), i < j < n, of colexicographic rank idx.
// It is the closed-form inverse of idx = j*(j-1)/2 + i.
func PairAt(idx, n int) (i, j int) {
	if idx < 0 || idx >= NumPairs(n) {
		panic(fmt.Sprintf("ibd: pair index %d out of range for %d individuals", idx, n))
	}
	j = int((1 + math.Sqrt(1+8*float64(idx))) / 2)
	// Correct for rounding in the square root.
	for j*(j-1)/2 > idx {
		j--
	}
	for (j+1)*j/2 <= idx {
		j++
	}
	return idx - j*(j-1)/2, j
}

// CombinationAt returns the k-combination of {0, ..., n-1} of
// colexicographic rank idx, in increasing order.  The rank of c_0 < c_1 <
// ... < c_{k-1} is the sum of C(c_m, m+1).
func CombinationAt(idx, n, k int) []int {
	if k < 0 || k > n || idx < 0 || idx >= binomial(n, k) {
		panic(fmt.Sprintf("ibd: combination index %d out of range for C(%d, %d)", idx, n, k))
	}
	out := make([]int, k)
	c := n - 1
	for m := k; m > 0; m-- {
		for binomial(c, m) > idx {
			c--
		}
		out[m-1] = c
		idx -= binomial(c, m)
		c--
	}
	return out
}
