// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package hmm decodes hidden state paths of a discrete hidden Markov model
// whose emission probabilities vary from one observation to the next.
package hmm

import (
	"math"

	"github.com/grailbio/ibd/linalg"
)

// GenotypeHMM holds one observation sequence together with the model it is
// decoded under.  Rows of each emission matrix are observation codes and
// columns are hidden states; the transition matrix is indexed
// [from][to].
//
// A GenotypeHMM does not own its emission matrices.  They are typically
// shared, read-only, between many concurrent decoders.
type GenotypeHMM struct {
	obs        []int
	emissions  []*linalg.Matrix
	transition *linalg.Matrix
	nStates    int
}

// New creates a decoder.  len(emissions) must equal len(obs), every emission
// matrix must have one column per state, and the transition matrix must be
// square.
func New(obs []int, emissions []*linalg.Matrix, transition *linalg.Matrix) *GenotypeHMM {
	r, c := transition.Dims()
	if r != c || len(obs) != len(emissions) {
		panic(linalg.ErrNonconformable)
	}
	for _, e := range emissions {
		if e.Cols() != r {
			panic(linalg.ErrNonconformable)
		}
	}
	return &GenotypeHMM{
		obs:        obs,
		emissions:  emissions,
		transition: transition,
		nStates:    r,
	}
}

// Decode returns the most likely state at each observation: the Viterbi
// path if viterbi is set, the per-site posterior argmax otherwise.
func (h *GenotypeHMM) Decode(viterbi bool) []int {
	if viterbi {
		return h.Viterbi()
	}
	return h.ForwardBackward()
}

// emission returns the row of the i'th emission matrix for the i'th
// observation.  An observation code outside the matrix panics.
func (h *GenotypeHMM) emission(i int) linalg.View {
	return h.emissions[i].RowView(h.obs[i])
}

// normalize scales v to sum to one.  A column whose mass underflowed to
// zero is replaced by the uniform distribution so the recursion can carry
// on.
func normalize(v linalg.Vectorlike) {
	if s := linalg.Normalize(v); s == 0 || math.IsNaN(s) {
		u := 1 / float64(v.Len())
		for i := 0; i < v.Len(); i++ {
			v.Set(i, u)
		}
	}
}

// Posterior returns an nStates x (len(obs)+1) matrix whose column t+1 is the
// posterior state distribution at observation t.  Column 0 is the prior
// before any observation.  It returns nil for an empty observation
// sequence.
func (h *GenotypeHMM) Posterior() *linalg.Matrix {
	n := len(h.obs)
	if n == 0 {
		return nil
	}
	fwd := linalg.NewMatrix(h.nStates, n+1)
	bwd := linalg.NewMatrix(h.nStates, n+1)

	// Scratch vectors reused across iterations.
	col := linalg.NewVector(h.nStates)
	tmp := linalg.NewVector(h.nStates)

	fw := linalg.NewVectorFill(h.nStates, 1/float64(h.nStates))
	fwd.SetCol(0, fw)
	for t := 1; t <= n; t++ {
		linalg.VecMatProduct(fw, h.transition, tmp)
		linalg.DiagVecProduct(h.emission(t-1), tmp, col)
		normalize(col)
		fwd.SetCol(t, col)
		fw.Swap(col)
	}

	bw := linalg.NewVectorFill(h.nStates, 1)
	bwd.SetCol(n, bw)
	for t := n; t > 0; t-- {
		linalg.DiagVecProduct(h.emission(t-1), bw, tmp)
		linalg.MatVecProduct(h.transition, tmp, col)
		normalize(col)
		bwd.SetCol(t-1, col)
		bw.Swap(col)
	}

	post := linalg.DirectProduct(fwd, bwd)
	for t := 0; t <= n; t++ {
		normalize(post.ColView(t))
	}
	return post
}

// ForwardBackward returns, for each observation, the state with the highest
// posterior probability.  Ties go to the lowest state.
func (h *GenotypeHMM) ForwardBackward() []int {
	post := h.Posterior()
	if post == nil {
		return []int{}
	}
	return post.ArgMaxCols()[1:]
}

// Viterbi returns the single most likely state path, computed in log space.
// When several paths tie, the one reaching each state from the lowest
// predecessor wins.
func (h *GenotypeHMM) Viterbi() []int {
	n := len(h.obs)
	if n == 0 {
		return []int{}
	}
	lnT := h.transition.Apply(math.Log)

	logProbs := linalg.NewVector(h.nStates)
	next := linalg.NewVector(h.nStates)
	cand := linalg.NewVector(h.nStates)

	// paths[s] is the best path ending in state s.  Each step builds the new
	// paths from the previous generation only.
	paths := make([][]int, h.nStates)
	nextPaths := make([][]int, h.nStates)
	for s := range paths {
		paths[s] = make([]int, 0, n)
		nextPaths[s] = make([]int, 0, n)
	}

	for t := 0; t < n; t++ {
		e := h.emissions[t]
		o := h.obs[t]
		for s := 0; s < h.nStates; s++ {
			le := math.Log(e.At(o, s))
			for prev := 0; prev < h.nStates; prev++ {
				cand.Set(prev, logProbs.At(prev)+le+lnT.At(prev, s))
			}
			best := linalg.ArgMax(cand)
			next.Set(s, cand.At(best))
			nextPaths[s] = append(append(nextPaths[s][:0], paths[best]...), s)
		}
		logProbs.Swap(next)
		paths, nextPaths = nextPaths, paths
	}
	return append([]int(nil), paths[linalg.ArgMax(logProbs)]...)
}
