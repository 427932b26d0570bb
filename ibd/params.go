// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"math"

	"github.com/grailbio/ibd/linalg"
)

// TransitionMatrix returns the 3x3 state transition matrix, indexed
// [from][to], over the IBD states 0, 1 and 2.  With g = 10^-gamma the
// probability of moving one state up and r = 10^-rho the probability of
// moving one state down, two-state jumps have probability g^2 and r^2.
func TransitionMatrix(gamma, rho float64) *linalg.Matrix {
	g := math.Pow(10, -gamma)
	r := math.Pow(10, -rho)
	return linalg.FromRows([][]float64{
		{1 - g - g*g, g, g * g},
		{r, 1 - g - r, g},
		{r * r, r, 1 - r - r*r},
	})
}

// GenotypeErrorMatrix returns the 3x3 probabilities of observing genotype
// class j (number of minor alleles) given true class i, when every allele is
// independently miscalled with probability eps.
func GenotypeErrorMatrix(eps float64) *linalg.Matrix {
	n := 1 - eps
	return linalg.FromRows([][]float64{
		{n * n, 2 * n * eps, eps * eps},
		{n * eps, n*n + eps*eps, n * eps},
		{eps * eps, 2 * n * eps, n * n},
	})
}

// PairErrorMatrix returns the 9x9 error matrix of a pair of genotypes,
// indexed by the observation codes 3*s1+s2 of the true and observed pair.
func PairErrorMatrix(eps float64) *linalg.Matrix {
	e := GenotypeErrorMatrix(eps)
	return linalg.Kronecker(e, e)
}

// EmissionMatrix returns the 9x3 probabilities of each error-free
// observation code given each IBD state, for a marker with minor allele
// frequency q.
func EmissionMatrix(q float64) *linalg.Matrix {
	p := 1 - q
	p2, p3 := p*p, p*p*p
	q2, q3 := q*q, q*q*q
	pq := p * q
	return linalg.FromRows([][]float64{
		// IBD0        IBD1    IBD2
		{p2 * p2, p3, p2},         // 0: AA,AA
		{p3 * q, p2 * q, 0},       // 1: AA,AB
		{pq * pq, 0, 0},           // 2: AA,BB
		{p3 * q, p2 * q, 0},       // 3: AB,AA
		{4 * pq * pq, pq, 2 * pq}, // 4: AB,AB
		{p * q3, p * q2, 0},       // 5: AB,BB
		{pq * pq, 0, 0},           // 6: BB,AA
		{p * q3, p * q2, 0},       // 7: BB,AB
		{q2 * q2, q3, q2},         // 8: BB,BB
	})
}

// ObservedEmissionMatrix folds genotype errors at rate eps into
// EmissionMatrix(q): element (o, k) is the probability of observing code o
// in state k.
func ObservedEmissionMatrix(q, eps float64) *linalg.Matrix {
	return linalg.Product(PairErrorMatrix(eps).Transpose(), EmissionMatrix(q))
}

// EmissionTable caches observed emission matrices by exact minor allele
// frequency.  It is read-only once built.
type EmissionTable map[float64]*linalg.Matrix

// NewEmissionTable computes the emission matrix of every distinct frequency
// in freqs.  Frequencies below rare use the rare error rate.
func NewEmissionTable(freqs [][]float64, rare, errCommon, errRare float64) EmissionTable {
	t := EmissionTable{}
	for _, fs := range freqs {
		for _, q := range fs {
			if _, ok := t[q]; ok {
				continue
			}
			eps := errCommon
			if q < rare {
				eps = errRare
			}
			t[q] = ObservedEmissionMatrix(q, eps)
		}
	}
	return t
}

// Params is everything shared, read-only, by the pairs of one run.
type Params struct {
	Opts       Opts
	Transition *linalg.Matrix
	Emissions  EmissionTable
	// Rare lists, per chromosome, the marker indices with frequency below
	// Opts.Rare.
	Rare    [][]int
	Filters Filters
}

// NewParams validates opts and precomputes the model for data.
func NewParams(data Dataset, opts Opts) (*Params, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	nChrom := data.NumChromosomes()
	p := &Params{
		Opts:       opts,
		Transition: TransitionMatrix(opts.Gamma, opts.Rho),
		Rare:       make([][]int, nChrom),
		Filters:    opts.Filters(),
	}
	freqs := make([][]float64, nChrom)
	for c := 0; c < nChrom; c++ {
		chrom := data.Chromosome(c)
		freqs[c] = chrom.Frequencies
		p.Rare[c] = chrom.RareMarkers(opts.Rare)
	}
	p.Emissions = NewEmissionTable(freqs, opts.Rare, opts.ErrCommon, opts.ErrRare)
	return p, nil
}
