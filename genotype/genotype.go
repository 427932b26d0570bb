// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package genotype holds biallelic genotype data for a set of individuals in
// a sparse form: for every individual and chromosome, the sorted indices of
// the markers at which each haplotype carries the minor allele.
package genotype

import (
	"sort"
)

// Genotypes is one individual's data on one chromosome.  All three lists are
// strictly increasing marker indices.
type Genotypes struct {
	// HapA and HapB list the markers at which the first and second haplotype
	// carry the minor allele.
	HapA, HapB []int
	// Missing lists markers without a genotype call.
	Missing []int
}

// SetAllele records the allele of haplotype hap (0 or 1) at marker.  An
// allele of 1 is the minor allele, 0 the major allele, and a negative value
// marks the whole genotype missing.  Markers must be set in nondecreasing
// order.
func (g *Genotypes) SetAllele(marker, hap, allele int) {
	switch {
	case allele < 0:
		if n := len(g.Missing); n == 0 || g.Missing[n-1] != marker {
			g.Missing = append(g.Missing, marker)
		}
	case allele == 0:
	case hap == 0:
		g.HapA = append(g.HapA, marker)
	default:
		g.HapB = append(g.HapB, marker)
	}
}

// Hap returns the minor-allele list of haplotype 0 (A) or 1 (B).
func (g *Genotypes) Hap(hap int) []int {
	if hap == 0 {
		return g.HapA
	}
	return g.HapB
}

func (g *Genotypes) setHap(hap int, sites []int) {
	if hap == 0 {
		g.HapA = sites
	} else {
		g.HapB = sites
	}
}

// CopyHap replaces the markers [lo, hi) of haplotype hap with those of the
// haplotype src.
func (g *Genotypes) CopyHap(hap int, src []int, lo, hi int) {
	g.setHap(hap, Splice(g.Hap(hap), src, lo, hi))
}

func contains(sorted []int, x int) bool {
	i := sort.SearchInts(sorted, x)
	return i < len(sorted) && sorted[i] == x
}

// MinorAlleleCount returns the number of minor alleles, 0-2, carried at
// marker.
func (g *Genotypes) MinorAlleleCount(marker int) int {
	n := 0
	if contains(g.HapA, marker) {
		n++
	}
	if contains(g.HapB, marker) {
		n++
	}
	return n
}

// IsMissing reports whether marker has no genotype call.
func (g *Genotypes) IsMissing(marker int) bool {
	return contains(g.Missing, marker)
}

// Dosages returns the dense minor-allele count at each of the first
// nMarkers markers.
func (g *Genotypes) Dosages(nMarkers int) []int {
	out := make([]int, nMarkers)
	for _, m := range g.HapA {
		out[m]++
	}
	for _, m := range g.HapB {
		out[m]++
	}
	return out
}

// Clone returns a deep copy of g.
func (g *Genotypes) Clone() *Genotypes {
	return &Genotypes{
		HapA:    append([]int(nil), g.HapA...),
		HapB:    append([]int(nil), g.HapB...),
		Missing: append([]int(nil), g.Missing...),
	}
}

// Splice returns a copy of dst in which markers [start, stop) are replaced
// by the markers of src within the same range.  Both inputs must be sorted.
func Splice(dst, src []int, start, stop int) []int {
	lo := sort.SearchInts(dst, start)
	hi := sort.SearchInts(dst, stop)
	srcLo := sort.SearchInts(src, start)
	srcHi := sort.SearchInts(src, stop)
	out := make([]int, 0, lo+(srcHi-srcLo)+(len(dst)-hi))
	out = append(out, dst[:lo]...)
	out = append(out, src[srcLo:srcHi]...)
	return append(out, dst[hi:]...)
}
