// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"sort"
)

// Exclusion reasons recorded by readers that drop variants.
const (
	ExcludeNonSNV        = "Non-SNV"
	ExcludeNonBiallelic  = "Non-biallelic"
	ExcludeMonomorphic   = "Monomorphic"
	ExcludeSingleton     = "Singleton"
	ExcludeMalformedCall = "Malformed"
)

// Chromosome describes the retained markers of one chromosome.  Positions,
// Frequencies and VariantLabels are indexed by marker index, and Positions
// is sorted.
type Chromosome struct {
	Label string
	// Positions are 1-based base-pair coordinates.
	Positions []int
	// Frequencies are minor allele frequencies, in [0, 0.5].
	Frequencies   []float64
	VariantLabels []string
	// Exclusions counts variants that were dropped, by reason.
	Exclusions map[string]int
}

// NewChromosome returns an empty chromosome.
func NewChromosome(label string) *Chromosome {
	return &Chromosome{Label: label, Exclusions: map[string]int{}}
}

// AddVariant appends a marker.  pos must not be smaller than the position of
// the previous marker.
func (c *Chromosome) AddVariant(label string, pos int, freq float64) int {
	c.Positions = append(c.Positions, pos)
	c.Frequencies = append(c.Frequencies, freq)
	c.VariantLabels = append(c.VariantLabels, label)
	return len(c.Positions) - 1
}

// Exclude counts one dropped variant.
func (c *Chromosome) Exclude(reason string) {
	if c.Exclusions == nil {
		c.Exclusions = map[string]int{}
	}
	c.Exclusions[reason]++
}

// NumMarkers returns the number of retained markers.
func (c *Chromosome) NumMarkers() int { return len(c.Positions) }

// NumExcluded returns the total number of dropped variants.
func (c *Chromosome) NumExcluded() int {
	n := 0
	for _, v := range c.Exclusions {
		n += v
	}
	return n
}

// Size returns the distance in bp between the first and last marker.
func (c *Chromosome) Size() int {
	if len(c.Positions) == 0 {
		return 0
	}
	return c.Positions[len(c.Positions)-1] - c.Positions[0]
}

// MarkerRange returns the half-open marker index range [lo, hi) whose
// positions lie in [start, stop).
func (c *Chromosome) MarkerRange(start, stop int) (lo, hi int) {
	return sort.SearchInts(c.Positions, start), sort.SearchInts(c.Positions, stop)
}

// RareMarkers returns the indices of markers whose frequency is below
// threshold.
func (c *Chromosome) RareMarkers(threshold float64) []int {
	var rare []int
	for i, f := range c.Frequencies {
		if f < threshold {
			rare = append(rare, i)
		}
	}
	return rare
}
