// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"github.com/grailbio/ibd/genotype"
)

// An observation code describes the genotypes of a pair at one marker as
// 3*s1+s2, where s1 and s2 are the minor allele counts of the two
// individuals: 0 is AA,AA, 4 is AB,AB, 8 is BB,BB and so on.

// IsSharedRare reports whether both individuals carry the minor allele.
func IsSharedRare(code int) bool { return code >= 4 && code != 6 }

// IsOpposingHomozygote reports whether the individuals are homozygous for
// different alleles, which is impossible under IBD without a genotype error.
func IsOpposingHomozygote(code int) bool { return code == 2 || code == 6 }

// Sites is the informative-site sequence of one pair on one chromosome:
// strictly increasing marker indices and their observation codes.
type Sites struct {
	Markers []int
	Codes   []int
}

// Len returns the number of sites.
func (s Sites) Len() int { return len(s.Markers) }

// cursor walks a sorted marker list in step with a strictly increasing
// sequence of queries.
type cursor struct {
	list []int
	i    int
}

// has reports whether m is in the list.  m must not be smaller than the
// previous query.
func (c *cursor) has(m int) bool {
	for c.i < len(c.list) && c.list[c.i] < m {
		c.i++
	}
	return c.i < len(c.list) && c.list[c.i] == m
}

// InformativeSites merges the four haplotypes of g1 and g2 and keeps the
// markers at which the pair is informative about IBD: opposing homozygotes,
// shared minor alleles at rare markers, and any marker in requested.
// Markers missing in either individual are dropped.  rare and requested
// must be sorted.  The result is a pure function of its arguments.
func InformativeSites(g1, g2 *genotype.Genotypes, rare, requested []int) Sites {
	haps := [4][]int{g1.HapA, g1.HapB, g2.HapA, g2.HapB}
	var heads [4]int
	rareC := cursor{list: rare}
	reqC := cursor{list: requested}
	miss1 := cursor{list: g1.Missing}
	miss2 := cursor{list: g2.Missing}

	var sites Sites
	for {
		m := -1
		for k, h := range haps {
			if heads[k] < len(h) && (m < 0 || h[heads[k]] < m) {
				m = h[heads[k]]
			}
		}
		if m < 0 {
			break
		}
		var s1, s2 int
		for k, h := range haps {
			if heads[k] < len(h) && h[heads[k]] == m {
				heads[k]++
				if k < 2 {
					s1++
				} else {
					s2++
				}
			}
		}
		code := 3*s1 + s2
		isRare := rareC.has(m)
		isRequested := reqC.has(m)
		missing := miss1.has(m)
		if miss2.has(m) {
			missing = true
		}
		if missing {
			continue
		}
		if IsOpposingHomozygote(code) || (isRare && IsSharedRare(code)) || isRequested {
			sites.Markers = append(sites.Markers, m)
			sites.Codes = append(sites.Codes, code)
		}
	}
	return sites
}
