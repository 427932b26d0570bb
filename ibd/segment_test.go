// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"math"
	"testing"

	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/linalg"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestRuns(t *testing.T) {
	states := []int{0, 1, 1, 0, 2, 2, 2, 0, 1}
	expect.EQ(t, Runs(states, 1, 1), []Run{{1, 3, 1}, {4, 7, 2}, {8, 9, 1}})
	expect.EQ(t, Runs(states, 1, 2), []Run{{1, 3, 1}, {4, 7, 2}})
	expect.EQ(t, Runs(states, 2, 1), []Run{{4, 7, 2}})
	expect.EQ(t, Runs([]int{1, 2, 2, 1}, 1, 1), []Run{{0, 4, 1}})
	expect.EQ(t, len(Runs([]int{0, 0}, 1, 1)), 0)
	expect.EQ(t, len(Runs(nil, 1, 1)), 0)
	expect.EQ(t, Run{Start: 4, Stop: 7}.Len(), 3)
}

func testChromosome(n int) *genotype.Chromosome {
	c := genotype.NewChromosome("7")
	for m := 0; m < n; m++ {
		c.AddVariant("", (m+1)*1000, 0.01)
	}
	return c
}

func repeatMatrix(m *linalg.Matrix, n int) []*linalg.Matrix {
	out := make([]*linalg.Matrix, n)
	for i := range out {
		out[i] = m
	}
	return out
}

func TestNewSegment(t *testing.T) {
	chrom := testChromosome(10)
	transition := TransitionMatrix(4, 3)
	sites := Sites{
		Markers: []int{0, 2, 3, 5, 7, 9},
		Codes:   []int{2, 4, 6, 5, 8, 0},
	}
	emissions := repeatMatrix(ObservedEmissionMatrix(0.01, 0.01), sites.Len())

	seg := NewSegment(Run{Start: 0, Stop: 6, Value: 2}, sites, emissions, transition, chrom)
	expect.False(t, seg.Empty)
	expect.EQ(t, seg.Chrom, "7")
	expect.EQ(t, seg.State, 2)
	expect.EQ(t, [2]int{seg.Start, seg.Stop}, [2]int{1, 4})
	expect.EQ(t, [2]int{seg.FullStart, seg.FullStop}, [2]int{2, 7})
	expect.EQ(t, [2]int{seg.StartBP, seg.StopBP}, [2]int{3000, 8000})
	expect.EQ(t, seg.Length(), 5000)
	expect.EQ(t, seg.NMark, 4)
	expect.EQ(t, seg.NRare, 3)
	expect.EQ(t, seg.NErr, 1)
	expect.EQ(t, seg.LOD, LOD(sites.Codes, emissions, transition, 1, 4, 2))

	// No shared minor allele in the run.
	seg = NewSegment(Run{Start: 0, Stop: 1, Value: 1}, sites, emissions, transition, chrom)
	expect.True(t, seg.Empty)
	expect.EQ(t, [2]int{seg.Start, seg.Stop}, [2]int{0, 0})
	expect.EQ(t, seg.LOD, NoLOD)
	expect.False(t, Filters{MinLOD: math.Inf(-1)}.Pass(&seg))

	// A single shared site.
	seg = NewSegment(Run{Start: 1, Stop: 3, Value: 1}, sites, emissions, transition, chrom)
	expect.False(t, seg.Empty)
	expect.EQ(t, [2]int{seg.Start, seg.Stop}, [2]int{1, 1})
	expect.EQ(t, seg.LOD, NoLOD)
	expect.False(t, DefaultOpts.Filters().Pass(&seg))
}

func TestLOD(t *testing.T) {
	transition := TransitionMatrix(4, 3)
	e := ObservedEmissionMatrix(0.01, 0.01)
	codes := []int{0, 4, 4, 0}
	emissions := repeatMatrix(e, len(codes))

	want := math.Log(transition.At(0, 2)) + math.Log(transition.At(2, 2)) + math.Log(transition.At(2, 0)) +
		2*math.Log(e.At(4, 2)) - 3*math.Log(transition.At(0, 0)) - 2*math.Log(e.At(4, 0))
	assert.InDelta(t, want, LOD(codes, emissions, transition, 1, 2, 2), 1e-9)
	expect.EQ(t, LOD(codes, emissions, transition, 2, 2, 2), NoLOD)
	expect.EQ(t, LOD(codes, emissions, transition, 3, 1, 2), NoLOD)

	// Shared rare variants favour IBD, more so with more of them.
	codes = make([]int, 30)
	for i := range codes {
		codes[i] = 4
	}
	emissions = repeatMatrix(e, len(codes))
	short := LOD(codes, emissions, transition, 0, 14, 2)
	long := LOD(codes, emissions, transition, 0, 29, 2)
	expect.GT(t, short, 0.0)
	expect.GT(t, long, short)
}

func TestFiltersMonotone(t *testing.T) {
	var segs []Segment
	for _, length := range []int{0, 500, 1000, 5000} {
		for _, nRare := range []int{1, 2, 4, 8} {
			for _, lod := range []float64{NoLOD, -1, 2, 10} {
				segs = append(segs, Segment{StartBP: 100, StopBP: 100 + length, NRare: nRare, LOD: lod})
			}
		}
	}
	segs = append(segs, Segment{StopBP: 1e9, NRare: 100, LOD: 100, Empty: true})
	count := func(f Filters) int {
		n := 0
		for i := range segs {
			if f.Pass(&segs[i]) {
				n++
			}
		}
		return n
	}
	base := Filters{MinLOD: math.Inf(-1)}
	expect.EQ(t, count(base), len(segs)-1)
	for _, raise := range []func(f *Filters, i int){
		func(f *Filters, i int) { f.MinLength = i * 1000 },
		func(f *Filters, i int) { f.MinMark = i * 2 },
		func(f *Filters, i int) { f.MinLOD = float64(i*4 - 2) },
	} {
		prev := count(base)
		for i := 0; i < 5; i++ {
			f := base
			raise(&f, i)
			n := count(f)
			expect.LE(t, n, prev)
			prev = n
		}
	}
}

func TestFineMapRequests(t *testing.T) {
	sites := Sites{Markers: []int{2, 5, 9, 12}, Codes: []int{4, 4, 4, 4}}
	segs := []Segment{
		{Start: 1, Stop: 1, FullStart: 5, FullStop: 5},
		{Empty: true},
		{Start: 2, Stop: 3, FullStart: 9, FullStop: 12},
	}
	expect.EQ(t, fineMapRequests(segs, sites, 15), []int{3, 4, 6, 7, 8, 13, 14})

	segs = []Segment{{Start: 0, Stop: 0, FullStart: 2, FullStop: 2}}
	expect.EQ(t, fineMapRequests(segs, sites, 15), []int{0, 1, 3, 4})

	// Adjacent informative sites leave nothing to add.
	sites = Sites{Markers: []int{0, 1, 2}, Codes: []int{4, 4, 4}}
	segs = []Segment{{Start: 0, Stop: 2, FullStart: 0, FullStop: 2}}
	expect.EQ(t, len(fineMapRequests(segs, sites, 3)), 0)
}
