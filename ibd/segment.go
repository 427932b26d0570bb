// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"math"

	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/linalg"
)

// NoLOD is the LOD of a segment spanning fewer than two informative sites.
const NoLOD = -1e99

// Segment is a stretch of one chromosome that a pair of individuals is
// inferred to share.  Start and Stop are inclusive informative-site indices;
// FullStart and FullStop are the corresponding marker indices and StartBP
// and StopBP their positions.
type Segment struct {
	Ind1, Ind2 string
	Chrom      string

	Start, Stop         int
	FullStart, FullStop int
	StartBP, StopBP     int

	// State is the IBD state, 1 or 2.
	State int
	// NMark is the number of informative sites in the segment, NRare the
	// number with a shared minor allele and NErr the number of opposing
	// homozygotes.
	NMark, NRare, NErr int
	LOD                float64

	// Empty marks a run that held no shared minor allele.  Its other fields
	// are meaningless.
	Empty bool
}

// Length returns the length of the segment in bp.
func (s *Segment) Length() int { return s.StopBP - s.StartBP }

// NewSegment builds the segment of run, trimming it inward so both ends are
// shared minor alleles, and scores it.  emissions[i] is the emission matrix
// of site i.
func NewSegment(run Run, sites Sites, emissions []*linalg.Matrix, transition *linalg.Matrix, chrom *genotype.Chromosome) Segment {
	seg := Segment{
		Chrom: chrom.Label,
		Start: run.Start,
		Stop:  run.Stop - 1,
		State: run.Value,
	}
	codes := sites.Codes
	for !IsSharedRare(codes[seg.Stop]) {
		if seg.Stop == seg.Start {
			return emptySegment(seg)
		}
		seg.Stop--
	}
	for !IsSharedRare(codes[seg.Start]) {
		seg.Start++
	}
	seg.NMark = seg.Stop - seg.Start + 1
	for _, code := range codes[seg.Start : seg.Stop+1] {
		if IsSharedRare(code) {
			seg.NRare++
		}
		if IsOpposingHomozygote(code) {
			seg.NErr++
		}
	}
	seg.FullStart = sites.Markers[seg.Start]
	seg.FullStop = sites.Markers[seg.Stop]
	seg.StartBP = chrom.Positions[seg.FullStart]
	seg.StopBP = chrom.Positions[seg.FullStop]
	seg.LOD = LOD(codes, emissions, transition, seg.Start, seg.Stop, seg.State)
	return seg
}

func emptySegment(seg Segment) Segment {
	seg.Start, seg.Stop = 0, 0
	seg.LOD = NoLOD
	seg.Empty = true
	return seg
}

// LOD returns the natural-log odds of the codes in sites [start, stop]
// having been emitted in state k, entered from and left to state 0, versus
// in state 0 throughout.  It returns NoLOD when start >= stop.
func LOD(codes []int, emissions []*linalg.Matrix, transition *linalg.Matrix, start, stop, k int) float64 {
	if start >= stop {
		return NoLOD
	}
	n := float64(stop - start + 1)
	ibd := math.Log(transition.At(0, k)) + (n-1)*math.Log(transition.At(k, k)) + math.Log(transition.At(k, 0))
	null := (n + 1) * math.Log(transition.At(0, 0))
	for i := start; i <= stop; i++ {
		ibd += math.Log(emissions[i].At(codes[i], k))
		null += math.Log(emissions[i].At(codes[i], 0))
	}
	return ibd - null
}

// Filters are the thresholds a segment must meet to be reported.
type Filters struct {
	MinLength int
	MinMark   int
	MinLOD    float64
}

// Pass reports whether seg is non-empty and meets every threshold.
func (f Filters) Pass(seg *Segment) bool {
	return !seg.Empty &&
		seg.Length() >= f.MinLength &&
		seg.NRare >= f.MinMark &&
		seg.LOD >= f.MinLOD
}

// fineMapRequests returns the markers strictly between each segment's
// endpoints and the neighbouring informative sites, clipped to the
// chromosome.  segs must be in site order.
func fineMapRequests(segs []Segment, sites Sites, nMarkers int) []int {
	var req []int
	add := func(lo, hi int) {
		if n := len(req); n > 0 && lo <= req[n-1] {
			lo = req[n-1] + 1
		}
		for m := lo; m < hi; m++ {
			req = append(req, m)
		}
	}
	for i := range segs {
		s := &segs[i]
		if s.Empty {
			continue
		}
		lo := 0
		if s.Start > 0 {
			lo = sites.Markers[s.Start-1] + 1
		}
		add(lo, s.FullStart)
		hi := nMarkers
		if s.Stop+1 < sites.Len() {
			hi = sites.Markers[s.Stop+1]
		}
		add(s.FullStop+1, hi)
	}
	return req
}
