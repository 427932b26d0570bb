// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/hmm"
	"github.com/grailbio/ibd/linalg"
)

// Dataset is the genotype data IBD detection reads.  Implementations must be
// safe for concurrent reads.
type Dataset interface {
	NumIndividuals() int
	NumChromosomes() int
	Chromosome(c int) *genotype.Chromosome
	Label(i int) string
	Genotypes(i, c int) *genotype.Genotypes
}

// PairResult is the outcome of one (pair, chromosome) job.
type PairResult struct {
	// Segments are the segments that pass the filters, in chromosome order.
	Segments []Segment
	// NumSites is the number of informative sites decoded.
	NumSites int
}

// emissionsFor looks up the emission matrix of every site.  A site whose
// marker is not on chrom is an error.
func emissionsFor(sites Sites, chrom *genotype.Chromosome, table EmissionTable) ([]*linalg.Matrix, error) {
	out := make([]*linalg.Matrix, sites.Len())
	for i, m := range sites.Markers {
		if m < 0 || m >= chrom.NumMarkers() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("marker %d out of range for chromosome %s of %d markers", m, chrom.Label, chrom.NumMarkers()))
		}
		q := chrom.Frequencies[m]
		e, ok := table[q]
		if !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("no emission matrix for frequency %v of marker %d", q, m))
		}
		out[i] = e
	}
	return out, nil
}

// segments decodes sites and returns every candidate segment, filtered or
// not.
func (p *Params) segments(sites Sites, chrom *genotype.Chromosome) ([]Segment, error) {
	if sites.Len() == 0 {
		return nil, nil
	}
	emissions, err := emissionsFor(sites, chrom, p.Emissions)
	if err != nil {
		return nil, err
	}
	states := hmm.New(sites.Codes, emissions, p.Transition).Decode(p.Opts.Viterbi)
	runs := Runs(states, 1, p.Opts.MinRunLength)
	segs := make([]Segment, len(runs))
	for i, r := range runs {
		segs[i] = NewSegment(r, sites, emissions, p.Transition, chrom)
	}
	return segs, nil
}

// DetectGenotypes runs IBD detection between g1 and g2 on chromosome c.
// The returned segments carry no individual labels.
func DetectGenotypes(g1, g2 *genotype.Genotypes, chrom *genotype.Chromosome, c int, params *Params) (PairResult, error) {
	rare := params.Rare[c]
	sites := InformativeSites(g1, g2, rare, nil)
	segs, err := params.segments(sites, chrom)
	if err != nil {
		return PairResult{}, err
	}
	if params.Opts.FineMap && len(segs) > 0 {
		if req := fineMapRequests(segs, sites, chrom.NumMarkers()); len(req) > 0 {
			sites = InformativeSites(g1, g2, rare, req)
			if segs, err = params.segments(sites, chrom); err != nil {
				return PairResult{}, err
			}
		}
	}
	res := PairResult{NumSites: sites.Len()}
	for i := range segs {
		if params.Filters.Pass(&segs[i]) {
			res.Segments = append(res.Segments, segs[i])
		}
	}
	return res, nil
}

// DetectPair runs IBD detection between individuals i and j on chromosome c.
func DetectPair(data Dataset, params *Params, c, i, j int) (PairResult, error) {
	res, err := DetectGenotypes(data.Genotypes(i, c), data.Genotypes(j, c), data.Chromosome(c), c, params)
	if err != nil {
		return res, err
	}
	ind1, ind2 := data.Label(i), data.Label(j)
	for k := range res.Segments {
		res.Segments[k].Ind1 = ind1
		res.Segments[k].Ind2 = ind2
	}
	return res, nil
}

// Detect runs IBD detection on every pair of individuals of data, on every
// chromosome, and writes the segments that pass the filters to outPath as a
// table with columns Header.  outPath "-" is standard output, and a path
// ending in ".gz" is bgzip compressed.  Rows of different pairs appear in no
// particular order.  A pair that fails is logged and skipped.
func Detect(ctx context.Context, data Dataset, outPath string, opts Opts, progress Progress) (stats Stats, err error) {
	params, err := NewParams(data, opts)
	if err != nil {
		return Stats{}, err
	}
	if progress == nil {
		progress = NopProgress{}
	}
	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = runtime.NumCPU()
	}
	n := data.NumIndividuals()
	nPairs := NumPairs(n)
	nJobs := nPairs * data.NumChromosomes()
	if parallelism > nJobs {
		parallelism = nJobs
	}
	log.Printf("ibd: %s individuals, %s pairs x %d chromosomes, %d workers",
		humanize.Comma(int64(n)), humanize.Comma(int64(nPairs)), data.NumChromosomes(), parallelism)

	s, closeSink, err := openSink(ctx, outPath, parallelism, progress)
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		var once errors.Once
		once.Set(err)
		once.Set(closeSink())
		err = once.Err()
		progress.Finish()
		stats = s.stats
	}()

	if nJobs == 0 {
		return
	}
	err = traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nJobs) / parallelism
		endIdx := ((jobIdx + 1) * nJobs) / parallelism
		for idx := startIdx; idx < endIdx; idx++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := idx / nPairs
			i, j := PairAt(idx%nPairs, n)
			res, err := DetectPair(data, params, c, i, j)
			if err != nil {
				log.Error.Printf("ibd: skipping %s/%s on chromosome %s: %v",
					data.Label(i), data.Label(j), data.Chromosome(c).Label, err)
				s.skip()
				continue
			}
			if err := s.add(res); err != nil {
				return err
			}
		}
		return nil
	})
	return
}
