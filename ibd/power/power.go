// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package power estimates the sensitivity of IBD detection on a dataset.
// Each replicate picks three distinct individuals, copies a random span of
// one haplotype of the third into a haplotype of each of the other two, and
// checks whether detection between the two recovers the span.
package power

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/ibd"
	"gonum.org/v1/gonum/stat"
)

// Opts configures a power analysis.
type Opts struct {
	// IBD configures detection.  IBD.Parallelism also sets the number of
	// replicates run concurrently.
	IBD ibd.Opts
	// Sizes are the lengths, in bp, of the synthetic segments.
	Sizes []int
	// Replicates is the number of synthetic pairs per size.
	Replicates int
	// Chrom is the index of the chromosome the segments are placed on.
	Chrom int
	// Seed seeds the random generator.  A run is reproducible given the
	// dataset, Opts and Seed, whatever the parallelism.
	Seed int64
}

// DefaultOpts is the default Opts.  It has no sizes.
var DefaultOpts = Opts{
	IBD:        ibd.DefaultOpts,
	Replicates: 1000,
	Seed:       1,
}

// Span is a closed interval [Start, Stop] of positions.
type Span struct {
	Start, Stop int
}

// Overlaps reports whether s and o share a position.
func (s Span) Overlaps(o Span) bool {
	return (s.Start <= o.Start && o.Start <= s.Stop) || (o.Start <= s.Start && s.Start <= o.Stop)
}

// OverlapLength returns the length of the intersection of s and o.
func (s Span) OverlapLength(o Span) int {
	stop, start := s.Stop, s.Start
	if o.Stop < stop {
		stop = o.Stop
	}
	if o.Start > start {
		start = o.Start
	}
	return stop - start
}

// Replicate is the outcome of one synthetic pair.
type Replicate struct {
	// Span is the synthetic IBD segment.
	Span Span
	// Segments are the detected segments overlapping Span.
	Segments []ibd.Segment
	// Overlap is the total length of Span covered by Segments.
	Overlap int
}

// Detected reports whether any segment overlaps the synthetic one.
func (r *Replicate) Detected() bool { return len(r.Segments) > 0 }

// Result holds the replicates of one segment size.
type Result struct {
	Size       int
	Replicates []Replicate
}

// NumDetected returns the number of replicates with a detected segment.
func (r *Result) NumDetected() int {
	n := 0
	for i := range r.Replicates {
		if r.Replicates[i].Detected() {
			n++
		}
	}
	return n
}

// Power returns the fraction of replicates with a detected segment.
func (r *Result) Power() float64 {
	if len(r.Replicates) == 0 {
		return 0
	}
	return float64(r.NumDetected()) / float64(len(r.Replicates))
}

// PropDetected returns the fraction of all synthetic bp covered by detected
// segments.
func (r *Result) PropDetected() float64 {
	if len(r.Replicates) == 0 || r.Size == 0 {
		return 0
	}
	var covered int64
	for i := range r.Replicates {
		covered += int64(r.Replicates[i].Overlap)
	}
	return float64(covered) / (float64(r.Size) * float64(len(r.Replicates)))
}

// MeanSegments returns the mean number of overlapping segments among
// detected replicates, or 0 if there are none.
func (r *Result) MeanSegments() float64 {
	n, segs := 0, 0
	for i := range r.Replicates {
		if rep := &r.Replicates[i]; rep.Detected() {
			n++
			segs += len(rep.Segments)
		}
	}
	if n == 0 {
		return 0
	}
	return float64(segs) / float64(n)
}

// LengthDiffs returns, for each detected replicate, the length of the first
// overlapping segment minus Size.
func (r *Result) LengthDiffs() []float64 {
	var diffs []float64
	for i := range r.Replicates {
		if rep := &r.Replicates[i]; rep.Detected() {
			diffs = append(diffs, float64(rep.Segments[0].Length()-r.Size))
		}
	}
	return diffs
}

// LengthDiffStats returns the mean and standard deviation of LengthDiffs.
// Both are NaN when fewer than two replicates were detected.
func (r *Result) LengthDiffStats() (mean, sd float64) {
	diffs := r.LengthDiffs()
	switch len(diffs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return diffs[0], math.NaN()
	}
	return stat.MeanStdDev(diffs, nil)
}

// RandomSpan returns a span of size bp placed uniformly between the first
// and last markers of chrom.
func RandomSpan(rng *rand.Rand, chrom *genotype.Chromosome, size int) (Span, error) {
	if size <= 0 || size > chrom.Size() {
		return Span{}, errors.E(errors.Invalid, fmt.Sprintf("power: segment size %d does not fit chromosome %s of %d bp", size, chrom.Label, chrom.Size()))
	}
	first := chrom.Positions[0]
	start := first + rng.Intn(chrom.Size()-size+1)
	return Span{Start: start, Stop: start + size}, nil
}

// SyntheticPair returns copies of the genotypes of two random individuals
// of data on chromosome c that both carry, on one of their haplotypes, the
// markers of span from one haplotype of a third individual.
func SyntheticPair(rng *rand.Rand, data *genotype.Dataset, c int, span Span) (g1, g2 *genotype.Genotypes, err error) {
	n := data.NumIndividuals()
	if n < 3 {
		return nil, nil, errors.E(errors.Invalid, fmt.Sprintf("power: need at least 3 individuals, have %d", n))
	}
	a := rng.Intn(n)
	b := a
	for b == a {
		b = rng.Intn(n)
	}
	t := a
	for t == a || t == b {
		t = rng.Intn(n)
	}
	g1 = data.Genotypes(a, c).Clone()
	g2 = data.Genotypes(b, c).Clone()
	src := data.Genotypes(t, c).Hap(rng.Intn(2))
	lo, hi := data.Chromosome(c).MarkerRange(span.Start, span.Stop+1)
	g1.CopyHap(rng.Intn(2), src, lo, hi)
	g2.CopyHap(rng.Intn(2), src, lo, hi)
	return g1, g2, nil
}

// RunReplicate simulates and scores one synthetic pair of size bp.
func RunReplicate(rng *rand.Rand, data *genotype.Dataset, params *ibd.Params, c, size int) (Replicate, error) {
	chrom := data.Chromosome(c)
	span, err := RandomSpan(rng, chrom, size)
	if err != nil {
		return Replicate{}, err
	}
	g1, g2, err := SyntheticPair(rng, data, c, span)
	if err != nil {
		return Replicate{}, err
	}
	res, err := ibd.DetectGenotypes(g1, g2, chrom, c, params)
	if err != nil {
		return Replicate{}, err
	}
	rep := Replicate{Span: span}
	for _, seg := range res.Segments {
		detected := Span{Start: seg.StartBP, Stop: seg.StopBP}
		if detected.Overlaps(span) {
			rep.Segments = append(rep.Segments, seg)
			rep.Overlap += detected.OverlapLength(span)
		}
	}
	return rep, nil
}

func (o *Opts) validate(data *genotype.Dataset) error {
	if o.Replicates <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("power: %d replicates", o.Replicates))
	}
	if len(o.Sizes) == 0 {
		return errors.E(errors.Invalid, "power: no segment sizes")
	}
	if o.Chrom < 0 || o.Chrom >= data.NumChromosomes() {
		return errors.E(errors.Invalid, fmt.Sprintf("power: chromosome index %d out of range", o.Chrom))
	}
	if n := data.NumIndividuals(); n < 3 {
		return errors.E(errors.Invalid, fmt.Sprintf("power: need at least 3 individuals, have %d", n))
	}
	chrom := data.Chromosome(o.Chrom)
	for _, size := range o.Sizes {
		if size <= 0 || size > chrom.Size() {
			return errors.E(errors.Invalid, fmt.Sprintf("power: segment size %d does not fit chromosome %s of %d bp", size, chrom.Label, chrom.Size()))
		}
	}
	return nil
}

// Run runs opts.Replicates replicates for each of opts.Sizes and returns one
// Result per size.
func Run(ctx context.Context, data *genotype.Dataset, opts Opts) ([]Result, error) {
	if err := opts.validate(data); err != nil {
		return nil, err
	}
	params, err := ibd.NewParams(data, opts.IBD)
	if err != nil {
		return nil, err
	}
	parallelism := opts.IBD.Parallelism
	if parallelism == 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > opts.Replicates {
		parallelism = opts.Replicates
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	results := make([]Result, len(opts.Sizes))
	for k, size := range opts.Sizes {
		// Each replicate draws from its own generator so the outcome does not
		// depend on scheduling.
		seeds := make([]int64, opts.Replicates)
		for i := range seeds {
			seeds[i] = rng.Int63()
		}
		reps := make([]Replicate, opts.Replicates)
		err := traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(reps)) / parallelism
			endIdx := ((jobIdx + 1) * len(reps)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				var err error
				reps[i], err = RunReplicate(rand.New(rand.NewSource(seeds[i])), data, params, opts.Chrom, size)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		results[k] = Result{Size: size, Replicates: reps}
		log.Printf("power: %s: %d/%d detected", ibd.FormatBP(size), results[k].NumDetected(), opts.Replicates)
	}
	return results, nil
}

// Header is the column header of the table written by WriteResults.
var Header = []string{"size", "nrep", "power", "prop_detected", "meanseg", "diff_mean", "diff_sd"}

// WriteResults writes one summary row per result to path, or to standard
// output if path is "-".
func WriteResults(ctx context.Context, path string, results []Result) (err error) {
	var w *tsv.Writer
	if path == ibd.Stdout {
		w = tsv.NewWriter(os.Stdout)
	} else {
		var f file.File
		if f, err = file.Create(ctx, path); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, f, &err)
		w = tsv.NewWriter(f.Writer(ctx))
	}
	for _, h := range Header {
		w.WriteString(h)
	}
	if err := w.EndLine(); err != nil {
		return err
	}
	for i := range results {
		r := &results[i]
		mean, sd := r.LengthDiffStats()
		w.WriteInt64(int64(r.Size))
		w.WriteInt64(int64(len(r.Replicates)))
		for _, v := range []float64{r.Power(), r.PropDetected(), r.MeanSegments(), mean, sd} {
			w.WriteFloat64(v, 'g', 6)
		}
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
