// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-ibd-power estimates how often bio-ibd recovers IBD segments of given
lengths in a cohort.  For each length it simulates pairs of individuals that
share one haplotype over a random span of a chromosome and reports, per
length:

  size nrep power prop_detected meanseg diff_mean diff_sd

where power is the fraction of replicates with a segment overlapping the
span, prop_detected the fraction of simulated bp covered, meanseg the mean
number of overlapping segments in detected replicates, and diff_mean and
diff_sd summarize the length of the first such segment minus size.

Sample usage:
bio-ibd-power -sizes 1000000,2000000,5000000 -nrep 500 cohort.vcf.gz
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/ibd/encoding/vcf"
	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/ibd"
	"github.com/grailbio/ibd/ibd/power"
)

var (
	freqField       = flag.String("freq-field", vcf.DefaultOpts.FreqField, "VCF INFO field holding the allele frequency; \"-\" computes frequencies from the genotypes")
	keepSingletons  = flag.Bool("keep-singletons", vcf.DefaultOpts.KeepSingletons, "Keep variants with a single minor allele")
	keepMonomorphic = flag.Bool("keep-monomorphic", vcf.DefaultOpts.KeepMonomorphic, "Keep variants without any minor allele")
	freqFloor       = flag.Float64("freq-floor", vcf.DefaultOpts.FreqFloor, "Frequencies below this are raised to it")
	roundPlaces     = flag.Int("round", vcf.DefaultOpts.RoundPlaces, "Decimal places computed frequencies are rounded to")

	rare        = flag.Float64("rare", ibd.DefaultOpts.Rare, "Frequency below which a variant is rare")
	errCommon   = flag.Float64("err", ibd.DefaultOpts.ErrCommon, "Per-allele genotype error rate of common variants")
	errRare     = flag.Float64("err-rare", ibd.DefaultOpts.ErrRare, "Per-allele genotype error rate of rare variants")
	gamma       = flag.Float64("gamma", ibd.DefaultOpts.Gamma, "IBD entry penalty: P(enter) = 10^-gamma")
	rho         = flag.Float64("rho", ibd.DefaultOpts.Rho, "IBD exit penalty: P(exit) = 10^-rho")
	minLOD      = flag.Float64("min-lod", ibd.DefaultOpts.MinLOD, "Minimum LOD of a reported segment")
	minLength   = flag.Int("min-length", ibd.DefaultOpts.MinLength, "Minimum length in bp of a reported segment")
	minMark     = flag.Int("min-mark", ibd.DefaultOpts.MinMark, "Minimum number of shared rare variants in a reported segment")
	viterbi     = flag.Bool("viterbi", ibd.DefaultOpts.Viterbi, "Use maximum a posteriori (Viterbi) decoding")
	fineMap     = flag.Bool("fine-map", ibd.DefaultOpts.FineMap, "Refine segment boundaries with a second pass over neighbouring markers")
	parallelism = flag.Int("parallelism", 0, "Maximum number of simultaneous replicates; 0 = runtime.NumCPU()")

	sizes = flag.String("sizes", "", "Comma-separated synthetic segment lengths in bp")
	nrep  = flag.Int("nrep", power.DefaultOpts.Replicates, "Replicates per segment length")
	chrom = flag.String("chrom", "", "Chromosome to simulate on; default is the first in the VCF")
	seed  = flag.Int64("seed", power.DefaultOpts.Seed, "Random seed")
	out   = flag.String("out", ibd.Stdout, "Output path; \"-\" is stdout")
)

func bioIBDPowerUsage() {
	fmt.Printf("Usage: %s [OPTIONS] vcfpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		size, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("bad -sizes entry %q", f))
		}
		if size <= 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("bad -sizes entry %q: must be positive", f))
		}
		out = append(out, size)
	}
	return out, nil
}

func chromIndex(data *genotype.Dataset, label string) int {
	if label == "" {
		return 0
	}
	for c := 0; c < data.NumChromosomes(); c++ {
		if data.Chromosome(c).Label == label {
			return c
		}
	}
	log.Fatalf("chromosome %s not in the VCF", label)
	return -1
}

func main() {
	flag.Usage = bioIBDPowerUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("expected one VCF path, got '%s'", strings.Join(flag.Args(), " "))
	}
	sizeList, err := parseSizes(*sizes)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx := vcontext.Background()
	vcfOpts := vcf.DefaultOpts
	vcfOpts.FreqField = *freqField
	vcfOpts.EmpiricalFreqs = *freqField == "-"
	vcfOpts.KeepSingletons = *keepSingletons
	vcfOpts.KeepMonomorphic = *keepMonomorphic
	vcfOpts.FreqFloor = *freqFloor
	vcfOpts.RoundPlaces = *roundPlaces

	opts := power.DefaultOpts
	opts.IBD = ibd.Opts{
		Rare:         *rare,
		ErrCommon:    *errCommon,
		ErrRare:      *errRare,
		Gamma:        *gamma,
		Rho:          *rho,
		MinLOD:       *minLOD,
		MinLength:    *minLength,
		MinMark:      *minMark,
		MinRunLength: ibd.DefaultOpts.MinRunLength,
		Viterbi:      *viterbi,
		FineMap:      *fineMap,
		Parallelism:  *parallelism,
	}
	opts.Sizes = sizeList
	opts.Replicates = *nrep
	opts.Seed = *seed

	data, err := vcf.Read(ctx, flag.Arg(0), vcfOpts)
	if err != nil {
		log.Panicf("%v", err)
	}
	data.LogSummary(opts.IBD.Rare)
	opts.Chrom = chromIndex(data, *chrom)

	results, err := power.Run(ctx, data, opts)
	if err != nil {
		log.Panicf("%v", err)
	}
	if err := power.WriteResults(ctx, *out, results); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}
