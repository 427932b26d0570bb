// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/ibd/encoding/vcf"
	"github.com/grailbio/ibd/ibd"
)

var (
	freqField       = flag.String("freq-field", vcf.DefaultOpts.FreqField, "VCF INFO field holding the allele frequency; \"-\" computes frequencies from the genotypes")
	keepSingletons  = flag.Bool("keep-singletons", vcf.DefaultOpts.KeepSingletons, "Keep variants with a single minor allele")
	keepMonomorphic = flag.Bool("keep-monomorphic", vcf.DefaultOpts.KeepMonomorphic, "Keep variants without any minor allele")
	freqFloor       = flag.Float64("freq-floor", vcf.DefaultOpts.FreqFloor, "Frequencies below this are raised to it")
	roundPlaces     = flag.Int("round", vcf.DefaultOpts.RoundPlaces, "Decimal places computed frequencies are rounded to")

	rare         = flag.Float64("rare", ibd.DefaultOpts.Rare, "Frequency below which a variant is rare")
	errCommon    = flag.Float64("err", ibd.DefaultOpts.ErrCommon, "Per-allele genotype error rate of common variants")
	errRare      = flag.Float64("err-rare", ibd.DefaultOpts.ErrRare, "Per-allele genotype error rate of rare variants")
	gamma        = flag.Float64("gamma", ibd.DefaultOpts.Gamma, "IBD entry penalty: P(enter) = 10^-gamma")
	rho          = flag.Float64("rho", ibd.DefaultOpts.Rho, "IBD exit penalty: P(exit) = 10^-rho")
	minLOD       = flag.Float64("min-lod", ibd.DefaultOpts.MinLOD, "Minimum LOD of a reported segment")
	minLength    = flag.Int("min-length", ibd.DefaultOpts.MinLength, "Minimum length in bp of a reported segment")
	minMark      = flag.Int("min-mark", ibd.DefaultOpts.MinMark, "Minimum number of shared rare variants in a reported segment")
	minRunLength = flag.Int("min-run", ibd.DefaultOpts.MinRunLength, "Minimum number of consecutive IBD sites that start a segment")
	viterbi      = flag.Bool("viterbi", ibd.DefaultOpts.Viterbi, "Use maximum a posteriori (Viterbi) decoding instead of posterior decoding")
	fineMap      = flag.Bool("fine-map", ibd.DefaultOpts.FineMap, "Refine segment boundaries with a second pass over neighbouring markers")
	parallelism  = flag.Int("parallelism", 0, "Maximum number of simultaneous pair jobs; 0 = runtime.NumCPU()")
	out          = flag.String("out", ibd.Stdout, "Output path; \"-\" is stdout and a .gz suffix selects bgzip compression")
	progress     = flag.String("progress", "bar", "Progress report: 'bar', 'log' or 'none'")
)

func bioIBDUsage() {
	fmt.Printf("Usage: %s [OPTIONS] vcfpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func newProgress(kind string, total int) ibd.Progress {
	switch kind {
	case "bar":
		return ibd.NewBarProgress(total)
	case "log":
		return ibd.NewLogProgress(total)
	case "none":
		return ibd.NopProgress{}
	}
	log.Fatalf("unknown -progress %q", kind)
	return nil
}

func main() {
	flag.Usage = bioIBDUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("expected one VCF path, got '%s'", strings.Join(flag.Args(), " "))
	}
	ctx := vcontext.Background()
	vcfOpts := vcf.Opts{
		FreqField:       *freqField,
		EmpiricalFreqs:  *freqField == "-",
		RoundPlaces:     *roundPlaces,
		KeepSingletons:  *keepSingletons,
		KeepMonomorphic: *keepMonomorphic,
		FreqFloor:       *freqFloor,
	}
	opts := ibd.Opts{
		Rare:         *rare,
		ErrCommon:    *errCommon,
		ErrRare:      *errRare,
		Gamma:        *gamma,
		Rho:          *rho,
		MinLOD:       *minLOD,
		MinLength:    *minLength,
		MinMark:      *minMark,
		MinRunLength: *minRunLength,
		Viterbi:      *viterbi,
		FineMap:      *fineMap,
		Parallelism:  *parallelism,
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	data, err := vcf.Read(ctx, flag.Arg(0), vcfOpts)
	if err != nil {
		log.Panicf("%v", err)
	}
	data.LogSummary(opts.Rare)

	total := ibd.NumPairs(data.NumIndividuals()) * data.NumChromosomes()
	stats, err := ibd.Detect(ctx, data, *out, opts, newProgress(*progress, total))
	if err != nil {
		log.Panicf("%v", err)
	}
	log.Printf("%d segments from %d pairs, %d skipped", stats.Segments, stats.Pairs, stats.Skipped)
	log.Debug.Printf("exiting")
}
