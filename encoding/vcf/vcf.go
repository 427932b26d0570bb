// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package vcf loads biallelic SNV genotypes from a VCF file into a
// genotype.Dataset.  See https://samtools.github.io/hts-specs/VCFv4.3.pdf.
// Briefly, after any number of "##" meta lines, a "#CHROM" header names the
// samples from its tenth column on, and every following line is one variant:
//
//   CHROM POS ID REF ALT QUAL FILTER INFO FORMAT sample1 sample2 ...
//
// Only the GT subfield of each sample column is used.  Records must be
// grouped by chromosome and sorted by position within a chromosome.
//
// Variants that are not SNVs, not biallelic, monomorphic or singletons are
// dropped and counted per chromosome.  Every retained variant is recoded so
// that the allele with frequency <= 0.5 is the minor allele.
package vcf

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/ibd/genotype"
	"github.com/pkg/errors"
)

// ExcludeNoFrequency counts variants lacking the configured INFO frequency.
const ExcludeNoFrequency = "No-frequency"

// Opts controls how a VCF file is turned into a dataset.
type Opts struct {
	// FreqField is the INFO key holding the alternate allele frequency.
	FreqField string
	// EmpiricalFreqs computes allele frequencies from the genotypes instead
	// of reading FreqField.  Empirical frequencies are rounded to
	// RoundPlaces decimal places.
	EmpiricalFreqs bool
	RoundPlaces    int
	// KeepSingletons retains variants with exactly one minor allele.
	KeepSingletons bool
	// KeepMonomorphic retains variants without any minor allele.
	KeepMonomorphic bool
	// FreqFloor is the smallest frequency kept; lower frequencies are raised
	// to it.
	FreqFloor float64
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	FreqField:   "AF",
	RoundPlaces: 4,
	FreqFloor:   0.001,
}

// Validate checks opts for consistency.
func (o *Opts) Validate() error {
	if !o.EmpiricalFreqs && o.FreqField == "" {
		return errors.Errorf("vcf: FreqField must be set unless frequencies are empirical")
	}
	if o.FreqFloor < 0 || o.FreqFloor > 0.5 {
		return errors.Errorf("vcf: FreqFloor %v outside [0, 0.5]", o.FreqFloor)
	}
	if o.RoundPlaces < 0 {
		return errors.Errorf("vcf: negative RoundPlaces %d", o.RoundPlaces)
	}
	return nil
}

// Read loads the VCF file at path, which may be gzip or bgzip compressed.
func Read(ctx context.Context, path string, opts Opts) (data *genotype.Dataset, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "vcf: open %s", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r, err := newLineReader(in.Reader(ctx), fileio.DetermineType(path) == fileio.Gzip)
	if err != nil {
		return nil, errors.Wrapf(err, "vcf: %s", path)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if data, err = read(r, opts); err != nil {
		return nil, errors.Wrapf(err, "vcf: %s", path)
	}
	return data, nil
}

// Parse loads uncompressed VCF text from r.
func Parse(r io.Reader, opts Opts) (*genotype.Dataset, error) {
	return read(newPlainLineReader(r), opts)
}

// calls collects the genotype calls of one record.  alts holds haplotype
// indices, 2*individual+hap, carrying the alternate allele; missing holds
// individual indices.
type calls struct {
	n       int
	alts    []int
	missing []int
}

func (c *calls) reset() {
	c.alts = c.alts[:0]
	c.missing = c.missing[:0]
}

func (c *calls) frequency() float64 {
	called := 2 * (c.n - len(c.missing))
	if called == 0 {
		return 0
	}
	return float64(len(c.alts)) / float64(called)
}

// invert swaps the roles of the reference and alternate alleles.  Uncalled
// individuals stay uncalled.
func (c *calls) invert() {
	var inv []int
	a, m := 0, 0
	for h := 0; h < 2*c.n; h++ {
		for m < len(c.missing) && c.missing[m] < h/2 {
			m++
		}
		if m < len(c.missing) && c.missing[m] == h/2 {
			continue
		}
		if a < len(c.alts) && c.alts[a] == h {
			a++
			continue
		}
		inv = append(inv, h)
	}
	c.alts = inv
}

type parser struct {
	opts    Opts
	data    *genotype.Dataset
	chrom   int
	seen    map[string]bool
	lastPos int
	lineNum int
	calls   calls
}

func read(r lineReader, opts Opts) (*genotype.Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &parser{opts: opts, data: genotype.NewDataset(), chrom: -1, seen: map[string]bool{}}
	header := false
	for r.Scan() {
		p.lineNum++
		line := r.Text()
		switch {
		case len(line) == 0 || strings.HasPrefix(line, "##"):
			continue
		case line[0] == '#':
			if header {
				return nil, errors.Errorf("line %d: duplicate header line", p.lineNum)
			}
			if err := p.parseHeader(line); err != nil {
				return nil, err
			}
			header = true
		case !header:
			return nil, errors.Errorf("line %d: record before #CHROM header line", p.lineNum)
		default:
			if err := p.parseRecord(line); err != nil {
				return nil, errors.Wrapf(err, "line %d", p.lineNum)
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read VCF data")
	}
	if !header {
		return nil, errors.Errorf("no #CHROM header line")
	}
	if opts.EmpiricalFreqs {
		p.data.RoundFrequencies(opts.RoundPlaces)
	}
	p.data.FloorFrequencies(opts.FreqFloor)
	return p.data, nil
}

func (p *parser) parseHeader(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return errors.Errorf("line %d: malformed header line: %d columns", p.lineNum, len(fields))
	}
	for _, label := range fields[9:] {
		if _, err := p.data.AddIndividual(label); err != nil {
			return errors.Wrapf(err, "line %d", p.lineNum)
		}
	}
	p.calls.n = p.data.NumIndividuals()
	return nil
}

// Column indices of a VCF record.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	colFormat
	colFirstSample
)

func (p *parser) parseRecord(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) != colFirstSample+p.calls.n {
		return errors.Errorf("expected %d columns, found %d", colFirstSample+p.calls.n, len(fields))
	}
	pos, err := strconv.Atoi(fields[colPos])
	if err != nil {
		return errors.Wrapf(err, "bad position %q", fields[colPos])
	}
	label := fields[colChrom]
	if p.chrom < 0 || p.data.Chromosome(p.chrom).Label != label {
		if p.seen[label] {
			return errors.Errorf("records of chromosome %s are not contiguous", label)
		}
		p.seen[label] = true
		p.chrom = p.data.AddChromosome(label)
		p.lastPos = 0
	}
	if pos < p.lastPos {
		return errors.Errorf("%s:%d: records are not sorted by position", label, pos)
	}
	p.lastPos = pos
	chrom := p.data.Chromosome(p.chrom)

	alleles := append([]string{fields[colRef]}, strings.Split(fields[colAlt], ",")...)
	for _, a := range alleles {
		if len(a) != 1 {
			chrom.Exclude(genotype.ExcludeNonSNV)
			return nil
		}
	}
	if len(alleles) > 2 {
		chrom.Exclude(genotype.ExcludeNonBiallelic)
		return nil
	}

	if err := p.parseCalls(fields, label, pos); err != nil {
		return err
	}
	c := &p.calls
	if !p.opts.KeepMonomorphic && len(c.alts) == 0 {
		chrom.Exclude(genotype.ExcludeMonomorphic)
		return nil
	}
	if !p.opts.KeepSingletons && len(c.alts) == 1 {
		chrom.Exclude(genotype.ExcludeSingleton)
		return nil
	}

	var freq float64
	if p.opts.EmpiricalFreqs {
		freq = c.frequency()
	} else {
		val, ok := infoValue(fields[colInfo], p.opts.FreqField)
		if !ok {
			chrom.Exclude(ExcludeNoFrequency)
			return nil
		}
		if freq, err = strconv.ParseFloat(val, 64); err != nil {
			return errors.Wrapf(err, "%s:%d: bad %s value", label, pos, p.opts.FreqField)
		}
	}
	if freq > 0.5 {
		c.invert()
		freq = 1 - freq
	}

	marker := chrom.AddVariant(fields[colID], pos, freq)
	for _, i := range c.missing {
		p.data.Genotypes(i, p.chrom).SetAllele(marker, 0, -1)
	}
	for _, h := range c.alts {
		p.data.Genotypes(h/2, p.chrom).SetAllele(marker, h%2, 1)
	}
	return nil
}

func (p *parser) parseCalls(fields []string, chrom string, pos int) error {
	gtIdx := -1
	for i, key := range strings.Split(fields[colFormat], ":") {
		if key == "GT" {
			gtIdx = i
			break
		}
	}
	if gtIdx < 0 {
		return errors.Errorf("%s:%d: no GT in FORMAT %q", chrom, pos, fields[colFormat])
	}
	c := &p.calls
	c.reset()
	for i, sample := range fields[colFirstSample:] {
		gt := subfield(sample, gtIdx)
		if len(gt) != 3 || (gt[1] != '/' && gt[1] != '|') || !validAllele(gt[0]) || !validAllele(gt[2]) {
			log.Error.Printf("malformed genotype %q at %s:%d for %s, marked as missing",
				gt, chrom, pos, p.data.Label(i))
			c.missing = append(c.missing, i)
			continue
		}
		if gt[0] == '.' || gt[2] == '.' {
			c.missing = append(c.missing, i)
			continue
		}
		if gt[0] == '1' {
			c.alts = append(c.alts, 2*i)
		}
		if gt[2] == '1' {
			c.alts = append(c.alts, 2*i+1)
		}
	}
	return nil
}

func validAllele(b byte) bool {
	return b == '0' || b == '1' || b == '.'
}

// subfield returns the idx'th colon-separated subfield of s, or "" if s has
// fewer subfields.
func subfield(s string, idx int) string {
	for ; idx > 0; idx-- {
		i := strings.IndexByte(s, ':')
		if i < 0 {
			return ""
		}
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// infoValue looks up key in a semicolon-separated INFO column.  A flag
// without a value yields "".
func infoValue(info, key string) (string, bool) {
	for _, kv := range strings.Split(info, ";") {
		k, v := kv, ""
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k, v = kv[:i], kv[i+1:]
		}
		if k == key {
			return v, true
		}
	}
	return "", false
}
