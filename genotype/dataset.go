// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Individual is one sample: a label and its genotypes on every chromosome of
// the dataset, in dataset chromosome order.
type Individual struct {
	Label       string
	Chromosomes []*Genotypes
}

// Dataset is a set of individuals genotyped on a common set of chromosomes.
// It is built single-threaded and is safe for concurrent reads afterwards.
type Dataset struct {
	individuals []*Individual
	chromosomes []*Chromosome
	labels      map[string]int
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{labels: map[string]int{}}
}

// AddIndividual appends an individual with empty genotypes on every existing
// chromosome and returns its index.  Labels must be unique.
func (d *Dataset) AddIndividual(label string) (int, error) {
	if _, ok := d.labels[label]; ok {
		return -1, errors.E(errors.Invalid, fmt.Sprintf("duplicate individual %q", label))
	}
	ind := &Individual{Label: label, Chromosomes: make([]*Genotypes, len(d.chromosomes))}
	for c := range ind.Chromosomes {
		ind.Chromosomes[c] = &Genotypes{}
	}
	d.labels[label] = len(d.individuals)
	d.individuals = append(d.individuals, ind)
	return len(d.individuals) - 1, nil
}

// AddChromosome appends an empty chromosome, giving every individual empty
// genotypes on it, and returns its index.
func (d *Dataset) AddChromosome(label string) int {
	d.chromosomes = append(d.chromosomes, NewChromosome(label))
	for _, ind := range d.individuals {
		ind.Chromosomes = append(ind.Chromosomes, &Genotypes{})
	}
	return len(d.chromosomes) - 1
}

// NumIndividuals returns the number of individuals.
func (d *Dataset) NumIndividuals() int { return len(d.individuals) }

// NumChromosomes returns the number of chromosomes.
func (d *Dataset) NumChromosomes() int { return len(d.chromosomes) }

// Chromosome returns the c'th chromosome.
func (d *Dataset) Chromosome(c int) *Chromosome { return d.chromosomes[c] }

// Individual returns the i'th individual.
func (d *Dataset) Individual(i int) *Individual { return d.individuals[i] }

// Label returns the label of the i'th individual.
func (d *Dataset) Label(i int) string { return d.individuals[i].Label }

// Index returns the index of the individual with the given label.
func (d *Dataset) Index(label string) (int, bool) {
	i, ok := d.labels[label]
	return i, ok
}

// Genotypes returns the genotypes of individual i on chromosome c.
func (d *Dataset) Genotypes(i, c int) *Genotypes {
	return d.individuals[i].Chromosomes[c]
}

// NumMarkers returns the number of retained markers over all chromosomes.
func (d *Dataset) NumMarkers() int {
	n := 0
	for _, c := range d.chromosomes {
		n += c.NumMarkers()
	}
	return n
}

// NumExcluded returns the number of dropped variants over all chromosomes.
func (d *Dataset) NumExcluded() int {
	n := 0
	for _, c := range d.chromosomes {
		n += c.NumExcluded()
	}
	return n
}

// RoundFrequencies rounds every frequency to the given number of decimal
// places.
func (d *Dataset) RoundFrequencies(places int) {
	scale := math.Pow(10, float64(places))
	for _, c := range d.chromosomes {
		for i, f := range c.Frequencies {
			c.Frequencies[i] = math.Round(f*scale) / scale
		}
	}
}

// FloorFrequencies raises every frequency below floor to floor.
func (d *Dataset) FloorFrequencies(floor float64) {
	for _, c := range d.chromosomes {
		for i, f := range c.Frequencies {
			if f < floor {
				c.Frequencies[i] = floor
			}
		}
	}
}

// CopySpan overwrites haplotype hapTo of individual to with haplotype
// hapFrom of individual from, on chromosome c, for markers whose positions
// lie in [start, stop).  Only the two haplotype lists change.
func (d *Dataset) CopySpan(from, hapFrom, to, hapTo, c, start, stop int) {
	lo, hi := d.chromosomes[c].MarkerRange(start, stop)
	d.Genotypes(to, c).CopyHap(hapTo, d.Genotypes(from, c).Hap(hapFrom), lo, hi)
}

// Clone returns a copy of d that shares chromosome descriptions but owns
// its genotype lists.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		chromosomes: d.chromosomes,
		labels:      make(map[string]int, len(d.labels)),
	}
	for k, v := range d.labels {
		out.labels[k] = v
	}
	out.individuals = make([]*Individual, len(d.individuals))
	for i, ind := range d.individuals {
		c := &Individual{Label: ind.Label, Chromosomes: make([]*Genotypes, len(ind.Chromosomes))}
		for j, g := range ind.Chromosomes {
			c.Chromosomes[j] = g.Clone()
		}
		out.individuals[i] = c
	}
	return out
}

// LogSummary logs the size of the dataset and, per chromosome, its marker,
// rare-marker and exclusion counts.
func (d *Dataset) LogSummary(rare float64) {
	log.Printf("%s individuals, %s markers, %s excluded",
		humanize.Comma(int64(d.NumIndividuals())),
		humanize.Comma(int64(d.NumMarkers())),
		humanize.Comma(int64(d.NumExcluded())))
	for _, c := range d.chromosomes {
		var excl []string
		reasons := make([]string, 0, len(c.Exclusions))
		for r := range c.Exclusions {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			excl = append(excl, fmt.Sprintf("%s %s", humanize.Comma(int64(c.Exclusions[r])), r))
		}
		msg := fmt.Sprintf("chromosome %s (%dMb): %s variants, %s rare",
			c.Label, c.Size()/1000000,
			humanize.Comma(int64(c.NumMarkers())),
			humanize.Comma(int64(len(c.RareMarkers(rare)))))
		if len(excl) > 0 {
			msg += "; excluded " + strings.Join(excl, ", ")
		}
		log.Printf("%s", msg)
	}
}
