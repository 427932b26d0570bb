// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-ibd finds segments of the genome that pairs of individuals share
identical by descent (IBD).  It reads unphased genotypes from a VCF, and for
every pair of individuals and every chromosome decodes a three-state hidden
Markov model (no IBD, one haplotype shared, both shared) over the sites where
the pair shares a rare variant or is homozygous for opposite alleles.

The output is a table with one row per segment:

  IND_1 IND_2 CHROM START END LENGTH STATE NMARK NRARE NERR LOD

START and END are the positions of the first and last shared rare variant,
STATE is 1 or 2, NMARK is the number of informative sites in the segment,
NRARE the number of shared rare variants, NERR the number of opposite
homozygotes and LOD the natural-log odds of IBD against no IBD.

Sample usage:
bio-ibd \
    -freq-field AF \
    -min-length 2000000 \
    -out segments.tsv.gz \
    cohort.vcf.gz
*/
package main
