// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Opts holds the model and filter parameters of an IBD run.
type Opts struct {
	// Rare is the minor allele frequency below which a marker is rare.  Only
	// rare markers contribute shared-variant observations.
	Rare float64
	// ErrCommon and ErrRare are the per-allele genotype miscall rates of
	// common and rare markers.
	ErrCommon float64
	ErrRare   float64
	// Gamma and Rho are the negated base-10 exponents of the probabilities of
	// entering and leaving IBD between adjacent informative sites.
	Gamma float64
	Rho   float64
	// MinLOD, MinLength (bp) and MinMark (shared rare variants) are the
	// minimum values a segment must reach to be reported.
	MinLOD    float64
	MinLength int
	MinMark   int
	// MinRunLength is the minimum number of consecutive informative sites
	// decoded as IBD to start a candidate segment.
	MinRunLength int
	// Viterbi selects MAP decoding instead of posterior decoding.
	Viterbi bool
	// FineMap re-decodes each pair after adding the markers next to every
	// candidate segment's endpoints.
	FineMap bool
	// Parallelism is the number of concurrent workers.  0 means one per CPU.
	Parallelism int
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	Rare:         0.05,
	ErrCommon:    0.001,
	ErrRare:      0.01,
	Gamma:        4,
	Rho:          3,
	MinLOD:       3.0,
	MinLength:    1000000,
	MinMark:      4,
	MinRunLength: 1,
}

// Filters returns the segment filters of opts.
func (o *Opts) Filters() Filters {
	return Filters{MinLength: o.MinLength, MinMark: o.MinMark, MinLOD: o.MinLOD}
}

func invalidf(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, fmt.Sprintf(format, args...))
}

// Validate checks that opts describe a well-formed model.
func (o *Opts) Validate() error {
	if !(o.Rare > 0 && o.Rare <= 0.5) {
		return invalidf("ibd: rare frequency threshold %v outside (0, 0.5]", o.Rare)
	}
	if !(o.ErrCommon >= 0 && o.ErrCommon < 0.5) || !(o.ErrRare >= 0 && o.ErrRare < 0.5) {
		return invalidf("ibd: error rates %v, %v outside [0, 0.5)", o.ErrCommon, o.ErrRare)
	}
	t := TransitionMatrix(o.Gamma, o.Rho)
	r, c := t.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := t.At(i, j); !(v > 0 && v < 1) {
				return invalidf("ibd: transition exponents %v, %v give transition probability %v", o.Gamma, o.Rho, v)
			}
		}
	}
	if o.MinLength < 0 {
		return invalidf("ibd: negative minimum length %d", o.MinLength)
	}
	if o.MinMark < 0 {
		return invalidf("ibd: negative minimum marker count %d", o.MinMark)
	}
	if o.MinRunLength < 1 {
		return invalidf("ibd: minimum run length %d must be positive", o.MinRunLength)
	}
	if o.Parallelism < 0 {
		return invalidf("ibd: negative parallelism %d", o.Parallelism)
	}
	return nil
}
