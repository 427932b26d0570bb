// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

// Run is a maximal stretch [Start, Stop) of a state path whose states are
// all at least some minimum.  Value is the last state of the stretch.
type Run struct {
	Start, Stop int
	Value       int
}

// Len returns the number of sites in the run.
func (r Run) Len() int { return r.Stop - r.Start }

// Runs returns, in order, the maximal runs of states >= minValue that are at
// least minLength long.
func Runs(states []int, minValue, minLength int) []Run {
	var runs []Run
	start := -1
	emit := func(stop int) {
		if stop-start >= minLength {
			runs = append(runs, Run{Start: start, Stop: stop, Value: states[stop-1]})
		}
		start = -1
	}
	for i, s := range states {
		switch {
		case s >= minValue && start < 0:
			start = i
		case s < minValue && start >= 0:
			emit(i)
		}
	}
	if start >= 0 {
		emit(len(states))
	}
	return runs
}
