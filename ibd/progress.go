// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
)

// Progress receives a report for every completed (pair, chromosome) job.
// Detect serializes calls, so implementations need no locking of their own.
type Progress interface {
	// Add records the completion of pairs jobs that used sites informative
	// sites in total.
	Add(pairs, sites int)
	// Finish is called once after the last Add.
	Finish()
}

// NopProgress discards all reports.
type NopProgress struct{}

// Add implements Progress.
func (NopProgress) Add(pairs, sites int) {}

// Finish implements Progress.
func (NopProgress) Finish() {}

// LogProgress logs a line each time another percent of the jobs completes.
type LogProgress struct {
	total, step, next int
	pairs, sites      int
	start             time.Time
}

// NewLogProgress returns a Progress for total jobs.
func NewLogProgress(total int) *LogProgress {
	step := total / 100
	if step < 1 {
		step = 1
	}
	return &LogProgress{total: total, step: step, next: step, start: time.Now()}
}

// Add implements Progress.
func (p *LogProgress) Add(pairs, sites int) {
	p.pairs += pairs
	p.sites += sites
	if p.pairs >= p.next {
		log.Printf("%s/%s pairs (%d%%), %s informative sites, %v elapsed",
			humanize.Comma(int64(p.pairs)), humanize.Comma(int64(p.total)),
			100*p.pairs/p.total, humanize.Comma(int64(p.sites)),
			time.Since(p.start).Round(time.Second))
		for p.next <= p.pairs {
			p.next += p.step
		}
	}
}

// Finish implements Progress.
func (p *LogProgress) Finish() {
	log.Printf("done: %s pairs, %s informative sites in %v",
		humanize.Comma(int64(p.pairs)), humanize.Comma(int64(p.sites)), time.Since(p.start))
}

// BarProgress draws a terminal progress bar on stderr.
type BarProgress struct {
	bar   *pb.ProgressBar
	sites int
}

// NewBarProgress starts a progress bar for total jobs.
func NewBarProgress(total int) *BarProgress {
	return &BarProgress{bar: pb.Full.Start64(int64(total))}
}

// Add implements Progress.
func (p *BarProgress) Add(pairs, sites int) {
	p.sites += sites
	p.bar.Add(pairs)
}

// Finish implements Progress.
func (p *BarProgress) Finish() {
	p.bar.Finish()
	log.Printf("%s informative sites", humanize.Comma(int64(p.sites)))
}
