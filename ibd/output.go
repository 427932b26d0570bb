// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Stdout is the output path that selects standard output.
const Stdout = "-"

// Header is the column header of the segment table.
var Header = []string{"IND_1", "IND_2", "CHROM", "START", "END", "LENGTH", "STATE", "NMARK", "NRARE", "NERR", "LOD"}

// FormatBP formats a length in bp with two decimals and a Gb, Mb or kb unit
// when it exceeds the unit, e.g. "1.23Mb", and as a plain integer otherwise.
func FormatBP(bp int) string {
	f := float64(bp)
	switch {
	case f > 1e9:
		return strconv.FormatFloat(f/1e9, 'f', 2, 64) + "Gb"
	case f > 1e6:
		return strconv.FormatFloat(f/1e6, 'f', 2, 64) + "Mb"
	case f > 1e3:
		return strconv.FormatFloat(f/1e3, 'f', 2, 64) + "kb"
	}
	return strconv.Itoa(bp)
}

// Stats summarizes a Detect run.
type Stats struct {
	// Pairs counts completed (pair, chromosome) jobs and Skipped the jobs
	// that failed.
	Pairs, Skipped int
	// Sites is the total number of informative sites decoded.
	Sites int
	// Segments is the number of segments written.
	Segments int
}

// sink writes the rows of completed pairs.  All rows of one pair, and the
// matching progress report, are written under one lock.
type sink struct {
	mu       sync.Mutex
	w        *tsv.Writer
	progress Progress
	stats    Stats
}

// openSink creates the output at path and writes the header.  It returns a
// function that flushes and closes the output, to be called exactly once.
func openSink(ctx context.Context, path string, parallelism int, progress Progress) (s *sink, closeFn func() error, err error) {
	var (
		out     io.Writer
		closers []func() error
	)
	if path == Stdout {
		out = os.Stdout
	} else {
		var f file.File
		if f, err = file.Create(ctx, path); err != nil {
			return nil, nil, err
		}
		out = f.Writer(ctx)
		closers = append(closers, func() error { return f.Close(ctx) })
		if strings.HasSuffix(path, ".gz") {
			bgzfWriter := bgzf.NewWriter(out, parallelism)
			out = bgzfWriter
			closers = append(closers, bgzfWriter.Close)
		}
	}
	s = &sink{w: tsv.NewWriter(out), progress: progress}
	closeFn = func() error {
		var once errors.Once
		once.Set(s.w.Flush())
		for i := len(closers) - 1; i >= 0; i-- {
			once.Set(closers[i]())
		}
		return once.Err()
	}
	for _, h := range Header {
		s.w.WriteString(h)
	}
	if err = s.w.EndLine(); err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}

func (s *sink) writeSegment(seg *Segment) error {
	w := s.w
	w.WriteString(seg.Ind1)
	w.WriteString(seg.Ind2)
	w.WriteString(seg.Chrom)
	w.WriteInt64(int64(seg.StartBP))
	w.WriteInt64(int64(seg.StopBP))
	w.WriteString(FormatBP(seg.Length()))
	w.WriteInt64(int64(seg.State))
	w.WriteInt64(int64(seg.NMark))
	w.WriteInt64(int64(seg.NRare))
	w.WriteInt64(int64(seg.NErr))
	w.WriteFloat64(seg.LOD, 'f', 2)
	return w.EndLine()
}

// add writes the segments of one completed pair and reports it.
func (s *sink) add(res PairResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range res.Segments {
		if err := s.writeSegment(&res.Segments[i]); err != nil {
			return err
		}
	}
	s.stats.Pairs++
	s.stats.Sites += res.NumSites
	s.stats.Segments += len(res.Segments)
	s.progress.Add(1, res.NumSites)
	return nil
}

// skip reports a failed pair.
func (s *sink) skip() {
	s.mu.Lock()
	s.stats.Skipped++
	s.progress.Add(1, 0)
	s.mu.Unlock()
}

// Row is one line of the segment table as read back by ReadSegments.
type Row struct {
	Ind1   string `tsv:"IND_1"`
	Ind2   string `tsv:"IND_2"`
	Chrom  string `tsv:"CHROM"`
	Start  int64  `tsv:"START"`
	End    int64  `tsv:"END"`
	Length string `tsv:"LENGTH"`
	State  int64  `tsv:"STATE"`
	NMark  int64  `tsv:"NMARK"`
	NRare  int64  `tsv:"NRARE"`
	NErr   int64  `tsv:"NERR"`
	LOD    string `tsv:"LOD"`
}

// ReadSegments reads a segment table written by Detect.
func ReadSegments(r io.Reader) ([]Row, error) {
	reader := tsv.NewReader(r)
	reader.HasHeaderRow = true
	reader.UseHeaderNames = true
	var rows []Row
	for {
		var row Row
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				return rows, nil
			}
			return nil, err
		}
		rows = append(rows, row)
	}
}
