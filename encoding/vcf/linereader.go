// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package vcf

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Genotype lines of large cohorts are long.
const maxLineSize = 256 * 1024 * 1024

// lineReader yields the lines of a text stream without their terminators.
type lineReader interface {
	// Scan advances to the next line.  It returns false at the end of the
	// stream or on error.
	Scan() bool
	// Text returns the current line.
	Text() string
	// Err returns the first non-EOF error.
	Err() error
	// Close releases any decompressor state.  It does not close the
	// underlying stream.
	Close() error
}

type plainLineReader struct {
	sc *bufio.Scanner
}

func newPlainLineReader(r io.Reader) *plainLineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	return &plainLineReader{sc: sc}
}

func (r *plainLineReader) Scan() bool   { return r.sc.Scan() }
func (r *plainLineReader) Text() string { return r.sc.Text() }
func (r *plainLineReader) Err() error   { return r.sc.Err() }
func (r *plainLineReader) Close() error { return nil }

type gzipLineReader struct {
	plainLineReader
	gz *gzip.Reader
}

// newGzipLineReader reads gzip or bgzip compressed text.  Multistream
// members, as written by bgzip, are read back to back.
func newGzipLineReader(r io.Reader) (*gzipLineReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open gzip stream")
	}
	return &gzipLineReader{plainLineReader: *newPlainLineReader(gz), gz: gz}, nil
}

func (r *gzipLineReader) Close() error { return r.gz.Close() }

func newLineReader(r io.Reader, compressed bool) (lineReader, error) {
	if compressed {
		return newGzipLineReader(r)
	}
	return newPlainLineReader(r), nil
}
