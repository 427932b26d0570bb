// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ibd_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/ibd/genotype"
	"github.com/grailbio/ibd/ibd"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const nShared = 20

// newPairDataset returns individuals "a" and "b", heterozygous for the same
// nShared rare variants spaced 100kb apart, and "c", who carries none.  With
// flank, a common variant both "a" and "b" carry is added 50kb outside each
// end.
func newPairDataset(t *testing.T, flank bool) *genotype.Dataset {
	d := genotype.NewDataset()
	for _, label := range []string{"a", "b", "c"} {
		_, err := d.AddIndividual(label)
		require.NoError(t, err)
	}
	c := d.AddChromosome("1")
	chrom := d.Chromosome(c)
	var shared []int
	if flank {
		shared = append(shared, chrom.AddVariant("", 50000, 0.3))
	}
	for k := 1; k <= nShared; k++ {
		shared = append(shared, chrom.AddVariant("", k*100000, 0.01))
	}
	if flank {
		shared = append(shared, chrom.AddVariant("", nShared*100000+50000, 0.3))
	}
	for _, m := range shared {
		d.Genotypes(0, c).SetAllele(m, 0, 1)
		d.Genotypes(1, c).SetAllele(m, 1, 1)
	}
	return d
}

func TestDetectGenotypes(t *testing.T) {
	for _, viterbi := range []bool{false, true} {
		d := newPairDataset(t, false)
		opts := ibd.DefaultOpts
		opts.Viterbi = viterbi
		params, err := ibd.NewParams(d, opts)
		require.NoError(t, err)

		res, err := ibd.DetectPair(d, params, 0, 0, 1)
		require.NoError(t, err)
		expect.EQ(t, res.NumSites, nShared)
		require.Equal(t, 1, len(res.Segments), "viterbi=%v", viterbi)
		seg := res.Segments[0]
		expect.EQ(t, seg.Ind1, "a")
		expect.EQ(t, seg.Ind2, "b")
		expect.EQ(t, seg.Chrom, "1")
		expect.EQ(t, seg.State, 2)
		expect.EQ(t, [2]int{seg.StartBP, seg.StopBP}, [2]int{100000, nShared * 100000})
		expect.EQ(t, seg.NMark, nShared)
		expect.EQ(t, seg.NRare, nShared)
		expect.EQ(t, seg.NErr, 0)
		expect.GE(t, seg.LOD, opts.MinLOD)

		// Nothing is shared with "c".
		res, err = ibd.DetectPair(d, params, 0, 0, 2)
		require.NoError(t, err)
		expect.EQ(t, res.NumSites, 0)
		expect.EQ(t, len(res.Segments), 0)
	}
}

func TestDetectFilters(t *testing.T) {
	d := newPairDataset(t, false)
	for _, test := range []struct {
		mod  func(o *ibd.Opts)
		want int
	}{
		{func(o *ibd.Opts) {}, 1},
		{func(o *ibd.Opts) { o.MinLength = 2000000 }, 0},
		{func(o *ibd.Opts) { o.MinMark = nShared + 1 }, 0},
		{func(o *ibd.Opts) { o.MinLOD = 1000 }, 0},
		{func(o *ibd.Opts) { o.MinRunLength = nShared + 1 }, 0},
	} {
		opts := ibd.DefaultOpts
		test.mod(&opts)
		params, err := ibd.NewParams(d, opts)
		require.NoError(t, err)
		res, err := ibd.DetectPair(d, params, 0, 0, 1)
		require.NoError(t, err)
		expect.EQ(t, len(res.Segments), test.want, "%+v", opts)
	}
}

func TestFineMap(t *testing.T) {
	d := newPairDataset(t, true)
	opts := ibd.DefaultOpts
	params, err := ibd.NewParams(d, opts)
	require.NoError(t, err)
	res, err := ibd.DetectPair(d, params, 0, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 1, len(res.Segments))
	expect.EQ(t, [2]int{res.Segments[0].StartBP, res.Segments[0].StopBP}, [2]int{100000, nShared * 100000})

	opts.FineMap = true
	params, err = ibd.NewParams(d, opts)
	require.NoError(t, err)
	res, err = ibd.DetectPair(d, params, 0, 0, 1)
	require.NoError(t, err)
	expect.EQ(t, res.NumSites, nShared+2)
	require.Equal(t, 1, len(res.Segments))
	expect.EQ(t, [2]int{res.Segments[0].StartBP, res.Segments[0].StopBP}, [2]int{50000, nShared*100000 + 50000})
}

func TestDetectBadOpts(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	out := filepath.Join(tempDir, "ibd.tsv")
	opts := ibd.DefaultOpts
	opts.Rare = 0
	_, err := ibd.Detect(vcontext.Background(), newPairDataset(t, false), out, opts, nil)
	expect.NotNil(t, err)
	// Nothing is written for a bad configuration.
	_, err = os.Stat(out)
	expect.True(t, os.IsNotExist(err))
}

type countingProgress struct {
	pairs, sites int
	finished     bool
}

func (p *countingProgress) Add(pairs, sites int) {
	p.pairs += pairs
	p.sites += sites
}

func (p *countingProgress) Finish() { p.finished = true }

func TestDetect(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tempDir)
	for _, name := range []string{"ibd.tsv", "ibd.tsv.gz"} {
		for _, parallelism := range []int{1, 2, 8} {
			out := filepath.Join(tempDir, name)
			opts := ibd.DefaultOpts
			opts.Parallelism = parallelism
			progress := &countingProgress{}
			stats, err := ibd.Detect(vcontext.Background(), newPairDataset(t, false), out, opts, progress)
			assert.NoError(t, err)
			expect.EQ(t, stats, ibd.Stats{Pairs: 3, Sites: nShared, Segments: 1})
			expect.EQ(t, *progress, countingProgress{pairs: 3, sites: nShared, finished: true})

			f, err := os.Open(out)
			assert.NoError(t, err)
			var rows []ibd.Row
			if filepath.Ext(name) == ".gz" {
				r, err := bgzf.NewReader(f, 1)
				assert.NoError(t, err)
				rows, err = ibd.ReadSegments(r)
				assert.NoError(t, err)
			} else {
				rows, err = ibd.ReadSegments(f)
				assert.NoError(t, err)
			}
			assert.NoError(t, f.Close())
			assert.EQ(t, len(rows), 1)
			row := rows[0]
			row.LOD = ""
			expect.EQ(t, row, ibd.Row{
				Ind1:   "a",
				Ind2:   "b",
				Chrom:  "1",
				Start:  100000,
				End:    nShared * 100000,
				Length: "1.90Mb",
				State:  2,
				NMark:  nShared,
				NRare:  nShared,
			})
		}
	}
}

func TestDetectCanceled(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx, cancel := context.WithCancel(vcontext.Background())
	cancel()
	_, err := ibd.Detect(ctx, newPairDataset(t, false), filepath.Join(tempDir, "ibd.tsv"), ibd.DefaultOpts, nil)
	expect.NotNil(t, err)
}

func TestFormatBP(t *testing.T) {
	for _, test := range []struct {
		bp   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1000"},
		{1500, "1.50kb"},
		{1234567, "1.23Mb"},
		{3000000000, "3.00Gb"},
	} {
		expect.EQ(t, ibd.FormatBP(test.bp), test.want)
	}
}

func TestDetectSkipsBadPair(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	d := newPairDataset(t, false)
	// "c" is homozygous at a marker the chromosome does not have, which
	// makes it informative against both "a" and "b".
	bad := d.Genotypes(2, 0)
	bad.SetAllele(500, 0, 1)
	bad.SetAllele(500, 1, 1)

	out := filepath.Join(tempDir, "ibd.tsv")
	opts := ibd.DefaultOpts
	opts.Parallelism = 3
	progress := &countingProgress{}
	stats, err := ibd.Detect(vcontext.Background(), d, out, opts, progress)
	assert.NoError(t, err)
	expect.EQ(t, stats, ibd.Stats{Pairs: 1, Skipped: 2, Sites: nShared, Segments: 1})
	expect.EQ(t, *progress, countingProgress{pairs: 3, sites: nShared, finished: true})

	f, err := os.Open(out)
	assert.NoError(t, err)
	rows, err := ibd.ReadSegments(f)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	assert.EQ(t, len(rows), 1)
	expect.EQ(t, [2]string{rows[0].Ind1, rows[0].Ind2}, [2]string{"a", "b"})

	_, err = ibd.DetectPair(d, mustParams(t, d, opts), 0, 0, 2)
	expect.NotNil(t, err)
}

func mustParams(t *testing.T, d ibd.Dataset, opts ibd.Opts) *ibd.Params {
	params, err := ibd.NewParams(d, opts)
	require.NoError(t, err)
	return params
}

func TestDetectStdout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	var buf bytes.Buffer
	done := make(chan error)
	go func() {
		_, err := io.Copy(&buf, r)
		done <- err
	}()
	stats, err := ibd.Detect(vcontext.Background(), newPairDataset(t, false), ibd.Stdout, ibd.DefaultOpts, ibd.NewLogProgress(3))
	os.Stdout = stdout
	assert.NoError(t, w.Close())
	assert.NoError(t, <-done)
	assert.NoError(t, err)
	expect.EQ(t, stats.Segments, 1)

	rows, err := ibd.ReadSegments(&buf)
	assert.NoError(t, err)
	assert.EQ(t, len(rows), 1)
	expect.EQ(t, [2]int64{rows[0].Start, rows[0].End}, [2]int64{100000, nShared * 100000})
}

const (
	nBlockInds  = 4
	blockStart1 = 1000000
	blockStart2 = 5000000
)

// newBlockDataset returns nBlockInds individuals in which every pair shares
// two blocks of nShared rare variants, at blockStart1 and blockStart2.
// Between the blocks every individual is homozygous for a few common
// variants the others lack, which separates the blocks.
func newBlockDataset(t *testing.T) *genotype.Dataset {
	d := genotype.NewDataset()
	for i := 0; i < nBlockInds; i++ {
		_, err := d.AddIndividual(fmt.Sprintf("i%d", i))
		require.NoError(t, err)
	}
	c := d.AddChromosome("2")
	chrom := d.Chromosome(c)
	block := func(base int) {
		for k := 0; k < nShared; k++ {
			p := 0
			for j := 1; j < nBlockInds; j++ {
				for i := 0; i < j; i++ {
					m := chrom.AddVariant("", base+k*100000+p*1000, 0.01)
					d.Genotypes(i, c).SetAllele(m, 0, 1)
					d.Genotypes(j, c).SetAllele(m, 1, 1)
					p++
				}
			}
		}
	}
	block(blockStart1)
	for k := 0; k < 5; k++ {
		for i := 0; i < nBlockInds; i++ {
			m := chrom.AddVariant("", 3500000+(k*nBlockInds+i)*10000, 0.3)
			d.Genotypes(i, c).SetAllele(m, 0, 1)
			d.Genotypes(i, c).SetAllele(m, 1, 1)
		}
	}
	block(blockStart2)
	return d
}

func TestDetectPairRowsContiguous(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	d := newBlockDataset(t)
	nPairs := ibd.NumPairs(nBlockInds)
	out := filepath.Join(tempDir, "ibd.tsv")
	opts := ibd.DefaultOpts
	opts.Parallelism = 8
	stats, err := ibd.Detect(vcontext.Background(), d, out, opts, nil)
	assert.NoError(t, err)
	expect.EQ(t, stats.Pairs, nPairs)
	expect.EQ(t, stats.Segments, 2*nPairs)

	f, err := os.Open(out)
	assert.NoError(t, err)
	rows, err := ibd.ReadSegments(f)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	assert.EQ(t, len(rows), 2*nPairs)

	seen := map[[2]string]bool{}
	for k := 0; k < len(rows); k += 2 {
		pair := [2]string{rows[k].Ind1, rows[k].Ind2}
		expect.False(t, seen[pair], "pair %v appears in more than one place", pair)
		seen[pair] = true
		expect.EQ(t, [2]string{rows[k+1].Ind1, rows[k+1].Ind2}, pair)
		expect.LT(t, rows[k].End, int64(blockStart2))
		expect.GE(t, rows[k+1].Start, int64(blockStart2))
	}
	expect.EQ(t, len(seen), nPairs)
}
