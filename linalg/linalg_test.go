// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package linalg_test

import (
	"math"
	"testing"

	"github.com/grailbio/ibd/linalg"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-12

func TestViewsAlias(t *testing.T) {
	m := linalg.FromRows([][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	row := m.RowView(1)
	col := m.ColView(2)
	expect.EQ(t, row.Len(), 3)
	expect.EQ(t, col.Len(), 2)
	expect.EQ(t, col.At(0), 3.0)
	expect.EQ(t, col.At(1), 6.0)

	// Writes through a view land in the matrix, and are visible through every
	// other view of the same storage.
	row.Set(2, 60)
	expect.EQ(t, m.At(1, 2), 60.0)
	expect.EQ(t, col.At(1), 60.0)

	// Copies do not alias.
	c := m.Col(0)
	c.Set(0, -1)
	expect.EQ(t, m.At(0, 0), 1.0)

	m.SetCol(1, linalg.VectorOf(7, 8))
	expect.EQ(t, m.At(0, 1), 7.0)
	expect.EQ(t, m.At(1, 1), 8.0)
	m.SetRow(0, linalg.VectorOf(0, 0, 0))
	expect.EQ(t, m.Row(0).Data(), []float64{0, 0, 0})
}

func TestArgMaxTies(t *testing.T) {
	tests := []struct {
		v          []float64
		max, min   int
		maxv, minv float64
	}{
		{[]float64{1}, 0, 0, 1, 1},
		{[]float64{3, 3, 1}, 0, 2, 3, 1},
		{[]float64{1, 5, 5, 0, 0}, 1, 3, 5, 0},
		{[]float64{-2, -1, -2}, 1, 0, -1, -2},
	}
	for _, test := range tests {
		v := linalg.VectorOf(test.v...)
		expect.EQ(t, linalg.ArgMax(v), test.max, "argmax %v", test.v)
		expect.EQ(t, linalg.ArgMin(v), test.min, "argmin %v", test.v)
		expect.EQ(t, linalg.Max(v), test.maxv)
		expect.EQ(t, linalg.Min(v), test.minv)
	}
	m := linalg.FromRows([][]float64{
		{0.2, 0.5, 0.1},
		{0.2, 0.5, 0.8},
		{0.6, 0.0, 0.1},
	})
	expect.EQ(t, m.ArgMaxCols(), []int{2, 0, 1})
}

func TestNormalize(t *testing.T) {
	v := linalg.VectorOf(1, 3, 4)
	s := linalg.Normalize(v)
	expect.EQ(t, s, 8.0)
	assert.InDeltaSlice(t, []float64{0.125, 0.375, 0.5}, v.Data(), tol)

	zero := linalg.NewVector(3)
	expect.EQ(t, linalg.Normalize(zero), 0.0)
	expect.EQ(t, zero.Data(), []float64{0, 0, 0})

	// Normalizing a column view rescales the column in place.
	m := linalg.FromRows([][]float64{{1, 9}, {1, 9}})
	linalg.Normalize(m.ColView(1))
	assert.InDelta(t, 0.5, m.At(0, 1), tol)
	assert.InDelta(t, 1.0, m.At(0, 0), tol)
}

func TestVectorProducts(t *testing.T) {
	m := linalg.FromRows([][]float64{
		{1, 2},
		{3, 4},
	})
	v := linalg.VectorOf(1, 10)

	dst := linalg.NewVector(2)
	linalg.VecMatProduct(v, m, dst)
	expect.EQ(t, dst.Data(), []float64{31, 42})

	linalg.MatVecProduct(m, v, dst)
	expect.EQ(t, dst.Data(), []float64{21, 43})

	linalg.DiagVecProduct(v, linalg.VectorOf(2, 3), dst)
	expect.EQ(t, dst.Data(), []float64{2, 30})

	expect.EQ(t, linalg.Dot(v, linalg.VectorOf(2, 3)), 32.0)
	expect.EQ(t, linalg.Add(v, v).Data(), []float64{2, 20})

	d := linalg.DiagMatProduct(v, m)
	expect.True(t, d.EqualApprox(linalg.FromRows([][]float64{{1, 2}, {30, 40}}), tol))
}

func TestMatrixProducts(t *testing.T) {
	a := linalg.FromRows([][]float64{
		{1, 2},
		{3, 4},
	})
	b := linalg.FromRows([][]float64{
		{0, 1},
		{1, 0},
	})
	expect.True(t, linalg.Product(a, b).EqualApprox(linalg.FromRows([][]float64{{2, 1}, {4, 3}}), tol))
	expect.True(t, linalg.DirectProduct(a, b).EqualApprox(linalg.FromRows([][]float64{{0, 2}, {3, 0}}), tol))
	expect.True(t, linalg.Product(a, linalg.Identity(2)).EqualApprox(a, tol))

	k := linalg.Kronecker(a, b)
	r, c := k.Dims()
	expect.EQ(t, r, 4)
	expect.EQ(t, c, 4)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for p := 0; p < 2; p++ {
				for q := 0; q < 2; q++ {
					expect.EQ(t, k.At(i*2+p, j*2+q), a.At(i, j)*b.At(p, q))
				}
			}
		}
	}

	tr := linalg.FromRows([][]float64{{1, 2, 3}}).Transpose()
	expect.EQ(t, tr.Rows(), 3)
	expect.EQ(t, tr.Cols(), 1)
	expect.EQ(t, tr.At(2, 0), 3.0)

	lg := a.Apply(math.Log)
	assert.InDelta(t, math.Log(3), lg.At(1, 0), tol)
	expect.EQ(t, a.At(1, 0), 3.0)
	expect.EQ(t, a.Sum(), 10.0)
}

func TestNonconformable(t *testing.T) {
	a := linalg.NewMatrix(2, 3)
	b := linalg.NewMatrix(2, 3)
	assert.PanicsWithValue(t, linalg.ErrNonconformable, func() { linalg.Product(a, b) })
	assert.PanicsWithValue(t, linalg.ErrNonconformable, func() { linalg.DirectProduct(a, linalg.NewMatrix(3, 2)) })
	assert.PanicsWithValue(t, linalg.ErrNonconformable, func() {
		linalg.VecMatProduct(linalg.NewVector(3), a, linalg.NewVector(3))
	})
	assert.PanicsWithValue(t, linalg.ErrNonconformable, func() {
		linalg.DiagVecProduct(linalg.NewVector(2), linalg.NewVector(3), linalg.NewVector(2))
	})
	assert.PanicsWithValue(t, linalg.ErrNonconformable, func() {
		linalg.FromRows([][]float64{{1, 2}, {3}})
	})
	assert.Panics(t, func() { a.RowView(2) })
	assert.Panics(t, func() { a.ColView(-1) })
}
