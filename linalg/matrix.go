// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package linalg

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major matrix.  Both dimensions must be positive.
type Matrix struct {
	d *mat.Dense
}

// NewMatrix returns a zero-filled r x c matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{d: mat.NewDense(r, c, nil)}
}

// NewMatrixFill returns an r x c matrix with every element set to v.
func NewMatrixFill(r, c int, v float64) *Matrix {
	m := NewMatrix(r, c)
	m.Fill(v)
	return m
}

// FromRows builds a matrix from a slice of equal-length rows.
func FromRows(rows [][]float64) *Matrix {
	if len(rows) == 0 || len(rows[0]) == 0 {
		panic(ErrNonconformable)
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for _, row := range rows {
		mustConform(c, len(row))
		data = append(data, row...)
	}
	return &Matrix{d: mat.NewDense(len(rows), c, data)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) { return m.d.Dims() }

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	r, _ := m.d.Dims()
	return r
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	_, c := m.d.Dims()
	return c
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 { return m.d.At(i, j) }

// Set sets element (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.d.Set(i, j, v) }

// Fill sets every element to v.
func (m *Matrix) Fill(v float64) {
	raw := m.d.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] = v
		}
	}
}

// RowView returns an aliasing view of row i.
func (m *Matrix) RowView(i int) View {
	raw := m.d.RawMatrix()
	if i < 0 || i >= raw.Rows {
		panic(fmt.Sprintf("linalg: row %d out of range [0,%d)", i, raw.Rows))
	}
	return View{data: raw.Data, offset: i * raw.Stride, stride: 1, n: raw.Cols}
}

// ColView returns an aliasing view of column j.
func (m *Matrix) ColView(j int) View {
	raw := m.d.RawMatrix()
	if j < 0 || j >= raw.Cols {
		panic(fmt.Sprintf("linalg: column %d out of range [0,%d)", j, raw.Cols))
	}
	return View{data: raw.Data, offset: j, stride: raw.Stride, n: raw.Rows}
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) *Vector { return NewVectorFrom(m.RowView(i)) }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) *Vector { return NewVectorFrom(m.ColView(j)) }

// SetRow overwrites row i with v.
func (m *Matrix) SetRow(i int, v Vectorlike) {
	dst := m.RowView(i)
	mustConform(dst.Len(), v.Len())
	for k := 0; k < dst.Len(); k++ {
		dst.Set(k, v.At(k))
	}
}

// SetCol overwrites column j with v.
func (m *Matrix) SetCol(j int, v Vectorlike) {
	dst := m.ColView(j)
	mustConform(dst.Len(), v.Len())
	for k := 0; k < dst.Len(); k++ {
		dst.Set(k, v.At(k))
	}
}

// Apply returns a new matrix holding f applied to each element of m.
func (m *Matrix) Apply(f func(float64) float64) *Matrix {
	r, c := m.Dims()
	out := NewMatrix(r, c)
	out.d.Apply(func(_, _ int, v float64) float64 { return f(v) }, m.d)
	return out
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{d: mat.DenseCopyOf(m.d)}
}

// Transpose returns a new matrix holding the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	return &Matrix{d: mat.DenseCopyOf(m.d.T())}
}

// Sum returns the sum of all elements.
func (m *Matrix) Sum() float64 { return mat.Sum(m.d) }

// EqualApprox reports whether m and o have the same shape and all elements
// within tol of each other.
func (m *Matrix) EqualApprox(o *Matrix, tol float64) bool {
	return mat.EqualApprox(m.d, o.d, tol)
}

// ArgMaxCols returns, for each column, the row index of its largest
// element.  Ties go to the first row.
func (m *Matrix) ArgMaxCols() []int {
	out := make([]int, m.Cols())
	for j := range out {
		out[j] = ArgMax(m.ColView(j))
	}
	return out
}

func (m *Matrix) String() string {
	var b strings.Builder
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				b.WriteByte('\t')
			}
			fmt.Fprintf(&b, "%g", m.At(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// VecMatProduct computes the row vector v * m into dst.
func VecMatProduct(v Vectorlike, m *Matrix, dst Vectorlike) {
	r, c := m.Dims()
	mustConform(v.Len(), r)
	mustConform(dst.Len(), c)
	for j := 0; j < c; j++ {
		s := 0.0
		for i := 0; i < r; i++ {
			s += v.At(i) * m.At(i, j)
		}
		dst.Set(j, s)
	}
}

// MatVecProduct computes the column vector m * v into dst.
func MatVecProduct(m *Matrix, v Vectorlike, dst Vectorlike) {
	r, c := m.Dims()
	mustConform(v.Len(), c)
	mustConform(dst.Len(), r)
	for i := 0; i < r; i++ {
		dst.Set(i, Dot(m.RowView(i), v))
	}
}

// DiagMatProduct returns diag(d) * m, which scales row i of m by d[i].
func DiagMatProduct(d Vectorlike, m *Matrix) *Matrix {
	r, c := m.Dims()
	mustConform(d.Len(), r)
	out := NewMatrix(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, d.At(i)*m.At(i, j))
		}
	}
	return out
}

// Product returns the ordinary matrix product a * b.
func Product(a, b *Matrix) *Matrix {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	mustConform(ac, br)
	out := NewMatrix(ar, bc)
	out.d.Mul(a.d, b.d)
	return out
}

// Kronecker returns the Kronecker product of a and b.  Element
// (i*br+k, j*bc+l) of the result is a(i,j)*b(k,l).
func Kronecker(a, b *Matrix) *Matrix {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := NewMatrix(ar*br, ac*bc)
	out.d.Kronecker(a.d, b.d)
	return out
}

// DirectProduct returns the element-wise product of two equally shaped
// matrices.
func DirectProduct(a, b *Matrix) *Matrix {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	mustConform(ar, br)
	mustConform(ac, bc)
	out := NewMatrix(ar, ac)
	out.d.MulElem(a.d, b.d)
	return out
}
