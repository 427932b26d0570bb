// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package linalg

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrNonconformable is the panic value for operations on operands whose
// shapes don't match.
var ErrNonconformable = errors.E(errors.Invalid, "linalg: nonconformable operands")

// Vectorlike is implemented by both owning vectors and strided views.
type Vectorlike interface {
	// Len returns the number of elements.
	Len() int
	// At returns the i'th element.
	At(i int) float64
	// Set sets the i'th element.
	Set(i int, v float64)
}

// Vector is a dense, contiguous, owning vector.
type Vector struct {
	data []float64
}

// NewVector returns a zero-filled vector of length n.
func NewVector(n int) *Vector {
	return &Vector{data: make([]float64, n)}
}

// NewVectorFill returns a vector of length n with every element set to v.
func NewVectorFill(n int, v float64) *Vector {
	vec := NewVector(n)
	vec.Fill(v)
	return vec
}

// VectorOf returns a vector holding a copy of vals.
func VectorOf(vals ...float64) *Vector {
	return &Vector{data: append([]float64(nil), vals...)}
}

// NewVectorFrom copies any Vectorlike (usually a View) into a new owning
// Vector.
func NewVectorFrom(src Vectorlike) *Vector {
	vec := NewVector(src.Len())
	vec.CopyFrom(src)
	return vec
}

// Len implements Vectorlike.
func (v *Vector) Len() int { return len(v.data) }

// At implements Vectorlike.
func (v *Vector) At(i int) float64 { return v.data[i] }

// Set implements Vectorlike.
func (v *Vector) Set(i int, x float64) { v.data[i] = x }

// Data returns the backing slice.  It aliases the vector.
func (v *Vector) Data() []float64 { return v.data }

// Fill sets every element to x.
func (v *Vector) Fill(x float64) {
	for i := range v.data {
		v.data[i] = x
	}
}

// CopyFrom overwrites v with the contents of src.
func (v *Vector) CopyFrom(src Vectorlike) {
	mustConform(v.Len(), src.Len())
	for i := range v.data {
		v.data[i] = src.At(i)
	}
}

// Swap exchanges the storage of v and o without copying.
func (v *Vector) Swap(o *Vector) {
	v.data, o.data = o.data, v.data
}

// Scale multiplies every element by s.
func (v *Vector) Scale(s float64) {
	floats.Scale(s, v.data)
}

// Ints returns the elements truncated to ints.
func (v *Vector) Ints() []int {
	out := make([]int, len(v.data))
	for i, x := range v.data {
		out[i] = int(x)
	}
	return out
}

func (v *Vector) String() string {
	return fmt.Sprint(v.data)
}

// View is a non-owning strided reference into the storage of a Matrix or
// Vector.
type View struct {
	data   []float64
	offset int
	stride int
	n      int
}

// Len implements Vectorlike.
func (v View) Len() int { return v.n }

// At implements Vectorlike.
func (v View) At(i int) float64 {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("linalg: view index %d out of range [0,%d)", i, v.n))
	}
	return v.data[v.offset+i*v.stride]
}

// Set implements Vectorlike.
func (v View) Set(i int, x float64) {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("linalg: view index %d out of range [0,%d)", i, v.n))
	}
	v.data[v.offset+i*v.stride] = x
}

// Fill sets every element of the view, and therefore of the underlying
// storage, to x.
func (v View) Fill(x float64) {
	for i := 0; i < v.n; i++ {
		v.data[v.offset+i*v.stride] = x
	}
}

func mustConform(a, b int) {
	if a != b {
		panic(ErrNonconformable)
	}
}

// Sum returns the sum of the elements of v.
func Sum(v Vectorlike) float64 {
	if vec, ok := v.(*Vector); ok {
		return floats.Sum(vec.data)
	}
	s := 0.0
	for i, n := 0, v.Len(); i < n; i++ {
		s += v.At(i)
	}
	return s
}

// ArgMax returns the index of the largest element.  Ties go to the first
// index, since the comparison is strict.  It returns 0 for vectors shorter
// than 2.
func ArgMax(v Vectorlike) int {
	arg := 0
	for i, n := 1, v.Len(); i < n; i++ {
		if v.At(i) > v.At(arg) {
			arg = i
		}
	}
	return arg
}

// ArgMin is the ArgMax counterpart; the first smallest element wins.
func ArgMin(v Vectorlike) int {
	arg := 0
	for i, n := 1, v.Len(); i < n; i++ {
		if v.At(i) < v.At(arg) {
			arg = i
		}
	}
	return arg
}

// Max returns the largest element of v.
func Max(v Vectorlike) float64 { return v.At(ArgMax(v)) }

// Min returns the smallest element of v.
func Min(v Vectorlike) float64 { return v.At(ArgMin(v)) }

// Normalize divides every element of v by the sum of its elements and
// returns that sum.  v is left untouched when the sum is zero; callers
// decide how to treat that case.
func Normalize(v Vectorlike) float64 {
	s := Sum(v)
	if s == 0 {
		return s
	}
	for i, n := 0, v.Len(); i < n; i++ {
		v.Set(i, v.At(i)/s)
	}
	return s
}

// Add returns a new vector holding a[i] + b[i].
func Add(a, b Vectorlike) *Vector {
	mustConform(a.Len(), b.Len())
	out := NewVector(a.Len())
	for i := range out.data {
		out.data[i] = a.At(i) + b.At(i)
	}
	return out
}

// Dot returns the inner product of a and b.
func Dot(a, b Vectorlike) float64 {
	mustConform(a.Len(), b.Len())
	s := 0.0
	for i, n := 0, a.Len(); i < n; i++ {
		s += a.At(i) * b.At(i)
	}
	return s
}

// DiagVecProduct computes diag(d) * v, i.e. the element-wise product, into
// dst.
func DiagVecProduct(d, v, dst Vectorlike) {
	n := d.Len()
	mustConform(n, v.Len())
	mustConform(n, dst.Len())
	for i := 0; i < n; i++ {
		dst.Set(i, d.At(i)*v.At(i))
	}
}
