// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package linalg provides the small set of dense vector and matrix operations
needed to build and run the IBD hidden Markov model: row-major matrices with
aliasing row/column views, element-wise ("diagonal") products, ordinary
matrix products, Kronecker products and element-wise ("direct") matrix
products.

Storage and the heavier products are delegated to gonum; this package adds
strided views that can be handed to the HMM inner loops without allocating,
and argmax/argmin helpers with first-index-wins tie breaking.

Operations on operands with incompatible shapes panic with
ErrNonconformable.  These are programming errors, never data errors.

A View aliases the storage of the Matrix or Vector it was taken from.  It
must not be retained past the lifetime of its owner; callers that need the
values later should copy them with NewVectorFrom.
*/
package linalg
