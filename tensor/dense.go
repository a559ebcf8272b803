// Package tensor implements the dense, divergence-graded tensor primitives
// the DMRG core contracts, splits and normalizes at every bond.
//
// Every Dense carries a Div: a quantum-number divergence (charge flow).
// Contract propagates it additively; SVD asserts it against the
// caller-supplied target rather than selecting among charge sectors, since
// this engine does not maintain true block-sparse storage by charge
// sector.
package tensor

import (
	"fmt"
	"math/cmplx"
)

// Machine precision for complex64.
const epsilon = 0x1p-23

// Dense is a rank-N tensor of complex64 values in row-major layout.
type Dense struct {
	shape []int
	data  []complex64
	div   int
}

// Zeros allocates a new all-zero tensor of the given shape.
func Zeros(shape ...int) *Dense {
	t := &Dense{}
	return t.Reset(shape...)
}

// Reset reallocates t to shape, zeroing it, and returns t.
func (t *Dense) Reset(shape ...int) *Dense {
	n := volume(shape)
	t.shape = append(t.shape[:0], shape...)
	if cap(t.data) < n {
		t.data = make([]complex64, n)
	} else {
		t.data = t.data[:n]
		for i := range t.data {
			t.data[i] = 0
		}
	}
	t.div = 0
	return t
}

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Shape returns t's dimensions. The caller must not mutate the result.
func (t *Dense) Shape() []int { return t.shape }

// Div returns t's charge divergence.
func (t *Dense) Div() int { return t.div }

// SetDiv sets t's charge divergence and returns t.
func (t *Dense) SetDiv(d int) *Dense {
	t.div = d
	return t
}

func (t *Dense) strides() []int {
	s := make([]int, len(t.shape))
	acc := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= t.shape[i]
	}
	return s
}

func (t *Dense) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("index rank %d shape %#v", len(idx), t.shape))
	}
	st := t.strides()
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= t.shape[i] {
			panic(fmt.Sprintf("index %#v out of bounds for shape %#v", idx, t.shape))
		}
		off += ix * st[i]
	}
	return off
}

// At returns the element at idx.
func (t *Dense) At(idx ...int) complex64 {
	return t.data[t.offset(idx)]
}

// SetAt sets the element at idx and returns t.
func (t *Dense) SetAt(idx []int, v complex64) *Dense {
	t.data[t.offset(idx)] = v
	return t
}

// All iterates over every index of t in row-major order.
func (t *Dense) All() func(yield func([]int) bool) {
	return func(yield func([]int) bool) {
		if len(t.shape) == 0 {
			return
		}
		idx := make([]int, len(t.shape))
		for {
			if !yield(idx) {
				return
			}
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < t.shape[i] {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// Reshape returns a view of t with a new shape of the same volume.
// The returned tensor shares t's backing storage.
func (t *Dense) Reshape(shape ...int) *Dense {
	resolved := make([]int, len(shape))
	copy(resolved, shape)
	unknown := -1
	known := 1
	for i, d := range resolved {
		if d < 0 {
			unknown = i
			continue
		}
		known *= d
	}
	if unknown >= 0 {
		resolved[unknown] = volume(t.shape) / known
	}
	if volume(resolved) != volume(t.shape) {
		panic(fmt.Sprintf("reshape %#v -> %#v volume mismatch", t.shape, resolved))
	}
	return &Dense{shape: resolved, data: t.data, div: t.div}
}

// Clone returns an independent deep copy of t.
func (t *Dense) Clone() *Dense {
	c := &Dense{shape: append([]int{}, t.shape...), data: append([]complex64{}, t.data...), div: t.div}
	return c
}

// Set copies src into t starting at offset (per axis) and returns t.
func (t *Dense) Set(offset []int, src *Dense) *Dense {
	if len(offset) != len(t.shape) || len(offset) != len(src.shape) {
		panic(fmt.Sprintf("rank mismatch dst %#v src %#v offset %#v", t.shape, src.shape, offset))
	}
	for ijk := range src.All() {
		dstIdx := make([]int, len(ijk))
		for a, v := range ijk {
			dstIdx[a] = v + offset[a]
		}
		t.SetAt(dstIdx, src.At(ijk...))
	}
	return t
}

// Slice extracts the sub-tensor given by [lo,hi) bounds per axis.
func (t *Dense) Slice(bounds [][2]int) *Dense {
	if len(bounds) != len(t.shape) {
		panic(fmt.Sprintf("rank mismatch %#v %#v", t.shape, bounds))
	}
	shape := make([]int, len(bounds))
	for i, b := range bounds {
		shape[i] = b[1] - b[0]
	}
	out := Zeros(shape...)
	out.div = t.div
	for ijk := range out.All() {
		srcIdx := make([]int, len(ijk))
		for a, v := range ijk {
			srcIdx[a] = v + bounds[a][0]
		}
		out.SetAt(ijk, t.At(srcIdx...))
	}
	return out
}

// Transpose permutes t's axes according to perm and returns a new tensor.
func (t *Dense) Transpose(perm ...int) *Dense {
	if len(perm) != len(t.shape) {
		panic(fmt.Sprintf("perm rank %d shape %#v", len(perm), t.shape))
	}
	shape := make([]int, len(perm))
	for i, p := range perm {
		shape[i] = t.shape[p]
	}
	out := Zeros(shape...)
	out.div = t.div
	for ijk := range t.All() {
		dstIdx := make([]int, len(ijk))
		for a, p := range perm {
			dstIdx[a] = ijk[p]
		}
		out.SetAt(dstIdx, t.At(ijk...))
	}
	return out
}

// Conj returns the elementwise complex conjugate of t.
func (t *Dense) Conj() *Dense {
	out := Zeros(t.shape...)
	out.div = t.div
	for i, v := range t.data {
		out.data[i] = complex64(cmplx.Conj(complex128(v)))
	}
	return out
}

// Dag returns the generic tensor adjoint: axes reversed and conjugated,
// with the divergence flipped to reflect the reversed charge flow.
func Dag(t *Dense) *Dense {
	perm := make([]int, len(t.shape))
	for i := range perm {
		perm[i] = len(perm) - 1 - i
	}
	out := t.Transpose(perm...).Conj()
	out.div = -t.div
	return out
}

// H returns the conjugate transpose of a rank-2 tensor (matrix dagger).
func (t *Dense) H() *Dense {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("H requires rank 2, got %#v", t.shape))
	}
	return t.Transpose(1, 0).Conj()
}

// Eye returns the n x n identity matrix with the given divergence.
func Eye(n, div int) *Dense {
	out := Zeros(n, n)
	out.div = div
	for i := 0; i < n; i++ {
		out.SetAt([]int{i, i}, 1)
	}
	return out
}

// FrobeniusNorm returns the Frobenius norm of t.
func (t *Dense) FrobeniusNorm() float32 {
	var s float64
	for _, v := range t.data {
		s += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
	}
	return float32(sqrt(s))
}

func sqrt(x float64) float64 {
	return real(cmplx.Sqrt(complex(x, 0)))
}

// Equal reports an error if t and other differ by more than tol in
// Frobenius norm of their difference, or have different shapes.
func (t *Dense) Equal(other *Dense, tol float32) error {
	if len(t.shape) != len(other.shape) {
		return fmt.Errorf("rank %#v %#v", t.shape, other.shape)
	}
	for i := range t.shape {
		if t.shape[i] != other.shape[i] {
			return fmt.Errorf("shape %#v %#v", t.shape, other.shape)
		}
	}
	var diff float64
	for i, v := range t.data {
		d := complex128(v) - complex128(other.data[i])
		diff += real(d)*real(d) + imag(d)*imag(d)
	}
	if sqrt(diff) > float64(tol) {
		return fmt.Errorf("diff %f tol %f", sqrt(diff), tol)
	}
	return nil
}

// Add computes t += c*b elementwise in place and returns t.
func (t *Dense) Add(c complex64, b *Dense) *Dense {
	if len(t.data) != len(b.data) {
		panic(fmt.Sprintf("shape mismatch %#v %#v", t.shape, b.shape))
	}
	for i, v := range b.data {
		t.data[i] += c * v
	}
	return t
}

// Mul scales t in place by c and returns t.
func (t *Dense) Mul(c complex64) *Dense {
	for i := range t.data {
		t.data[i] *= c
	}
	return t
}

// Normalize divides t by its Frobenius norm in place and returns the norm
// that was divided out.
func Normalize(t *Dense) float32 {
	n := t.FrobeniusNorm()
	if n > epsilon {
		t.Mul(complex(1/n, 0))
	}
	return n
}

// LinearCombine computes out = beta*out + sum_i coefs[i]*vectors[i] in
// place and returns out.
func LinearCombine(coefs []complex64, vectors []*Dense, beta complex64, out *Dense) *Dense {
	out.Mul(beta)
	for i, v := range vectors {
		out.Add(coefs[i], v)
	}
	return out
}

func abs(c complex64) float32 {
	return float32(cmplx.Abs(complex128(c)))
}
