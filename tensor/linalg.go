package tensor

import "fmt"

// Contract sums a and b over the paired axes axesA[i] <-> axesB[i], which
// must have matching dimensions, and returns a tensor whose axes are a's
// remaining axes (in original order) followed by b's remaining axes (in
// original order). The result's divergence is the sum of a's and b's,
// matching the additive charge-flow convention used throughout the core.
func Contract(a, b *Dense, axesA, axesB []int) *Dense {
	if len(axesA) != len(axesB) {
		panic(fmt.Sprintf("contract axis count mismatch %d %d", len(axesA), len(axesB)))
	}
	contractedA := make(map[int]bool, len(axesA))
	for _, ax := range axesA {
		contractedA[ax] = true
	}
	contractedB := make(map[int]bool, len(axesB))
	for _, ax := range axesB {
		contractedB[ax] = true
	}
	for i := range axesA {
		if a.shape[axesA[i]] != b.shape[axesB[i]] {
			panic(fmt.Sprintf("contract dim mismatch axis a=%d (%d) axis b=%d (%d)", axesA[i], a.shape[axesA[i]], axesB[i], b.shape[axesB[i]]))
		}
	}

	var freeA, freeB []int
	for i := range a.shape {
		if !contractedA[i] {
			freeA = append(freeA, i)
		}
	}
	for i := range b.shape {
		if !contractedB[i] {
			freeB = append(freeB, i)
		}
	}

	outShape := make([]int, 0, len(freeA)+len(freeB))
	for _, ax := range freeA {
		outShape = append(outShape, a.shape[ax])
	}
	for _, ax := range freeB {
		outShape = append(outShape, b.shape[ax])
	}
	out := Zeros(outShape...)
	out.div = a.div + b.div

	contractedShape := make([]int, len(axesA))
	for i, ax := range axesA {
		contractedShape[i] = a.shape[ax]
	}

	aIdx := make([]int, len(a.shape))
	bIdx := make([]int, len(b.shape))
	outIdx := make([]int, len(outShape))

	for freeIdx := range out.All() {
		copy(outIdx, freeIdx)
		for i, ax := range freeA {
			aIdx[ax] = outIdx[i]
		}
		for i, ax := range freeB {
			bIdx[ax] = outIdx[len(freeA)+i]
		}
		var sum complex64
		contracted := Zeros(contractedShape...)
		for cIdx := range contracted.All() {
			for i, ax := range axesA {
				aIdx[ax] = cIdx[i]
			}
			for i, ax := range axesB {
				bIdx[ax] = cIdx[i]
			}
			sum += a.At(aIdx...) * b.At(bIdx...)
		}
		out.SetAt(outIdx, sum)
	}
	return out
}

// MatMul contracts two rank-2 tensors over a's second axis and b's first
// axis, the ordinary matrix product.
func MatMul(a, b *Dense) *Dense {
	return Contract(a, b, []int{1}, []int{0})
}

// QR computes the reduced QR decomposition of the m x n matrix a (m >= n),
// returning Q (m x n, orthonormal columns) and R (n x n, upper triangular),
// via modified Gram-Schmidt.
func QR(a *Dense) (q, r *Dense) {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("QR requires rank 2, got %#v", a.shape))
	}
	m, n := a.shape[0], a.shape[1]
	if n > m {
		panic(fmt.Sprintf("QR requires m >= n, got %dx%d", m, n))
	}
	cols := make([]*Dense, n)
	for j := 0; j < n; j++ {
		cols[j] = a.Slice([][2]int{{0, m}, {j, j + 1}}).Reshape(m)
	}
	q = Zeros(m, n)
	r = Zeros(n, n)
	for j := 0; j < n; j++ {
		v := cols[j].Clone()
		for i := 0; i < j; i++ {
			qi := q.Slice([][2]int{{0, m}, {i, i + 1}}).Reshape(m)
			var rij complex64
			for k := 0; k < m; k++ {
				rij += conj(qi.At(k)) * v.At(k)
			}
			r.SetAt([]int{i, j}, rij)
			for k := 0; k < m; k++ {
				v.SetAt([]int{k}, v.At(k)-rij*qi.At(k))
			}
		}
		norm := v.FrobeniusNorm()
		r.SetAt([]int{j, j}, complex(norm, 0))
		for k := 0; k < m; k++ {
			var qk complex64
			if norm > epsilon {
				qk = v.At(k) / complex(norm, 0)
			}
			q.SetAt([]int{k, j}, qk)
		}
	}
	return q, r
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}
