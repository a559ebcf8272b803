package tensor

import (
	"fmt"
	"math"
	"sort"
)

const (
	maxJacobiSweeps = 60
	jacobiTol       = 1e-12
)

// SVD splits t into U, S, Vt at the boundary between its first
// leftAxisCount axes and the rest, truncating the kept bond dimension to
// [Dmin, Dmax] subject to a truncation-error budget truncErr. It returns the
// actual discarded weight epsTrunc (sum of squared dropped singular values)
// and the kept dimension dKept.
//
// targetDiv is asserted against t's own divergence: this tensor engine does
// not maintain block-sparse charge sectors, so there is no sector to select
// among.
func SVD(t *Dense, leftAxisCount int, targetDiv int, truncErr float32, Dmin, Dmax int) (u, s, vt *Dense, epsTrunc float32, dKept int) {
	if t.div != targetDiv {
		panic(fmt.Sprintf("SVD target divergence %d does not match tensor divergence %d", targetDiv, t.div))
	}
	leftShape := append([]int{}, t.shape[:leftAxisCount]...)
	rightShape := append([]int{}, t.shape[leftAxisCount:]...)
	m := volume(leftShape)
	n := volume(rightShape)
	mat := t.Reshape(m, n).Clone()

	var uMat, vMat *Dense
	var sv []float32
	if m >= n {
		uMat, sv, vMat = jacobiSVD(mat)
	} else {
		// mat.H() = lu * diag(sv) * lv^H, so mat = lv * diag(sv) * lu^H:
		// the global U is lv and the global V is lu.
		lu, ls, lv := jacobiSVD(mat.H())
		uMat, sv, vMat = lv, ls, lu
	}

	k := len(sv)
	kept := k
	if Dmax > 0 && Dmax < kept {
		kept = Dmax
	}
	var discarded float32
	for i := kept; i < k; i++ {
		discarded += sv[i] * sv[i]
	}
	for kept > Dmin {
		tail := sv[kept-1] * sv[kept-1]
		if discarded+tail > truncErr {
			break
		}
		discarded += tail
		kept--
	}
	if kept < Dmin {
		kept = Dmin
	}
	if kept > k {
		kept = k
	}
	discarded = 0
	for i := kept; i < k; i++ {
		discarded += sv[i] * sv[i]
	}

	uTrunc := uMat.Slice([][2]int{{0, m}, {0, kept}})
	vTrunc := vMat.Slice([][2]int{{0, n}, {0, kept}})
	sMat := Zeros(kept, kept)
	for i := 0; i < kept; i++ {
		sMat.SetAt([]int{i, i}, complex(sv[i], 0))
	}

	uShape := append(append([]int{}, leftShape...), kept)
	vtShape := append([]int{kept}, rightShape...)
	u = uTrunc.Reshape(uShape...)
	u.div = t.div
	vt = vTrunc.H().Reshape(vtShape...)
	vt.div = 0
	sMat.div = 0
	return u, sMat, vt, discarded, kept
}

// jacobiSVD computes the SVD of the m x n matrix a (m >= n) via one-sided
// Jacobi rotations, returning U (m x n, orthonormal columns), singular
// values sorted descending, and V (n x n, unitary) such that
// a = U * diag(s) * V^H.
func jacobiSVD(a *Dense) (u *Dense, s []float32, v *Dense) {
	m, n := a.shape[0], a.shape[1]
	cols := make([][]complex64, n)
	for j := 0; j < n; j++ {
		col := make([]complex64, m)
		for i := 0; i < m; i++ {
			col[i] = a.At(i, j)
		}
		cols[j] = col
	}
	vcols := make([][]complex64, n)
	for j := 0; j < n; j++ {
		col := make([]complex64, n)
		col[j] = 1
		vcols[j] = col
	}

	frob := a.FrobeniusNorm()
	threshold := jacobiTol * float64(frob) * float64(frob)

	for sweep := 0; sweep < maxJacobiSweeps; sweep++ {
		var offSum float64
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				alpha, beta, gamma := gram2(cols[p], cols[q])
				ag := abs(gamma)
				offSum += float64(ag) * float64(ag)
				if ag <= epsilon {
					continue
				}
				e1a, e1b, e2a, e2b := eigvecs2x2(alpha, beta, gamma)
				rotateCols(cols[p], cols[q], e1a, e1b, e2a, e2b)
				rotateCols(vcols[p], vcols[q], e1a, e1b, e2a, e2b)
			}
		}
		if offSum < threshold {
			break
		}
	}

	s = make([]float32, n)
	for j := 0; j < n; j++ {
		var sumSq float64
		for _, v := range cols[j] {
			sumSq += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
		}
		s[j] = float32(math.Sqrt(sumSq))
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return s[order[i]] > s[order[j]] })

	u = Zeros(m, n)
	v = Zeros(n, n)
	sSorted := make([]float32, n)
	for newJ, oldJ := range order {
		sSorted[newJ] = s[oldJ]
		sigma := s[oldJ]
		for i := 0; i < m; i++ {
			var val complex64
			if sigma > epsilon {
				val = cols[oldJ][i] / complex(sigma, 0)
			}
			u.SetAt([]int{i, newJ}, val)
		}
		for i := 0; i < n; i++ {
			v.SetAt([]int{i, newJ}, vcols[oldJ][i])
		}
	}
	return u, sSorted, v
}

// gram2 returns alpha=<p,p>, beta=<q,q> (real) and gamma=<p,q> (complex)
// for two column vectors of equal length.
func gram2(p, q []complex64) (alpha, beta float64, gamma complex64) {
	var a, b float64
	var g complex64
	for i := range p {
		a += float64(real(p[i]))*float64(real(p[i])) + float64(imag(p[i]))*float64(imag(p[i]))
		b += float64(real(q[i]))*float64(real(q[i])) + float64(imag(q[i]))*float64(imag(q[i]))
		g += conj(p[i]) * q[i]
	}
	return a, b, g
}

// eigvecs2x2 computes the unit eigenvectors of the 2x2 Hermitian matrix
// [[alpha, gamma], [conj(gamma), beta]]: the eigenvector for the larger
// eigenvalue as components (e1a, e1b) and for the smaller as (e2a, e2b).
func eigvecs2x2(alpha, beta float64, gamma complex64) (e1a, e1b, e2a, e2b complex64) {
	diff := alpha - beta
	g := float64(abs(gamma))
	disc := math.Sqrt(diff*diff + 4*g*g)
	lambda1 := (alpha + beta + disc) / 2
	lambda2 := (alpha + beta - disc) / 2

	mk := func(lambda float64) (complex64, complex64) {
		x1 := gamma
		x2 := complex(float32(lambda-alpha), 0)
		norm := float64(abs(x1))*float64(abs(x1)) + float64(abs(x2))*float64(abs(x2))
		if norm < 1e-30 {
			return 1, 0
		}
		nrm := float32(math.Sqrt(norm))
		return x1 / complex(nrm, 0), x2 / complex(nrm, 0)
	}
	e1a, e1b = mk(lambda1)
	e2a, e2b = mk(lambda2)
	return e1a, e1b, e2a, e2b
}

// rotateCols applies the 2x2 unitary [[e1a,e2a],[e1b,e2b]] to columns p,q
// in place: [p' q'] = [p q] * rot.
func rotateCols(p, q []complex64, e1a, e1b, e2a, e2b complex64) {
	for k := range p {
		pk, qk := p[k], q[k]
		p[k] = e1a*pk + e1b*qk
		q[k] = e2a*pk + e2b*qk
	}
}
