package mps

import "github.com/fumin/dmrg/tensor"

// Term is C4's opaque effective-Hamiltonian tuple: four borrowed tensor
// references whose lifetimes are tied to the current bond update. Term
// groups must never be stored across bond transitions.
type Term struct {
	L  *tensor.Dense // L[l][i]: rank-2 (mps-bond, mps-bond-dagger)
	Wl *tensor.Dense // W[l](i,j): rank-2 on-site operator, physical-left
	Wr *tensor.Dense // W[r](j,k): rank-2 on-site operator, physical-right
	R  *tensor.Dense // R[N-1-r][k]: rank-2 (mps-bond, mps-bond-dagger)
}

// AssembleTerms enumerates the non-null (L[l][i], W[l](i,j), W[r](j,k),
// R[N-1-r][k]) quadruples for the bond (l, l+1), in a fixed i,j,k
// ascending order so floating-point summation is reproducible.
func AssembleTerms(mpo *MPO, l int, leftEnv, rightEnv []*tensor.Dense) []Term {
	r := l + 1
	var terms []Term
	for i := 0; i < mpo.Rows(l); i++ {
		for j := 0; j < mpo.Cols(l); j++ {
			if mpo.IsNull(l, i, j) {
				continue
			}
			for k := 0; k < mpo.Cols(r); k++ {
				if mpo.IsNull(r, j, k) {
					continue
				}
				terms = append(terms, Term{
					L:  leftEnv[i],
					Wl: mpo.At(l, i, j),
					Wr: mpo.At(r, j, k),
					R:  rightEnv[k],
				})
			}
		}
	}
	return terms
}

// matvec applies the effective Hamiltonian (the sum over all terms) to a
// rank-4 two-site state (left, physL, physR, right), the contraction
// pattern of spec section 4.5: fold in the left environment, then the two
// on-site operators, then the right environment, summing all term
// contributions with unit coefficients into a freshly allocated tensor.
func matvec(terms []Term, state *tensor.Dense) *tensor.Dense {
	result := tensor.Zeros(state.Shape()...)
	for _, term := range terms {
		t0 := tensor.Contract(term.L, state, []int{0}, []int{0})
		t1 := tensor.Contract(t0, term.Wl, []int{1}, []int{1}).Transpose(0, 3, 1, 2)
		t2 := tensor.Contract(t1, term.Wr, []int{2}, []int{1}).Transpose(0, 1, 3, 2)
		t3 := tensor.Contract(t2, term.R, []int{3}, []int{0})
		result.Add(1, t3)
	}
	return result
}
