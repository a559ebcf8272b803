package mps

import "github.com/fumin/dmrg/tensor"

// GrowLeft produces the new left block-operator group at the boundary just
// right of A, from the old group Lold (indexed by site's incoming MPO
// bond) and the newly fixed, left-canonical site tensor A. For each
// outgoing MPO bond j it sums over incoming i a triple contraction of
// Lold[i], W(i,j) and A, closed with conj(A) on the upper physical and
// virtual legs.
func GrowLeft(lold []*tensor.Dense, a *tensor.Dense, mpo *MPO, site int) []*tensor.Dense {
	return grow(lold, a, mpo, site, true)
}

// GrowRight is GrowLeft's mirror, growing the right block-operator group
// from the newly fixed, right-canonical site tensor A.
func GrowRight(rold []*tensor.Dense, a *tensor.Dense, mpo *MPO, site int) []*tensor.Dense {
	return grow(rold, a, mpo, site, false)
}

func grow(old []*tensor.Dense, a *tensor.Dense, mpo *MPO, site int, left bool) []*tensor.Dense {
	ac := a.Conj()
	rows, cols := mpo.Rows(site), mpo.Cols(site)

	var outer, inner int
	var newBondAxis int
	if left {
		outer, inner = cols, rows
		newBondAxis = mpsRightAxis
	} else {
		outer, inner = rows, cols
		newBondAxis = mpsLeftAxis
	}
	newBond := a.Shape()[newBondAxis]

	result := make([]*tensor.Dense, outer)
	for o := 0; o < outer; o++ {
		var acc *tensor.Dense
		for n := 0; n < inner; n++ {
			var i, j int
			if left {
				i, j = n, o
			} else {
				i, j = o, n
			}
			if mpo.IsNull(site, i, j) {
				continue
			}
			term := growTerm(old[pick(left, i, j)], a, ac, mpo.At(site, i, j), left)
			if acc == nil {
				acc = term
			} else {
				acc.Add(1, term)
			}
		}
		if acc == nil {
			acc = tensor.Zeros(newBond, newBond)
		}
		result[o] = acc
	}
	return result
}

func pick(left bool, i, j int) int {
	if left {
		return i
	}
	return j
}

// growTerm contracts one environment slot with A, the on-site operator,
// and conj(A), for one (i,j) pair.
func growTerm(envIJ, a, ac, w *tensor.Dense, left bool) *tensor.Dense {
	if left {
		// env ket axis meets A's left (mps) axis.
		t1 := tensor.Contract(envIJ, a, []int{0}, []int{mpsLeftAxis})
		// t1 shape: (envBondDag, phys, newRight); fold in the operator over phys,
		// leaving newRight as the sole free axis of t1 once envBondDag+physOut
		// are closed against conj(A)'s (left, phys).
		t2 := tensor.Contract(t1, w, []int{1}, []int{1})
		// t2 shape: (envBondDag, newRight, physOut).
		return tensor.Contract(t2, ac, []int{0, 2}, []int{mpsLeftAxis, mpsUpAxis})
	}
	// env ket axis meets A's right (mps) axis.
	t1 := tensor.Contract(envIJ, a, []int{0}, []int{mpsRightAxis})
	// t1 shape: (envBondDag, newLeft, phys); fold in the operator over phys.
	t2 := tensor.Contract(t1, w, []int{2}, []int{1})
	// t2 shape: (envBondDag, newLeft, physOut).
	return tensor.Contract(t2, ac, []int{0, 2}, []int{mpsRightAxis, mpsUpAxis})
}
