package mps

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
)

// BondResult reports the outcome of one two-site update (C6): the bond
// touched, the ground energy found, the actual truncation error and kept
// dimension of the SVD split, the Lanczos iteration count, and the
// entanglement entropy of the kept singular values.
type BondResult struct {
	L, R                int
	Energy              float32
	TruncErr            float32
	DKept               int
	LanczosIters        int
	EntanglementEntropy float32
}

// UpdateBond performs the two-site update at bond (l, l+1): it loads the two
// MPS tensors and their adjacent block-operator groups, contracts them into
// an initial two-site state, solves for the effective Hamiltonian's ground
// state via AssembleTerms and Lanczos, truncated-SVD splits the result,
// reassigns the two sites per the sweep direction, grows the newly filled
// environment (C7), and dumps the side that will not be touched again soon.
func UpdateBond(m *MPS, mpo *MPO, cache *BlockCache, l int, rightMoving bool, params SweepParams) (*BondResult, error) {
	r := l + 1
	if err := m.LoadTen(l); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := m.LoadTen(r); err != nil {
		return nil, errors.Wrap(err, "")
	}

	leftIdx := l
	rightIdx := mpo.N() - 1 - r
	leftEnv, err := cache.ReadLeft(leftIdx)
	if err != nil {
		return nil, errors.Wrap(err, bondMsg(l, r))
	}
	rightEnv, err := cache.ReadRight(rightIdx)
	if err != nil {
		return nil, errors.Wrap(err, bondMsg(l, r))
	}

	// state shape: (left, physL, physR, right). Contract places a's free
	// axes before b's, so this already matches the canonical ordering C4
	// and SVD expect, no transpose needed.
	state := tensor.Contract(m.Get(l), m.Get(r), []int{mpsRightAxis}, []int{mpsLeftAxis})

	terms := AssembleTerms(mpo, l, leftEnv, rightEnv)
	lanczParams := params.lanczParams
	if params.pool != nil {
		pool := params.pool
		lanczParams.Matvec = func(terms []Term, state *tensor.Dense) *tensor.Dense {
			pool.NewBond()
			return pool.Matvec(terms, state)
		}
	}
	lz, err := Lanczos(terms, state, lanczParams)
	if err != nil {
		return nil, errors.Wrap(err, bondMsg(l, r))
	}

	u, s, vt, eps, dKept := tensor.SVD(lz.GsVec, 2, m.Get(l).Div(), params.truncErr, params.dmin, params.dmax)
	entropy := entanglementEntropy(s, dKept)

	var left, right *tensor.Dense
	if rightMoving {
		left = u
		right = tensor.MatMul(s, vt)
	} else {
		left = tensor.MatMul(u, s)
		right = vt
	}
	m.Set(l, left)
	m.Set(r, right)
	if rightMoving {
		m.setCanonical(l, true)
		m.center = r
	} else {
		m.setCanonical(r, false)
		m.center = l
	}

	if rightMoving {
		lnew := GrowLeft(leftEnv, m.Get(l), mpo, l)
		if err := cache.WriteLeft(l+1, lnew); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
		if err := m.DumpTen(l, true); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
		if _, err := cache.ReadAndRemoveRight(rightIdx); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
	} else {
		rnew := GrowRight(rightEnv, m.Get(r), mpo, r)
		if err := cache.WriteRight(mpo.N()-r, rnew); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
		if err := m.DumpTen(r, true); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
		if _, err := cache.ReadAndRemoveLeft(leftIdx); err != nil {
			return nil, errors.Wrap(err, bondMsg(l, r))
		}
	}

	return &BondResult{
		L: l, R: r,
		Energy:              lz.GsEng,
		TruncErr:            eps,
		DKept:               dKept,
		LanczosIters:        lz.Iters,
		EntanglementEntropy: entropy,
	}, nil
}

func bondMsg(l, r int) string {
	return fmt.Sprintf("bond (%d,%d)", l, r)
}

// entanglementEntropy computes S = -sum p_i log(p_i) for p_i the squared,
// Frobenius-normalized singular values on the diagonal of s.
func entanglementEntropy(s *tensor.Dense, dKept int) float32 {
	var sum float64
	for i := 0; i < dKept; i++ {
		v := s.At(i, i)
		p := float64(real(v)) * float64(real(v))
		if p > 1e-20 {
			sum -= p * math.Log(p)
		}
	}
	return float32(sum)
}
