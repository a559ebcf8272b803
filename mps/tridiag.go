package mps

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TridiagMode selects whether TridiagGsSolver also recovers the ground
// eigenvector or only its eigenvalue.
type TridiagMode int

const (
	// EigenvalueOnly skips eigenvector recovery.
	EigenvalueOnly TridiagMode = iota
	// EigenvalueAndVector recovers both the eigenvalue and eigenvector.
	EigenvalueAndVector
)

// TridiagGsSolver diagonalizes the m x m real-symmetric tridiagonal matrix
// with diagonal alpha[0:m] and off-diagonal beta[0:m-1], returning its
// lowest eigenvalue and, in EigenvalueAndVector mode, the corresponding
// eigenvector's m coefficients.
func TridiagGsSolver(alpha, beta []float32, m int, mode TridiagMode) (eigval float32, eigvec []float32, err error) {
	if len(alpha) < m || len(beta) < m-1 {
		return 0, nil, errors.Errorf("tridiagonal bands too short: alpha %d beta %d for m=%d", len(alpha), len(beta), m)
	}
	sym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		sym.SetSym(i, i, float64(alpha[i]))
	}
	for i := 0; i < m-1; i++ {
		sym.SetSym(i, i+1, float64(beta[i]))
	}

	var eig mat.EigenSym
	ok := eig.Factorize(sym, mode == EigenvalueAndVector)
	if !ok {
		return 0, nil, errors.Errorf("tridiagonal eigendecomposition of size %d did not converge", m)
	}

	values := eig.Values(nil)
	eigval = float32(values[0])
	if mode != EigenvalueAndVector {
		return eigval, nil, nil
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	eigvec = make([]float32, m)
	for i := 0; i < m; i++ {
		eigvec[i] = float32(vecs.At(i, 0))
	}
	return eigval, eigvec, nil
}
