package mps

import (
	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
)

// LanczosParams are the tunables of the Lanczos eigensolver.
type LanczosParams struct {
	// Error is the energy convergence tolerance.
	Error float32
	// MaxIterations caps the Krylov subspace dimension.
	MaxIterations int
	// Matvec, if set, replaces the built-in sequential matvec with a
	// pluggable term-wise fan-out (e.g. a worker pool's Matvec method).
	Matvec func(terms []Term, state *tensor.Dense) *tensor.Dense
}

// LanczosResult is C5's output: the number of iterations taken, the ground
// energy, and a freshly allocated ground-state tensor.
type LanczosResult struct {
	Iters int
	GsEng float32
	GsVec *tensor.Dense
}

// Lanczos is the matrix-free Lanczos eigensolver (C5). It consumes only
// terms (the effective-Hamiltonian term group) and an initial state v0; it
// never allocates more than iters+2 basis tensors at a time, retaining the
// full Krylov basis for the final recombination.
func Lanczos(terms []Term, v0 *tensor.Dense, params LanczosParams) (*LanczosResult, error) {
	mv := params.Matvec
	if mv == nil {
		mv = matvec
	}

	b0 := v0.Clone()
	tensor.Normalize(b0)
	basis := []*tensor.Dense{b0}

	w := mv(terms, b0)
	alpha := []float32{real64(innerProduct(b0, w))}
	var beta []float32

	dim := volumeOf(v0)
	E := alpha[0]

	m := 0
	for {
		m++
		gamma := w.Clone()
		gamma.Add(complex(-alpha[m-1], 0), basis[m-1])
		if m > 1 {
			gamma.Add(complex(-beta[m-2], 0), basis[m-2])
		}
		eta := gamma.FrobeniusNorm()

		if eta <= lanczosBreakdownEps {
			if m == 1 {
				return &LanczosResult{Iters: 1, GsEng: alpha[0], GsVec: b0}, nil
			}
			eigval, eigvec, err := TridiagGsSolver(alpha, beta, m, EigenvalueAndVector)
			if err != nil {
				return nil, errors.Wrap(err, "breakdown recombination")
			}
			gsVec := recombine(basis, eigvec)
			return &LanczosResult{Iters: m, GsEng: eigval, GsVec: gsVec}, nil
		}

		bm := gamma.Mul(complex(1/eta, 0))
		basis = append(basis, bm)
		beta = append(beta, eta)
		w = mv(terms, bm)
		alpha = append(alpha, real64(innerProduct(bm, w)))

		eigvalNew, _, err := TridiagGsSolver(alpha, beta, m+1, EigenvalueOnly)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}

		stop := (E-eigvalNew < params.Error) || (m == dim) || (m == params.MaxIterations-1)
		if stop {
			eigval, eigvec, err := TridiagGsSolver(alpha, beta, m+1, EigenvalueAndVector)
			if err != nil {
				return nil, errors.Wrap(err, "")
			}
			gsVec := recombine(basis, eigvec)
			return &LanczosResult{Iters: m + 1, GsEng: eigval, GsVec: gsVec}, nil
		}
		E = eigvalNew
	}
}

const lanczosBreakdownEps = 1e-10

func recombine(basis []*tensor.Dense, coefs []float32) *tensor.Dense {
	out := tensor.Zeros(basis[0].Shape()...)
	cc := make([]complex64, len(coefs))
	vv := make([]*tensor.Dense, len(coefs))
	for i, c := range coefs {
		cc[i] = complex(c, 0)
		vv[i] = basis[i]
	}
	tensor.LinearCombine(cc, vv, 0, out)
	return out
}

func innerProduct(a, b *tensor.Dense) complex64 {
	var sum complex64
	for ijk := range a.All() {
		sum += conjScalar(a.At(ijk...)) * b.At(ijk...)
	}
	return sum
}

func conjScalar(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

func real64(c complex64) float32 {
	return real(c)
}

func volumeOf(t *tensor.Dense) int {
	n := 1
	for _, d := range t.Shape() {
		n *= d
	}
	return n
}
