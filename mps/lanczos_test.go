package mps

import (
	"math"
	"testing"

	"github.com/fumin/dmrg/tensor"
)

func scalar11() *tensor.Dense {
	t := tensor.Zeros(1, 1)
	t.SetAt([]int{0, 0}, 1)
	return t
}

// TestLanczosBreakdownAtM1 uses a one-dimensional state space, where the
// only admissible vector is already an eigenvector: the residual vanishes
// on the very first iteration.
func TestLanczosBreakdownAtM1(t *testing.T) {
	t.Parallel()
	one := scalar11()
	wl := tensor.Zeros(1, 1)
	wl.SetAt([]int{0, 0}, 3)
	wr := tensor.Zeros(1, 1)
	wr.SetAt([]int{0, 0}, 2)
	terms := []Term{{L: one, Wl: wl, Wr: wr, R: one}}

	v0 := tensor.Zeros(1, 1, 1, 1)
	v0.SetAt([]int{0, 0, 0, 0}, 1)

	res, err := Lanczos(terms, v0, LanczosParams{Error: 1e-8, MaxIterations: 10})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if res.Iters != 1 {
		t.Fatalf("iters %d, expected 1", res.Iters)
	}
	if math.Abs(float64(res.GsEng-6)) > 1e-5 {
		t.Fatalf("energy %f, expected 6", res.GsEng)
	}
}

// TestLanczosDiagonalTwoLevel builds a two-site state whose effective
// Hamiltonian acts as the diagonal matrix diag(1,5) on the physical-left
// axis (all other axes trivial), and checks that Lanczos recovers the
// lower eigenvalue from a non-eigenvector starting guess.
func TestLanczosDiagonalTwoLevel(t *testing.T) {
	t.Parallel()
	one := scalar11()
	wl := tensor.Zeros(2, 2)
	wl.SetAt([]int{0, 0}, 1)
	wl.SetAt([]int{1, 1}, 5)
	wr := scalar11()
	terms := []Term{{L: one, Wl: wl, Wr: wr, R: one}}

	v0 := tensor.Zeros(1, 2, 1, 1)
	v0.SetAt([]int{0, 0, 0, 0}, 1)
	v0.SetAt([]int{0, 1, 0, 0}, 1)

	res, err := Lanczos(terms, v0, LanczosParams{Error: 1e-8, MaxIterations: 10})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(float64(res.GsEng-1)) > 1e-4 {
		t.Fatalf("energy %f, expected 1", res.GsEng)
	}
	top := abs32(res.GsVec.At(0, 0, 0, 0))
	bottom := abs32(res.GsVec.At(0, 1, 0, 0))
	if top <= bottom {
		t.Fatalf("expected ground state concentrated on the lower-eigenvalue component, got %f vs %f", top, bottom)
	}
}

func abs32(c complex64) float32 {
	return float32(math.Hypot(float64(real(c)), float64(imag(c))))
}
