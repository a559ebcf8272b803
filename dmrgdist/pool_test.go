package dmrgdist

import (
	"math"
	"testing"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

func one() *tensor.Dense {
	t := tensor.Zeros(1, 1)
	t.SetAt([]int{0, 0}, 1)
	return t
}

func diag2(a, b complex64) *tensor.Dense {
	t := tensor.Zeros(2, 2)
	t.SetAt([]int{0, 0}, a)
	t.SetAt([]int{1, 1}, b)
	return t
}

// TestPoolMatvecDistinctTermsSameState dispatches two distinct terms
// sharing the same state pointer to a single-worker pool, the exact
// scenario a state-only cache would collapse: the second job would
// return the first term's stale result instead of its own contribution.
// Wl is split into diag(1,0) and diag(0,5) so each term drives a
// different physical-left component, making a collision numerically
// obvious in the summed output.
func TestPoolMatvecDistinctTermsSameState(t *testing.T) {
	t.Parallel()
	state := tensor.Zeros(1, 2, 1, 1)
	state.SetAt([]int{0, 0, 0, 0}, 3)
	state.SetAt([]int{0, 1, 0, 0}, 7)

	terms := []mps.Term{
		{L: one(), Wl: diag2(1, 0), Wr: one(), R: one()},
		{L: one(), Wl: diag2(0, 5), Wr: one(), R: one()},
	}

	p := New(1, 4)
	defer p.Close()
	p.NewBond()
	out := p.Matvec(terms, state)

	got0 := real(out.At(0, 0, 0, 0))
	got1 := real(out.At(0, 1, 0, 0))
	if math.Abs(float64(got0-3)) > 1e-5 {
		t.Fatalf("component 0 = %v, want 3 (only the diag(1,0) term contributes)", got0)
	}
	if math.Abs(float64(got1-35)) > 1e-5 {
		t.Fatalf("component 1 = %v, want 35 (only the diag(0,5) term contributes)", got1)
	}
}

// TestPoolMatvecMatchesSequential checks the pool's summed contraction
// against a direct call to contractTerm for each term, across a pool
// with more workers than terms so jobs interleave across goroutines.
func TestPoolMatvecMatchesSequential(t *testing.T) {
	t.Parallel()
	state := tensor.Zeros(1, 2, 1, 1)
	state.SetAt([]int{0, 0, 0, 0}, 2)
	state.SetAt([]int{0, 1, 0, 0}, -1)

	terms := []mps.Term{
		{L: one(), Wl: diag2(2, 0), Wr: one(), R: one()},
		{L: one(), Wl: diag2(0, 3), Wr: one(), R: one()},
		{L: one(), Wl: diag2(1, 1), Wr: one(), R: one()},
	}

	want := tensor.Zeros(state.Shape()...)
	for _, term := range terms {
		want.Add(1, contractTerm(term, state))
	}

	p := New(4, 8)
	defer p.Close()
	p.NewBond()
	got := p.Matvec(terms, state)

	if err := got.Equal(want, 1e-5); err != nil {
		t.Fatalf("%+v", err)
	}
}
