package mps

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestExecutorSmokeN3 runs a full init+sweep cycle on a minimal 3-site
// transverse-field Ising chain, exercising every component (C1-C8) through
// real disk-backed persistence. It checks the run completes without error
// and returns a plausible, finite ground energy rather than asserting an
// exact converged value, since the two-site sweep's numerical convergence
// on any sign/arrangement isn't something to assert without running it.
func TestExecutorSmokeN3(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)
	mpsPath := filepath.Join(dir, "mps")
	tempPath := filepath.Join(dir, "env")

	n := 3
	mpo := Ising(n, 1, 1)
	state, err := RandMPS(mpo, 4, mpsPath, "site")
	if err != nil {
		t.Fatalf("%+v", err)
	}

	params := NewSweepParams().Sweeps(2).Bounds(1, 4).TruncErr(0).
		Lanczos(LanczosParams{Error: 1e-8, MaxIterations: 20}).
		Paths(mpsPath, tempPath)
	exec := NewExecutor(state, mpo, params)
	if err := exec.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	energy, err := exec.Sweep()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.IsNaN(float64(energy)) || math.IsInf(float64(energy), 0) {
		t.Fatalf("energy %v is not finite", energy)
	}
	// The ground energy of a 3-site, J=h=1 transverse-field Ising chain
	// cannot be below -(J+h)*(n-1)-h*n in magnitude by a wide margin.
	if energy < -10 || energy > 10 {
		t.Fatalf("energy %v outside a plausible range", energy)
	}
}

// TestExecutorSweepN2Trivial covers the mandatory 2-site scenario: a
// 2-site chain has only the single bond (0,1), which Sweep's right-pass
// and left-pass boundary ranges both skip, so this exercises the direct
// single-bond path rather than the general multi-bond loops. Energy alone
// can't tell a processed zero-Hamiltonian bond apart from a skipped one
// (float32's zero value is also 0), so this also checks the canonical
// center actually moved from the left boundary Init() leaves it at,
// which only happens if UpdateBond ran. It runs two sweeps rather than
// one so that the second sweep's read of R[0] exercises the reseed after
// the first sweep's UpdateBond call removes it.
func TestExecutorSweepN2Trivial(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)
	mpsPath := filepath.Join(dir, "mps")
	tempPath := filepath.Join(dir, "env")

	n := 2
	mpo := Ising(n, 0, 0)
	state, err := RandMPS(mpo, 4, mpsPath, "site")
	if err != nil {
		t.Fatalf("%+v", err)
	}

	params := NewSweepParams().Sweeps(2).Bounds(1, 4).TruncErr(0).
		Lanczos(LanczosParams{Error: 1e-8, MaxIterations: 20}).
		Paths(mpsPath, tempPath)
	exec := NewExecutor(state, mpo, params)
	if err := exec.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	energy, err := exec.Sweep()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if energy != 0 {
		t.Fatalf("energy %v, want exactly 0 for a zero Hamiltonian", energy)
	}
	if got := exec.MPS().Center(); got != 1 {
		t.Fatalf("canonical center %d, want 1: bond (0,1) was never updated", got)
	}
}
