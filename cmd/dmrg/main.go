// Command dmrg runs the two-site DMRG ground-state search on a transverse-
// field Ising or Heisenberg chain and prints the resulting ground energy
// and the energy per site.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/dmrgdist"
	"github.com/fumin/dmrg/mps"
)

var (
	runDir    = flag.String("d", filepath.Join("runs", "dmrg"), "run directory")
	model     = flag.String("model", "ising", "model: ising or heisenberg")
	n         = flag.Int("n", 20, "chain length")
	j         = flag.Float64("j", 1, "coupling strength")
	h         = flag.Float64("h", 1, "transverse field (ising only)")
	bondDim   = flag.Int("bond", 32, "maximum kept bond dimension")
	sweeps    = flag.Int("sweeps", 6, "number of right+left sweep passes")
	truncErr  = flag.Float64("trunc_err", 1e-10, "per-bond truncation error budget")
	lanczTol  = flag.Float64("lancz_tol", 1e-8, "Lanczos energy convergence tolerance")
	lanczIter = flag.Int("lancz_iter", 100, "Lanczos maximum Krylov dimension")
	workers   = flag.Int("workers", 0, "worker pool size for distributed matvec; 0 disables it")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	mpsPath := filepath.Join(*runDir, "mps")
	tempPath := filepath.Join(*runDir, "env")
	if err := os.MkdirAll(mpsPath, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.MkdirAll(tempPath, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	var mpo *mps.MPO
	switch *model {
	case "ising":
		mpo = mps.Ising(*n, complex64(complex(*j, 0)), complex64(complex(*h, 0)))
	case "heisenberg":
		mpo = mps.Heisenberg(*n, complex64(complex(*j, 0)))
	default:
		return errors.Errorf("unknown model %q", *model)
	}

	state, err := mps.RandMPS(mpo, *bondDim, mpsPath, "site")
	if err != nil {
		return errors.Wrap(err, "rand mps")
	}

	params := mps.NewSweepParams().
		Sweeps(*sweeps).
		Bounds(1, *bondDim).
		TruncErr(float32(*truncErr)).
		Lanczos(mps.LanczosParams{Error: float32(*lanczTol), MaxIterations: *lanczIter}).
		Paths(mpsPath, tempPath)

	if *workers > 0 {
		pool := dmrgdist.New(*workers, *workers*4)
		defer pool.Close()
		params = params.Pool(pool)
	}

	exec := mps.NewExecutor(state, mpo, params)
	if err := exec.Init(); err != nil {
		return errors.Wrap(err, "init")
	}
	energy, err := exec.Sweep()
	if err != nil {
		return errors.Wrap(err, "sweep")
	}

	fmt.Printf("model=%s n=%d bond=%d sweeps=%d ground_energy=%.10f energy_per_site=%.10f\n",
		*model, *n, *bondDim, *sweeps, energy, energy/float32(*n))
	return nil
}
