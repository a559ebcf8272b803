package mps

import "github.com/fumin/dmrg/tensor"

// MPO is a matrix-represented Matrix Product Operator: for each site, a
// sparse D_s x D_{s+1} grid of on-site operator tensors. Null entries are
// structural zeros, distinguished from numerically-zero operators by
// absence from the backing map rather than by value.
type MPO struct {
	sites []*mpoSite
}

type mpoSite struct {
	rows, cols int
	w          map[[2]int]*tensor.Dense
}

// N returns the chain length.
func (o *MPO) N() int { return len(o.sites) }

// Rows returns D_s, the number of incoming MPO virtual bonds at site s.
func (o *MPO) Rows(s int) int { return o.sites[s].rows }

// Cols returns D_{s+1}, the number of outgoing MPO virtual bonds at site s.
func (o *MPO) Cols(s int) int { return o.sites[s].cols }

// IsNull reports whether (i,j) is a structural zero at site s.
func (o *MPO) IsNull(s, i, j int) bool {
	_, ok := o.sites[s].w[[2]int{i, j}]
	return !ok
}

// At returns the on-site operator at (s,i,j). Panics if the entry is null;
// callers must check IsNull first.
func (o *MPO) At(s, i, j int) *tensor.Dense {
	t, ok := o.sites[s].w[[2]int{i, j}]
	if !ok {
		panic("At called on a null MPO entry")
	}
	return t
}

// newFromBulk builds an n-site MPO from a D x D grid of bulk transfer
// operators (some entries possibly nil, meaning structurally null), the
// standard finite-state-automaton construction: the first site is the
// bulk's last row, the last site is the bulk's first column, and interior
// sites repeat the full bulk grid.
func newFromBulk(bulk [][]*tensor.Dense, n int) *MPO {
	d := len(bulk)
	o := &MPO{sites: make([]*mpoSite, n)}

	first := &mpoSite{rows: 1, cols: d, w: map[[2]int]*tensor.Dense{}}
	for j := 0; j < d; j++ {
		if bulk[d-1][j] != nil {
			first.w[[2]int{0, j}] = bulk[d-1][j]
		}
	}
	o.sites[0] = first

	for s := 1; s < n-1; s++ {
		site := &mpoSite{rows: d, cols: d, w: map[[2]int]*tensor.Dense{}}
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				if bulk[i][j] != nil {
					site.w[[2]int{i, j}] = bulk[i][j]
				}
			}
		}
		o.sites[s] = site
	}

	last := &mpoSite{rows: d, cols: 1, w: map[[2]int]*tensor.Dense{}}
	for i := 0; i < d; i++ {
		if bulk[i][0] != nil {
			last.w[[2]int{i, 0}] = bulk[i][0]
		}
	}
	o.sites[n-1] = last

	return o
}

func mat2(vals [4]complex64) *tensor.Dense {
	t := tensor.Zeros(2, 2)
	t.SetAt([]int{0, 0}, vals[0])
	t.SetAt([]int{0, 1}, vals[1])
	t.SetAt([]int{1, 0}, vals[2])
	t.SetAt([]int{1, 1}, vals[3])
	return t
}

func scale(c complex64, t *tensor.Dense) *tensor.Dense {
	return t.Clone().Mul(c)
}

var (
	identity2 = mat2([4]complex64{1, 0, 0, 1})
	pauliX    = mat2([4]complex64{0, 1, 1, 0})
	pauliY    = mat2([4]complex64{0, -1i, 1i, 0})
	pauliZ    = mat2([4]complex64{1, 0, 0, -1})
	splusOp   = mat2([4]complex64{0, 1, 0, 0}).SetDiv(1)
	sminusOp  = mat2([4]complex64{0, 0, 1, 0}).SetDiv(-1)
)

// Ising builds the transverse-field Ising model MPO on n sites,
// H = -J sum Z_i Z_{i+1} - h sum X_i.
func Ising(n int, j, h complex64) *MPO {
	bulk := [][]*tensor.Dense{
		{identity2, nil, nil},
		{pauliZ, nil, nil},
		{scale(-h, pauliX), scale(-j, pauliZ), identity2},
	}
	return newFromBulk(bulk, n)
}

// MagnetizationZ builds the MPO measuring total Z magnetization on n sites.
func MagnetizationZ(n int) *MPO {
	bulk := [][]*tensor.Dense{
		{identity2, nil},
		{pauliZ, identity2},
	}
	return newFromBulk(bulk, n)
}

// Heisenberg builds the spin-1/2 Heisenberg model MPO on n sites,
// H = J sum [(S+_i S-_{i+1} + S-_i S+_{i+1})/2 + Sz_i Sz_{i+1}], with Sz = Z/2.
func Heisenberg(n int, j complex64) *MPO {
	bulk := [][]*tensor.Dense{
		{identity2, nil, nil, nil, nil},
		{sminusOp, nil, nil, nil, nil},
		{splusOp, nil, nil, nil, nil},
		{pauliZ, nil, nil, nil, nil},
		{nil, scale(j/2, splusOp), scale(j/2, sminusOp), scale(j/4, pauliZ), identity2},
	}
	return newFromBulk(bulk, n)
}
