// Package mps implements the two-site DMRG optimization core: an MPS
// container, a matrix-represented MPO, block-operator caching, an
// effective-Hamiltonian assembler, a matrix-free Lanczos eigensolver, the
// two-site update step, the block-operator grower, and the sweep
// orchestrator that ties them together.
package mps

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
	"github.com/fumin/dmrg/tensorfile"
)

const (
	mpsLeftAxis  = 0
	mpsUpAxis    = 1
	mpsRightAxis = 2

	epsilon = 0x1p-23

	// uncentralized is the canonical-center sentinel: no position is
	// guaranteed left- or right-isometric.
	uncentralized = -1
)

// MPS is an ordered sequence of site tensors with a tracked canonical
// center. Sites not currently loaded are nil; LoadTen/DumpTen page them to
// and from mpsPath.
type MPS struct {
	sites      []*tensor.Dense
	leftCanon  []bool
	rightCanon []bool
	center     int

	mpsPath  string
	basename string
}

// New allocates an MPS of n uncentralized, unloaded sites backed by files
// under mpsPath named basename+"<i>.db".
func New(n int, mpsPath, basename string) *MPS {
	return &MPS{
		sites:      make([]*tensor.Dense, n),
		leftCanon:  make([]bool, n),
		rightCanon: make([]bool, n),
		center:     uncentralized,
		mpsPath:    mpsPath,
		basename:   basename,
	}
}

// N returns the chain length.
func (m *MPS) N() int { return len(m.sites) }

// Center returns the canonical center, or uncentralized.
func (m *MPS) Center() int { return m.center }

func (m *MPS) path(i int) string {
	return filepath.Join(m.mpsPath, fmt.Sprintf("%s%d.db", m.basename, i))
}

// Get is a read-only borrow: it never touches canonical metadata.
func (m *MPS) Get(i int) *tensor.Dense {
	if m.sites[i] == nil {
		panic(fmt.Sprintf("site %d not resident", i))
	}
	return m.sites[i]
}

// Resident reports whether site i is currently loaded in memory.
func (m *MPS) Resident(i int) bool { return m.sites[i] != nil }

// Set is a mutating borrow: it replaces site i and uncanonicalizes it,
// resetting the tracked center since the caller's write is not guaranteed
// to preserve canonical structure.
func (m *MPS) Set(i int, t *tensor.Dense) {
	m.sites[i] = t
	m.leftCanon[i] = false
	m.rightCanon[i] = false
	m.center = uncentralized
}

// setCanonical records i as canonicalized in direction left/right without
// touching the center, used internally once a canonicalization pass has
// actually established the invariant at i.
func (m *MPS) setCanonical(i int, left bool) {
	if left {
		m.leftCanon[i] = true
	} else {
		m.rightCanon[i] = true
	}
}

// LoadTen loads site i from disk if not already resident.
func (m *MPS) LoadTen(i int) error {
	if m.sites[i] != nil {
		return nil
	}
	t, err := tensorfile.Read(m.path(i))
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("site %d", i))
	}
	m.sites[i] = t
	return nil
}

// DumpTen serializes site i to disk. If release is true, the in-memory
// copy is freed afterward.
func (m *MPS) DumpTen(i int, release bool) error {
	if m.sites[i] == nil {
		return errors.Errorf("site %d not resident, nothing to dump", i)
	}
	if err := tensorfile.Write(m.path(i), m.sites[i]); err != nil {
		return errors.Wrap(err, fmt.Sprintf("site %d", i))
	}
	if release {
		m.sites[i] = nil
	}
	return nil
}

// Centralize canonicalizes the MPS to target: a left-canonicalization pass
// from the leftmost non-left-canonical position up to target-1, then a
// right-canonicalization pass from the rightmost non-right-canonical
// position down to target+1. Idempotent when already centered at target.
func (m *MPS) Centralize(target int) error {
	if m.center == target {
		return nil
	}
	lo := 0
	for lo < target && m.leftCanon[lo] {
		lo++
	}
	for i := lo; i < target; i++ {
		if err := m.LeftCanonicalizeAt(i); err != nil {
			return errors.Wrap(err, fmt.Sprintf("left-canonicalize %d", i))
		}
	}

	hi := len(m.sites) - 1
	for hi > target && m.rightCanon[hi] {
		hi--
	}
	for i := hi; i > target; i-- {
		if err := m.RightCanonicalizeAt(i); err != nil {
			return errors.Wrap(err, fmt.Sprintf("right-canonicalize %d", i))
		}
	}

	m.center = target
	return nil
}

// LeftCanonicalizeAt SVD-splits site i over (left, physical) vs (right),
// replaces site i with the left-isometric U, and absorbs S*Vt into site
// i+1. The boundary case i==0 needs no special grouping: its trivial
// left bond (dimension 1) folds into the row group without changing the
// reshape's volume, so the same two-axis grouping applies uniformly.
func (m *MPS) LeftCanonicalizeAt(i int) error {
	if err := m.LoadTen(i); err != nil {
		return errors.Wrap(err, "")
	}
	t := m.sites[i]
	if t.Shape()[mpsLeftAxis]*t.Shape()[mpsUpAxis] == 0 || t.Shape()[mpsRightAxis] == 0 {
		return errors.Errorf("empty tensor at site %d, shape %#v", i, t.Shape())
	}
	u, s, vt, _, d := tensor.SVD(t, 2, t.Div(), 0, 1, maxInt)
	if d == 0 {
		return errors.Errorf("SVD at site %d collapsed to dimension 0", i)
	}
	m.sites[i] = u
	m.setCanonical(i, true)

	if i+1 < len(m.sites) {
		if err := m.LoadTen(i + 1); err != nil {
			return errors.Wrap(err, "")
		}
		sv := tensor.MatMul(s, vt)
		next := tensor.Contract(sv, m.sites[i+1], []int{1}, []int{mpsLeftAxis})
		m.sites[i+1] = next
		m.leftCanon[i+1] = false
		m.rightCanon[i+1] = false
	}
	return nil
}

// RightCanonicalizeAt SVD-splits site i over (left) vs (physical, right),
// replaces site i with the right-isometric Vt, and absorbs U*S into site
// i-1.
func (m *MPS) RightCanonicalizeAt(i int) error {
	if err := m.LoadTen(i); err != nil {
		return errors.Wrap(err, "")
	}
	t := m.sites[i]
	if t.Shape()[mpsLeftAxis] == 0 || t.Shape()[mpsUpAxis]*t.Shape()[mpsRightAxis] == 0 {
		return errors.Errorf("empty tensor at site %d, shape %#v", i, t.Shape())
	}
	u, s, vt, _, d := tensor.SVD(t, 1, t.Div(), 0, 1, maxInt)
	if d == 0 {
		return errors.Errorf("SVD at site %d collapsed to dimension 0", i)
	}
	m.sites[i] = vt
	m.setCanonical(i, false)

	if i-1 >= 0 {
		if err := m.LoadTen(i - 1); err != nil {
			return errors.Wrap(err, "")
		}
		us := tensor.MatMul(u, s)
		prev := tensor.Contract(m.sites[i-1], us, []int{mpsRightAxis}, []int{0})
		m.sites[i-1] = prev
		m.leftCanon[i-1] = false
		m.rightCanon[i-1] = false
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)
