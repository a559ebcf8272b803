package mps

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
)

// RandMPS allocates an n-site MPS of random, unnormalized site tensors
// whose bond dimension grows geometrically from the boundary and is capped
// at maxD, the standard initial-guess construction. Every site is dumped
// to mpsPath as it is produced; the returned MPS starts with no site
// resident.
func RandMPS(mpo *MPO, maxD int, mpsPath, basename string) (*MPS, error) {
	n := mpo.N()
	m := New(n, mpsPath, basename)

	physD0, err := physDim(mpo, 0)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	m.Set(0, randTensor(1, physD0, min(physD0, maxD)))
	if err := m.DumpTen(0, true); err != nil {
		return nil, errors.Wrap(err, "site 0")
	}

	ideal := physD0
	for i := 1; i <= n-2; i++ {
		physD, err := physDim(mpo, i)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		var rightD int
		switch {
		case i < n/2:
			rightD = ideal * physD
		case i > n/2:
			rightD = ideal / physD
		case n%2 == 0:
			rightD = ideal / physD
		default:
			rightD = ideal
		}
		ideal = rightD

		if err := m.LoadTen(i - 1); err != nil {
			return nil, errors.Wrap(err, "")
		}
		leftActual := m.Get(i - 1).Shape()[mpsRightAxis]
		if err := m.DumpTen(i-1, true); err != nil {
			return nil, errors.Wrap(err, "")
		}

		m.Set(i, randTensor(leftActual, physD, min(rightD, maxD)))
		if err := m.DumpTen(i, true); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("site %d", i))
		}
	}

	physDLast, err := physDim(mpo, n-1)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := m.LoadTen(n - 2); err != nil {
		return nil, errors.Wrap(err, "")
	}
	leftActual := m.Get(n - 2).Shape()[mpsRightAxis]
	if err := m.DumpTen(n-2, true); err != nil {
		return nil, errors.Wrap(err, "")
	}
	m.Set(n-1, randTensor(leftActual, physDLast, 1))
	if err := m.DumpTen(n-1, true); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("site %d", n-1))
	}
	return m, nil
}

// physDim infers a site's physical dimension from the first non-null
// on-site operator's row count.
func physDim(mpo *MPO, site int) (int, error) {
	rows, cols := mpo.Rows(site), mpo.Cols(site)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !mpo.IsNull(site, i, j) {
				return mpo.At(site, i, j).Shape()[0], nil
			}
		}
	}
	return 0, errors.Errorf("site %d has no non-null operator to infer physical dimension from", site)
}

func randTensor(shape ...int) *tensor.Dense {
	t := tensor.Zeros(shape...)
	for ijk := range t.All() {
		v := complex(rand.Float32()*2-1, rand.Float32()*2-1)
		t.SetAt(ijk, v)
	}
	return t
}
