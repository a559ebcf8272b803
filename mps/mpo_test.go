package mps

import (
	"fmt"
	"testing"
)

func TestIsingStructure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n int
	}{
		{n: 3},
		{n: 5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d", test.n), func(t *testing.T) {
			t.Parallel()
			o := Ising(test.n, 1, 1)
			if o.N() != test.n {
				t.Fatalf("%d, expected %d", o.N(), test.n)
			}
			if o.Rows(0) != 1 || o.Cols(0) != 3 {
				t.Fatalf("first site %d %d", o.Rows(0), o.Cols(0))
			}
			if o.Rows(test.n-1) != 3 || o.Cols(test.n-1) != 1 {
				t.Fatalf("last site %d %d", o.Rows(test.n-1), o.Cols(test.n-1))
			}
			if test.n > 2 {
				if o.Rows(1) != 3 || o.Cols(1) != 3 {
					t.Fatalf("interior site %d %d", o.Rows(1), o.Cols(1))
				}
				if !o.IsNull(1, 0, 1) || !o.IsNull(1, 0, 2) {
					t.Fatalf("row 0 should only have column 0 populated")
				}
				if o.IsNull(1, 0, 0) {
					t.Fatalf("(0,0) should be the identity pass-through")
				}
			}
			for s := 0; s < test.n; s++ {
				for i := 0; i < o.Rows(s); i++ {
					for j := 0; j < o.Cols(s); j++ {
						if o.IsNull(s, i, j) {
							continue
						}
						shape := o.At(s, i, j).Shape()
						if len(shape) != 2 || shape[0] != 2 || shape[1] != 2 {
							t.Fatalf("site %d (%d,%d) shape %#v", s, i, j, shape)
						}
					}
				}
			}
		})
	}
}

func TestHeisenbergStructure(t *testing.T) {
	t.Parallel()
	n := 4
	o := Heisenberg(n, 1)
	if o.N() != n {
		t.Fatalf("%d, expected %d", o.N(), n)
	}
	if o.Rows(0) != 1 || o.Cols(0) != 5 {
		t.Fatalf("first site %d %d", o.Rows(0), o.Cols(0))
	}
	if o.Rows(n-1) != 5 || o.Cols(n-1) != 1 {
		t.Fatalf("last site %d %d", o.Rows(n-1), o.Cols(n-1))
	}
	nonNull := 0
	for i := 0; i < o.Rows(1); i++ {
		for j := 0; j < o.Cols(1); j++ {
			if !o.IsNull(1, i, j) {
				nonNull++
			}
		}
	}
	if nonNull != 8 {
		t.Fatalf("%d non-null bulk entries, expected 8", nonNull)
	}
}

func TestMagnetizationZStructure(t *testing.T) {
	t.Parallel()
	n := 6
	o := MagnetizationZ(n)
	if o.Rows(0) != 1 || o.Cols(0) != 2 {
		t.Fatalf("first site %d %d", o.Rows(0), o.Cols(0))
	}
	if o.Rows(n-1) != 2 || o.Cols(n-1) != 1 {
		t.Fatalf("last site %d %d", o.Rows(n-1), o.Cols(n-1))
	}
	if o.IsNull(2, 1, 0) || o.IsNull(2, 1, 1) {
		t.Fatalf("row 1 of the bulk grid should be fully populated")
	}
	if !o.IsNull(2, 0, 1) {
		t.Fatalf("(0,1) should be structurally null")
	}
}
