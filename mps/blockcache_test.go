package mps

import (
	"os"
	"testing"

	"github.com/fumin/dmrg/tensor"
)

func groupOf(vals ...complex64) []*tensor.Dense {
	g := make([]*tensor.Dense, len(vals))
	for i, v := range vals {
		t := tensor.Zeros(1, 1)
		t.SetAt([]int{0, 0}, v)
		g[i] = t
	}
	return g
}

func TestBlockCacheRoundTrip(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	c := NewBlockCache(dir)
	for p := 0; p < 4; p++ {
		if err := c.WriteLeft(p, groupOf(complex64(complex(float32(p), 0)))); err != nil {
			t.Fatalf("%+v", err)
		}
	}

	// Only the two most recently written should remain resident; earlier
	// ones must still be readable from disk.
	grp, err := c.ReadLeft(0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if grp[0].At(0, 0) != 0 {
		t.Fatalf("%v, expected 0", grp[0].At(0, 0))
	}

	grp3, err := c.ReadAndRemoveLeft(3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if grp3[0].At(0, 0) != 3 {
		t.Fatalf("%v, expected 3", grp3[0].At(0, 0))
	}
	if _, err := c.ReadLeft(3); err == nil {
		t.Fatalf("expected error reading removed group")
	}
}

func TestBlockCacheLeftRightIndependent(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	c := NewBlockCache(dir)
	if err := c.WriteLeft(0, groupOf(1)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.WriteRight(0, groupOf(2)); err != nil {
		t.Fatalf("%+v", err)
	}
	l, err := c.ReadLeft(0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	r, err := c.ReadRight(0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if l[0].At(0, 0) != 1 || r[0].At(0, 0) != 2 {
		t.Fatalf("left %v right %v", l[0].At(0, 0), r[0].At(0, 0))
	}
}
