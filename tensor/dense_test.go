package tensor

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func TestContract(t *testing.T) {
	t.Parallel()
	type testcase struct {
		a, b         *Dense
		axesA, axesB []int
		want         *Dense
	}
	tests := []testcase{}

	var tc testcase
	tc.a = Zeros(2, 3)
	tc.a.SetAt([]int{0, 0}, 1)
	tc.a.SetAt([]int{0, 1}, 2)
	tc.a.SetAt([]int{1, 2}, 3)
	tc.b = Zeros(3, 2)
	tc.b.SetAt([]int{0, 0}, 1)
	tc.b.SetAt([]int{1, 0}, 1)
	tc.b.SetAt([]int{2, 1}, 1)
	tc.axesA = []int{1}
	tc.axesB = []int{0}
	tc.want = Zeros(2, 2)
	tc.want.SetAt([]int{0, 0}, 3)
	tc.want.SetAt([]int{1, 1}, 3)
	tests = append(tests, tc)

	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			got := Contract(test.a, test.b, test.axesA, test.axesB)
			if err := got.Equal(test.want, epsilon); err != nil {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestMatMul(t *testing.T) {
	t.Parallel()
	a := Zeros(2, 2)
	a.SetAt([]int{0, 0}, 1)
	a.SetAt([]int{0, 1}, 2)
	a.SetAt([]int{1, 0}, 3)
	a.SetAt([]int{1, 1}, 4)
	got := MatMul(a, Eye(2, 0))
	if err := got.Equal(a, epsilon); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestQR(t *testing.T) {
	t.Parallel()
	for trial := 0; trial < 5; trial++ {
		t.Run(fmt.Sprintf("%d", trial), func(t *testing.T) {
			t.Parallel()
			a := randMat(6, 3)
			q, r := QR(a)

			// Q has orthonormal columns.
			qhq := MatMul(q.H(), q)
			if err := qhq.Equal(Eye(3, 0), 1e-4); err != nil {
				t.Fatalf("Q not orthonormal: %+v", err)
			}
			// Q*R reproduces A.
			got := MatMul(q, r)
			if err := got.Equal(a, 1e-4); err != nil {
				t.Fatalf("QR mismatch: %+v", err)
			}
		})
	}
}

func TestSVDReconstruct(t *testing.T) {
	t.Parallel()
	for trial := 0; trial < 5; trial++ {
		t.Run(fmt.Sprintf("%d", trial), func(t *testing.T) {
			t.Parallel()
			a := randMat(5, 4)
			u, s, vt, eps, d := SVD(a, 1, 0, 0, 1, 4)
			if d != 4 {
				t.Fatalf("kept %d, expected 4", d)
			}
			if eps > 1e-5 {
				t.Fatalf("truncation error %f, expected ~0", eps)
			}
			recon := MatMul(MatMul(u, s), vt)
			if err := recon.Equal(a, 1e-4); err != nil {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestSVDTruncation(t *testing.T) {
	t.Parallel()
	// Build an 8x8 matrix with a known, strictly decreasing singular spectrum.
	n := 8
	u := Eye(n, 0)
	vt := Eye(n, 0)
	s := Zeros(n, n)
	svals := make([]float32, n)
	for i := 0; i < n; i++ {
		svals[i] = float32(n - i)
		s.SetAt([]int{i, i}, complex(svals[i], 0))
	}
	a := MatMul(MatMul(u, s), vt)

	_, _, _, eps, d := SVD(a, 1, 0, 0, 1, 4)
	if d != 4 {
		t.Fatalf("kept %d, expected 4", d)
	}
	var want float32
	for i := 4; i < n; i++ {
		want += svals[i] * svals[i]
	}
	if absf(eps-want) > 1e-3 {
		t.Fatalf("truncation error %f, expected %f", eps, want)
	}
}

func TestDagInvolution(t *testing.T) {
	t.Parallel()
	a := randTensor(2, 3, 4)
	got := Dag(Dag(a))
	if err := got.Equal(a, 1e-5); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	a := randTensor(3, 3)
	n := Normalize(a)
	if n <= 0 {
		t.Fatalf("norm %f, expected positive", n)
	}
	if absf(a.FrobeniusNorm()-1) > 1e-4 {
		t.Fatalf("post-normalize norm %f, expected 1", a.FrobeniusNorm())
	}
}

func TestLinearCombine(t *testing.T) {
	t.Parallel()
	a := Zeros(2)
	a.SetAt([]int{0}, 1)
	b := Zeros(2)
	b.SetAt([]int{1}, 1)
	out := Zeros(2)
	LinearCombine([]complex64{2, 3}, []*Dense{a, b}, 0, out)
	want := Zeros(2)
	want.SetAt([]int{0}, 2)
	want.SetAt([]int{1}, 3)
	if err := out.Equal(want, epsilon); err != nil {
		t.Fatalf("%+v", err)
	}
}

func randMat(m, n int) *Dense {
	return randTensor(m, n)
}

func randTensor(shape ...int) *Dense {
	t := Zeros(shape...)
	for ijk := range t.All() {
		t.SetAt(ijk, complex(rand.Float32()*2-1, rand.Float32()*2-1))
	}
	return t
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
