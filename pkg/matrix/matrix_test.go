package matrix

import (
	"math"
	"testing"
)

func TestSystemSolve(t *testing.T) {
	// [2 3 1; 1 2 3; 3 1 2] x = [9 6 8], x = [35/18 29/18 5/18]
	sys, err := NewSystem(3)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	defer sys.Destroy()

	a := [][]float64{{2, 3, 1}, {1, 2, 3}, {3, 1, 2}}
	b := []float64{9, 6, 8}
	for i := range a {
		for j := range a[i] {
			sys.Add(i+1, j+1, a[i][j])
		}
		sys.AddRHS(i+1, b[i])
	}

	x, err := sys.Solve()
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	want := []float64{35.0 / 18.0, 29.0 / 18.0, 5.0 / 18.0}
	for i := range want {
		if math.Abs(x[i+1]-want[i]) > 1e-9 {
			t.Errorf("x[%d] = %g, want %g", i+1, x[i+1], want[i])
		}
	}
}

func TestSystemReuse(t *testing.T) {
	sys, err := NewSystem(2)
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()

	for _, scale := range []float64{1, 2, 4} {
		sys.Clear()
		sys.Add(1, 1, scale)
		sys.Add(2, 2, 2*scale)
		sys.Add(1, 2, 1)
		sys.AddRHS(1, scale+1)
		sys.AddRHS(2, 2*scale)

		x, err := sys.Solve()
		if err != nil {
			t.Fatalf("scale %g: %v", scale, err)
		}
		if math.Abs(x[1]-1) > 1e-12 || math.Abs(x[2]-1) > 1e-12 {
			t.Errorf("scale %g: x = %v, want [1 1]", scale, x[1:])
		}
	}
}

func TestSystemOutOfBounds(t *testing.T) {
	sys, err := NewSystem(1)
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()

	sys.Add(2, 1, 5)
	sys.AddRHS(0, 5)
	if rhs := sys.RHS(); rhs[1] != 0 {
		t.Errorf("out of range AddRHS touched rhs: %v", rhs)
	}
}

func TestSystemRestampAfterFactor(t *testing.T) {
	sys, err := NewSystem(3)
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()

	a := [][]float64{{2, 3, 1}, {1, 2, 3}, {3, 1, 2}}
	b := []float64{9, 6, 8}
	want := []float64{35.0 / 18.0, 29.0 / 18.0, 5.0 / 18.0}

	// the first Solve reorders the matrix; later stamps must still land on
	// the original (row, col) entries
	for k, scale := range []float64{1, 3, 0.5, 10} {
		sys.Clear()
		for i := range a {
			for j := range a[i] {
				sys.Add(i+1, j+1, scale*a[i][j])
			}
			sys.AddRHS(i+1, scale*b[i])
		}

		x, err := sys.Solve()
		if err != nil {
			t.Fatalf("solve %d: %v", k, err)
		}
		for i := range want {
			if math.Abs(x[i+1]-want[i]) > 1e-9 {
				t.Errorf("solve %d: x[%d] = %g, want %g", k, i+1, x[i+1], want[i])
			}
		}
	}
}
