package matrix

import (
	"fmt"
	"log"

	"github.com/edp1096/sparse"
)

// System is a real linear system A*x = b with 1-based indices, backed by a
// sparse LU factorization.
type System struct {
	Size     int
	matrix   *sparse.Matrix
	elements [][]*sparse.Element // 1-based, fixed before the first Factor
	rhs      []float64
	solution []float64
}

func NewSystem(size int) (*System, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	s := &System{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
	}
	if err := s.setupElements(); err != nil {
		mat.Destroy()
		return nil, err
	}
	return s, nil
}

// setupElements allocates every entry and keeps its pointer. Factor reorders
// the matrix, after which lookups by external index are no longer valid, so
// stamping always goes through the cached pointers.
func (s *System) setupElements() error {
	s.elements = make([][]*sparse.Element, s.Size+1)
	for i := 1; i <= s.Size; i++ {
		s.elements[i] = make([]*sparse.Element, s.Size+1)
		for j := 1; j <= s.Size; j++ {
			e := s.matrix.GetElement(int64(i), int64(j))
			if e == nil {
				return fmt.Errorf("allocating matrix element (%d, %d)", i, j)
			}
			s.elements[i][j] = e
		}
	}
	return nil
}

func (s *System) Add(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > s.Size || j > s.Size {
		log.Printf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, s.Size)
		return
	}
	s.elements[i][j].Real += value
}

func (s *System) AddRHS(i int, value float64) {
	if i <= 0 || i > s.Size {
		log.Printf("rhs index out of bounds (i=%d, size=%d)", i, s.Size)
		return
	}
	s.rhs[i] += value
}

func (s *System) Clear() {
	s.matrix.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

// Solve factors the stamped matrix and returns the 1-based solution vector.
// The returned slice is owned by the System until the next Solve.
func (s *System) Solve() ([]float64, error) {
	if err := s.matrix.Factor(); err != nil {
		return nil, fmt.Errorf("matrix factorization failed: %v", err)
	}

	solution, err := s.matrix.Solve(s.rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %v", err)
	}
	s.solution = solution
	return s.solution, nil
}

func (s *System) RHS() []float64 {
	return s.rhs
}

func (s *System) Destroy() {
	if s.matrix != nil {
		s.matrix.Destroy()
		s.matrix = nil
		s.elements = nil
	}
}
