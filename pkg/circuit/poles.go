package circuit

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// StateMatrix returns A of d/dt [Q, I] = A*[Q, I] + [0, Vin/L].
func (p Params) StateMatrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		0, 1,
		-1 / (p.L * p.C), -p.R / p.L,
	})
}

// Poles returns the natural-response poles (eigenvalues of the state matrix),
// ordered by real part then imaginary part.
func (p Params) Poles() ([]complex128, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var eig mat.Eigen
	if ok := eig.Factorize(p.StateMatrix(), mat.EigenNone); !ok {
		return nil, fmt.Errorf("eigen decomposition failed for %v: %w", p, ErrNumericalInstability)
	}
	poles := eig.Values(nil)
	sort.Slice(poles, func(i, j int) bool {
		if real(poles[i]) != real(poles[j]) {
			return real(poles[i]) < real(poles[j])
		}
		return imag(poles[i]) < imag(poles[j])
	})
	return poles, nil
}
