package circuit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter reports a non-physical parameter or a malformed grid.
	ErrInvalidParameter = errors.New("rlc: invalid parameter")

	// ErrDivisionByZero reports R == 0 for the quality factor or omega == 0 for reactance.
	ErrDivisionByZero = errors.New("rlc: division by zero")

	// ErrNumericalInstability reports step-size collapse or non-finite output.
	ErrNumericalInstability = errors.New("rlc: numerical instability")
)

// ParamError names the parameter (or grid point) that failed validation.
type ParamError struct {
	Name  string
	Value float64
	Index int // grid index, -1 for scalar parameters
	Err   error
}

func (e *ParamError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%v: %s[%d]=%g", e.Err, e.Name, e.Index, e.Value)
	}
	return fmt.Sprintf("%v: %s=%g", e.Err, e.Name, e.Value)
}

func (e *ParamError) Unwrap() error { return e.Err }

// InvalidParam builds a scalar ErrInvalidParameter error.
func InvalidParam(name string, value float64) error {
	return &ParamError{Name: name, Value: value, Index: -1, Err: ErrInvalidParameter}
}

// InvalidGridPoint builds an ErrInvalidParameter error for one grid sample.
func InvalidGridPoint(name string, index int, value float64) error {
	return &ParamError{Name: name, Value: value, Index: index, Err: ErrInvalidParameter}
}

func divisionByZero(name string, value float64) error {
	return &ParamError{Name: name, Value: value, Index: -1, Err: ErrDivisionByZero}
}

// InstabilityError carries the grid point where integration broke down.
// It matches ErrNumericalInstability and unwraps to the integrator's cause.
type InstabilityError struct {
	Index int
	Time  float64
	Err   error
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%v at grid[%d] t=%g: %v", ErrNumericalInstability, e.Index, e.Time, e.Err)
}

func (e *InstabilityError) Is(target error) bool { return target == ErrNumericalInstability }

func (e *InstabilityError) Unwrap() error { return e.Err }
