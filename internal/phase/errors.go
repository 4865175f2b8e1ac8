package phase

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for points outside the modelled domain.
var ErrOutOfRange = errors.New("point outside phase diagram")

// RangeError describes which coordinate was rejected.
type RangeError struct {
	X, T float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("x=%g T=%g: %v (x in [%g, %g], T in [%g, %g])",
		e.X, e.T, ErrOutOfRange, MinX, MaxX, MinT, MaxT)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Validate checks that (x, t) lies inside the diagram. NaN is rejected.
func Validate(x, t float64) error {
	if math.IsNaN(x) || math.IsNaN(t) || x < MinX || x > MaxX || t < MinT || t > MaxT {
		return &RangeError{X: x, T: t}
	}
	return nil
}
