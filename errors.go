/*
Copyright © 2024 the FiltrationStudy authors.
This file is part of FiltrationStudy.

FiltrationStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FiltrationStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FiltrationStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

package filtration

import (
	"errors"
	"fmt"
)

var (
	// ErrParameterBounds indicates a parameter value outside of its physical range.
	ErrParameterBounds = errors.New("filtration: parameter out of valid bounds")

	// ErrUnstable indicates the simulation produced a non-finite or negative state.
	ErrUnstable = errors.New("filtration: simulation unstable")

	// ErrNoLayers indicates that a bed was run before its layers were created.
	ErrNoLayers = errors.New("filtration: bed has no layers")
)

// SimulationError wraps an error with the time and layer where it occurred.
type SimulationError struct {
	Time    float64 // elapsed time [s]
	Layer   int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%v (t=%gs, layer %d)", e.Wrapped, e.Time, e.Layer)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// boundsError returns an error wrapping ErrParameterBounds for the named
// parameter.
func boundsError(name string, val float64, want string) error {
	return fmt.Errorf("%w: %s=%g but should be %s", ErrParameterBounds, name, val, want)
}
