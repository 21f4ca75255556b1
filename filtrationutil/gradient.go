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

package filtrationutil

import (
	"fmt"

	"github.com/bpearlman97/FiltrationStudy"
)

// Gradient evaluates the local state of a bed described by p at suspended
// concentration c and specific deposit sigma, both in kg/m³. A negative
// c is replaced by the influent concentration.
func Gradient(p *filtration.Parameters, c, sigma float64) (filtration.LocalState, error) {
	if err := p.Validate(); err != nil {
		return filtration.LocalState{}, err
	}
	if c < 0 {
		c = p.InfluentConcentration
	}
	if sigma < 0 {
		return filtration.LocalState{}, fmt.Errorf("filtration: Gradient.Deposit=%g but should be >=0", sigma)
	}
	return filtration.NewLocalState(p, c, sigma), nil
}
