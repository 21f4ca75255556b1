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
	"encoding/gob"
	"fmt"
	"io"
)

// savedBed is the persistent state of a Bed. Everything else about the
// bed can be recalculated from it.
type savedBed struct {
	Params       *Parameters
	Lambda0      float64
	Time         float64
	InfluentMass float64
	EffluentMass float64
	Iteration    int
	Sigma        []float64
}

// Save returns a function that saves the state of the bed to w in gob
// format (described at https://golang.org/pkg/encoding/gob/).
func Save(w io.Writer) DomainManipulator {
	return func(b *Bed) error {
		s := savedBed{
			Params:       b.Params,
			Lambda0:      b.lambda0,
			Time:         b.Time,
			InfluentMass: b.InfluentMass,
			EffluentMass: b.EffluentMass,
			Iteration:    b.iteration,
			Sigma:        make([]float64, len(b.layers)),
		}
		for i, l := range b.layers {
			s.Sigma[i] = l.Sigma
		}
		if err := gob.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("filtration.Bed.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads the state of a previously Saved bed,
// so that a filter run can be continued.
func Load(r io.Reader) DomainManipulator {
	return func(b *Bed) error {
		var s savedBed
		if err := gob.NewDecoder(r).Decode(&s); err != nil {
			return fmt.Errorf("filtration.Bed.Load: %v", err)
		}
		if s.Params == nil || len(s.Sigma) != s.Params.NumLayers {
			return fmt.Errorf("filtration.Bed.Load: saved bed has %d layers", len(s.Sigma))
		}
		p := s.Params.Clone()
		if p.CleanFilterCoefficient <= 0 {
			p.CleanFilterCoefficient = s.Lambda0
		}
		if err := InitLayers(p)(b); err != nil {
			return fmt.Errorf("filtration.Bed.Load: %v", err)
		}
		for i, l := range b.layers {
			l.Sigma = s.Sigma[i]
		}
		b.Time = s.Time
		b.InfluentMass, b.EffluentMass = s.InfluentMass, s.EffluentMass
		b.iteration = s.Iteration
		if err := Calculations(UpdateBedState())(b); err != nil {
			return err
		}
		if err := ConcentrationSweep()(b); err != nil {
			return err
		}
		return HeadLossProfile()(b)
	}
}
