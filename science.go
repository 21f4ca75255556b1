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
	"math"
)

// InitLayers returns a function that divides the bed described by p into
// p.NumLayers layers of equal thickness and sets them to their clean
// state.
func InitLayers(p *Parameters) DomainManipulator {
	return func(b *Bed) error {
		if err := p.Validate(); err != nil {
			return err
		}
		b.Params = p
		b.lambda0 = p.Lambda0()
		dz := p.LayerThickness()
		b.layers = make([]*Layer, p.NumLayers)
		for i := range b.layers {
			b.layers[i] = &Layer{
				Index: i,
				Depth: (float64(i) + 0.5) * dz,
				Dz:    dz,
			}
		}
		b.setup()
		if err := Calculations(UpdateBedState())(b); err != nil {
			return err
		}
		if err := ConcentrationSweep()(b); err != nil {
			return err
		}
		return HeadLossProfile()(b)
	}
}

// setup links the layers to the bed parameters.
func (b *Bed) setup() {
	for _, l := range b.layers {
		l.p = b.Params
		l.lambda0 = b.lambda0
	}
}

// ConcentrationSweep returns a function that integrates
// ∂C/∂L = -λC from the top of the bed to the bottom. Within a layer λ is
// constant, so the concentration decays exponentially and the solution is
// exact for the current deposit profile.
func ConcentrationSweep() DomainManipulator {
	return func(b *Bed) error {
		c := b.Params.InfluentConcentration
		for _, l := range b.layers {
			l.Cin = c
			l.C = c * math.Exp(-l.Lambda*l.Dz/2)
			l.Cout = c * math.Exp(-l.Lambda*l.Dz)
			c = l.Cout
		}
		b.Effluent = c
		return nil
	}
}

// depositionRate returns the rate of increase in specific deposit in l
// [kg/m³/s], from the mass balance ∂σ/∂t = -V ∂C/∂L.
func (l *Layer) depositionRate() float64 {
	return l.p.ApproachVelocity * (l.Cin - l.Cout) / l.Dz
}

// SetTimestep returns a function that sets the time step so that the
// volumetric deposit in any layer increases by no more than maxSatChange
// times the ultimate deposit, and the time step is no longer than maxDt
// seconds. ConcentrationSweep must be run first.
func SetTimestep(maxDt, maxSatChange float64) DomainManipulator {
	return func(b *Bed) error {
		limit := maxSatChange * b.Params.UltimateDeposit * b.Params.DepositDensity
		b.Dt = maxDt
		for _, l := range b.layers {
			if r := l.depositionRate(); r > 0 {
				b.Dt = math.Min(b.Dt, limit/r)
			}
		}
		if !(b.Dt > 0) {
			return &SimulationError{Time: b.Time, Layer: -1, Wrapped: ErrUnstable}
		}
		return nil
	}
}

// Deposition returns a function that adds the particles removed from
// suspension within a layer to its deposit.
func Deposition() LayerManipulator {
	return func(l *Layer, Δt float64) {
		l.Sigma += l.depositionRate() * Δt
	}
}

// UpdateBedState returns a function that recalculates the porosity,
// saturation, filter coefficient, filter resistance, and filtration
// velocity of a layer from its deposit.
func UpdateBedState() LayerManipulator {
	return func(l *Layer, _ float64) {
		p := l.p
		l.SigmaV = l.Sigma / p.DepositDensity
		l.Saturation = PoreSaturation(l.SigmaV, p.Porosity)
		l.Porosity = Porosity(l.SigmaV, p.Porosity)
		l.Lambda = FilterCoefficient(p, l.lambda0, l.SigmaV)
		l.HeadGradient = HeadLossGradient(p, l.Porosity)
		l.Velocity = FiltrationVelocity(p.ApproachVelocity, l.Porosity)
	}
}

// HeadLossProfile returns a function that integrates ∂H/∂L = i over the
// bed, setting the cumulative head loss at the bottom of each layer and
// the total head loss across the bed. It returns an error if the state of
// any layer is not finite.
func HeadLossProfile() DomainManipulator {
	return func(b *Bed) error {
		var h float64
		for _, l := range b.layers {
			if !finite(l.Sigma) || l.Sigma < 0 || !finite(l.HeadGradient) || !finite(l.Cout) {
				return &SimulationError{Time: b.Time, Layer: l.Index, Wrapped: ErrUnstable}
			}
			h += l.HeadGradient * l.Dz
			l.Head = h
		}
		b.HeadLoss = h
		return nil
	}
}

// AdvanceTime returns a function that advances the simulation clock by
// one time step and accumulates the influent and effluent masses.
func AdvanceTime() DomainManipulator {
	return func(b *Bed) error {
		v := b.Params.ApproachVelocity
		b.InfluentMass += v * b.Params.InfluentConcentration * b.Dt
		b.EffluentMass += v * b.Effluent * b.Dt
		b.Time += b.Dt
		return nil
	}
}

// DefaultRunFuncs returns the functions that advance the bed by one time
// step, in the order they must be run.
func DefaultRunFuncs(maxDt, maxSatChange float64) []DomainManipulator {
	return []DomainManipulator{
		ConcentrationSweep(),
		SetTimestep(maxDt, maxSatChange),
		Calculations(Deposition(), UpdateBedState()),
		HeadLossProfile(),
		AdvanceTime(),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
