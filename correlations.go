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
	"fmt"
	"math"
)

// minPorosity keeps the Kozeny–Carman resistance finite for a fully
// clogged layer.
const minPorosity = 1.e-3

// PoreSaturation returns the fraction of the clean pore volume occupied
// by deposit, where sigmaV is the volumetric specific deposit [m³/m³] and
// porosity0 is the clean bed porosity.
func PoreSaturation(sigmaV, porosity0 float64) float64 {
	return sigmaV / porosity0
}

// Porosity returns the porosity of a bed with clean porosity porosity0
// after sigmaV [m³/m³] of deposit has been retained.
func Porosity(sigmaV, porosity0 float64) float64 {
	return math.Max(porosity0-sigmaV, minPorosity)
}

// FilterCoefficient returns the filter coefficient λ [1/m] for a bed with
// volumetric specific deposit sigmaV, using the general form
//
//	λ = λ0 (1 + βσv/ε0)^y1 (1 - σv/ε0)^y2 (1 - σv/σu)^y3.
//
// λ is zero once the deposit reaches the ultimate specific deposit.
func FilterCoefficient(p *Parameters, lambda0, sigmaV float64) float64 {
	if sigmaV >= p.UltimateDeposit {
		return 0
	}
	s := PoreSaturation(sigmaV, p.Porosity)
	return lambda0 *
		math.Pow(1+p.RipeningFactor*s, p.RipeningExponent) *
		math.Pow(1-s, p.PorosityExponent) *
		math.Pow(1-sigmaV/p.UltimateDeposit, p.SaturationExponent)
}

// happelAs returns the Happel sphere-in-cell porosity parameter.
func happelAs(porosity float64) float64 {
	g := math.Cbrt(1 - porosity)
	g5 := math.Pow(g, 5)
	return 2 * (1 - g5) / (2 - 3*g + 3*g5 - 2*g5*g)
}

// collectorEfficiency returns the single collector contact efficiency η,
// the sum of the diffusion, interception and sedimentation contributions.
func (p *Parameters) collectorEfficiency() float64 {
	eta, _, _, _ := singleCollector(p)
	return eta
}

// singleCollector returns the total single collector efficiency and its
// diffusion, interception, and gravitational sedimentation components.
func singleCollector(p *Parameters) (eta, etaD, etaI, etaG float64) {
	peclet := 3 * math.Pi * p.Viscosity * p.ParticleDiameter * p.GrainDiameter *
		p.ApproachVelocity / (boltzmann * p.Temperature)
	etaD = 4 * math.Cbrt(happelAs(p.Porosity)) * math.Pow(peclet, -2./3.)

	r := p.ParticleDiameter / p.GrainDiameter
	etaI = 1.5 * r * r

	etaG = (p.ParticleDensity - p.FluidDensity) * gravity * p.ParticleDiameter *
		p.ParticleDiameter / (18 * p.Viscosity * p.ApproachVelocity)
	etaG = math.Max(etaG, 0) // buoyant particles do not settle onto grains.

	return etaD + etaI + etaG, etaD, etaI, etaG
}

// CleanFilterCoefficient calculates the clean bed filter coefficient λ0
// [1/m] from the single collector model:
//
//	λ0 = 3 (1-ε0) α η / (2 dg).
func CleanFilterCoefficient(p *Parameters) float64 {
	return 1.5 * (1 - p.Porosity) * p.AttachmentEfficiency * p.collectorEfficiency() /
		p.GrainDiameter
}

// FiltrationVelocity returns the average interstitial velocity [m/s] for
// approach velocity v and porosity.
func FiltrationVelocity(v, porosity float64) float64 {
	return v / porosity
}

// HeadLossGradient returns the hydraulic gradient (head loss per unit
// depth, m/m) through a layer with the given porosity, from the
// Kozeny–Carman equation.
func HeadLossGradient(p *Parameters, porosity float64) float64 {
	s := 6 / (p.Sphericity * p.GrainDiameter) // specific surface
	return p.KozenyConstant * p.Viscosity * p.ApproachVelocity *
		(1 - porosity) * (1 - porosity) * s * s /
		(p.FluidDensity * gravity * porosity * porosity * porosity)
}

// LocalState holds the state of the bed at a single point.
type LocalState struct {
	Concentration         float64 `desc:"Suspended particle concentration" units:"kg/m³"`
	Sigma                 float64 `desc:"Specific deposit" units:"kg/m³"`
	SigmaV                float64 `desc:"Volumetric specific deposit" units:"m³/m³"`
	Saturation            float64 `desc:"Pore saturation" units:"fraction"`
	Porosity              float64 `desc:"Porosity" units:"fraction"`
	Lambda                float64 `desc:"Filter coefficient" units:"1/m"`
	HeadGradient          float64 `desc:"Filter resistance (head loss per depth)" units:"m/m"`
	Velocity              float64 `desc:"Average filtration velocity" units:"m/s"`
	ConcentrationGradient float64 `desc:"Concentration gradient ∂C/∂L" units:"kg/m⁴"`
}

// NewLocalState evaluates every correlation at concentration c [kg/m³] and
// specific deposit sigma [kg/m³].
func NewLocalState(p *Parameters, c, sigma float64) LocalState {
	s := LocalState{Concentration: c, Sigma: sigma}
	s.SigmaV = sigma / p.DepositDensity
	s.Saturation = PoreSaturation(s.SigmaV, p.Porosity)
	s.Porosity = Porosity(s.SigmaV, p.Porosity)
	s.Lambda = FilterCoefficient(p, p.Lambda0(), s.SigmaV)
	s.HeadGradient = HeadLossGradient(p, s.Porosity)
	s.Velocity = FiltrationVelocity(p.ApproachVelocity, s.Porosity)
	s.ConcentrationGradient = -s.Lambda * c
	return s
}

// ConcentrationGradient returns ∂C/∂L [kg/m⁴] at concentration c and
// specific deposit sigma.
func ConcentrationGradient(p *Parameters, c, sigma float64) float64 {
	return NewLocalState(p, c, sigma).ConcentrationGradient
}

func (s LocalState) String() string {
	return fmt.Sprintf("C=%.4g kg/m³  σ=%.4g kg/m³  saturation=%.4g  ε=%.4g  "+
		"λ=%.4g 1/m  i=%.4g m/m  u=%.4g m/s  ∂C/∂L=%.4g kg/m⁴",
		s.Concentration, s.Sigma, s.Saturation, s.Porosity, s.Lambda,
		s.HeadGradient, s.Velocity, s.ConcentrationGradient)
}
