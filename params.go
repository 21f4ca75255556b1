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
	"reflect"
	"strconv"
	"strings"

	"github.com/ctessum/unit"
)

// Physical constants.
const (
	gravity   = 9.80665      // m/s²
	boltzmann = 1.380649e-23 // J/K
)

// Parameters holds the scalar physical parameters of a filter bed,
// its media, the suspension being filtered, and the carrying fluid.
// All values are in SI units.
type Parameters struct {
	InfluentConcentration float64 `desc:"Influent particle concentration" units:"kg/m³"`
	ApproachVelocity      float64 `desc:"Approach (superficial) velocity" units:"m/s"`
	GrainDiameter         float64 `desc:"Filter media grain diameter" units:"m"`
	ParticleDiameter      float64 `desc:"Suspended particle diameter" units:"m"`
	Porosity              float64 `desc:"Clean bed porosity" units:"fraction"`
	BedDepth              float64 `desc:"Filter bed depth" units:"m"`
	NumLayers             int     // number of computational layers

	// CleanFilterCoefficient is λ0 [1/m]. If it is not > 0 it is
	// calculated from the single-collector correlation.
	CleanFilterCoefficient float64 `desc:"Clean bed filter coefficient" units:"1/m"`
	AttachmentEfficiency   float64 `desc:"Collision attachment efficiency" units:"fraction"`

	// Filter coefficient evolution: λ = λ0 (1+βσv/ε0)^y1 (1-σv/ε0)^y2 (1-σv/σu)^y3
	RipeningFactor     float64 `desc:"Ripening factor β" units:"-"`
	RipeningExponent   float64 `desc:"Ripening exponent y1" units:"-"`
	PorosityExponent   float64 `desc:"Porosity exponent y2" units:"-"`
	SaturationExponent float64 `desc:"Saturation exponent y3" units:"-"`
	UltimateDeposit    float64 `desc:"Ultimate volumetric specific deposit σu" units:"m³/m³"`

	DepositDensity  float64 `desc:"Bulk density of retained deposit" units:"kg/m³"`
	ParticleDensity float64 `desc:"Particle density" units:"kg/m³"`
	FluidDensity    float64 `desc:"Fluid density" units:"kg/m³"`
	Viscosity       float64 `desc:"Fluid dynamic viscosity" units:"Pa s"`
	Temperature     float64 `desc:"Fluid temperature" units:"K"`

	KozenyConstant float64 `desc:"Kozeny constant" units:"-"`
	Sphericity     float64 `desc:"Grain sphericity" units:"fraction"`
}

// DefaultParameters returns parameters for a 1 m bed of 0.6 mm media
// filtering 10 mg/L of 10 μm particles from water at 10 m/h.
func DefaultParameters() *Parameters {
	return &Parameters{
		InfluentConcentration: 0.01,
		ApproachVelocity:      10. / 3600.,
		GrainDiameter:         0.6e-3,
		ParticleDiameter:      10.e-6,
		Porosity:              0.42,
		BedDepth:              1.,
		NumLayers:             50,
		AttachmentEfficiency:  0.8,
		RipeningFactor:        2.,
		RipeningExponent:      1.,
		PorosityExponent:      0.,
		SaturationExponent:    1.,
		UltimateDeposit:       0.15,
		DepositDensity:        60.,
		ParticleDensity:       1200.,
		FluidDensity:          998.2,
		Viscosity:             1.002e-3,
		Temperature:           293.15,
		KozenyConstant:        5.,
		Sphericity:            1.,
	}
}

// Validate checks that p describes a physically meaningful bed.
func (p *Parameters) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"ApproachVelocity", p.ApproachVelocity},
		{"GrainDiameter", p.GrainDiameter},
		{"ParticleDiameter", p.ParticleDiameter},
		{"BedDepth", p.BedDepth},
		{"DepositDensity", p.DepositDensity},
		{"FluidDensity", p.FluidDensity},
		{"Viscosity", p.Viscosity},
		{"Temperature", p.Temperature},
		{"KozenyConstant", p.KozenyConstant},
	}
	for _, v := range positive {
		if !(v.v > 0) || math.IsInf(v.v, 0) {
			return boundsError(v.name, v.v, ">0")
		}
	}
	if !(p.InfluentConcentration >= 0) {
		return boundsError("InfluentConcentration", p.InfluentConcentration, ">=0")
	}
	if !(p.Porosity > 0 && p.Porosity < 1) {
		return boundsError("Porosity", p.Porosity, "between 0 and 1")
	}
	if !(p.UltimateDeposit > 0 && p.UltimateDeposit <= p.Porosity) {
		return boundsError("UltimateDeposit", p.UltimateDeposit, fmt.Sprintf("in (0, Porosity=%g]", p.Porosity))
	}
	if !(p.Sphericity > 0 && p.Sphericity <= 1) {
		return boundsError("Sphericity", p.Sphericity, "in (0, 1]")
	}
	if !(p.AttachmentEfficiency >= 0 && p.AttachmentEfficiency <= 1) {
		return boundsError("AttachmentEfficiency", p.AttachmentEfficiency, "in [0, 1]")
	}
	if p.CleanFilterCoefficient < 0 {
		return boundsError("CleanFilterCoefficient", p.CleanFilterCoefficient, ">=0")
	}
	if p.RipeningFactor < 0 {
		return boundsError("RipeningFactor", p.RipeningFactor, ">=0")
	}
	if p.NumLayers < 1 {
		return boundsError("NumLayers", float64(p.NumLayers), ">=1")
	}
	return p.checkDimensions()
}

// parameterDims holds the dimensions of each Parameters field, as given
// by its units tag.
var parameterDims = mustTagDimensions(reflect.TypeOf(Parameters{}))

// boltzmannDims are the dimensions of the Boltzmann constant [J/K].
var boltzmannDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2, unit.TemperatureDim: -1}

var baseUnits = map[string]unit.Dimensions{
	"m":  unit.Meter,
	"kg": unit.Kilogram,
	"s":  unit.Second,
	"K":  unit.Kelvin,
	"Pa": unit.Pascal,
	"J":  unit.Joule,
}

var superscripts = strings.NewReplacer("⁰", "0", "¹", "1", "²", "2", "³", "3", "⁴", "4",
	"⁵", "5", "⁶", "6", "⁷", "7", "⁸", "8", "⁹", "9", "⁻", "-", "^", "")

// parseUnits returns the dimensions of a units tag such as "kg/m³",
// "Pa s" or "1/m". "-" and "fraction" are dimensionless.
func parseUnits(s string) (unit.Dimensions, error) {
	d := make(unit.Dimensions)
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "fraction" {
		return d, nil
	}
	parts := strings.Split(s, "/")
	if len(parts) > 2 {
		return nil, fmt.Errorf("filtration: units %q have more than one '/'", s)
	}
	for i, part := range parts {
		sign := 1
		if i == 1 {
			sign = -1
		}
		terms := strings.Fields(part)
		if len(terms) == 0 {
			return nil, fmt.Errorf("filtration: units %q have an empty term", s)
		}
		for _, term := range terms {
			if term == "1" {
				continue
			}
			term = superscripts.Replace(term)
			power := 1
			if j := strings.IndexAny(term, "-0123456789"); j > 0 {
				var err error
				if power, err = strconv.Atoi(term[j:]); err != nil {
					return nil, fmt.Errorf("filtration: invalid power in units %q: %v", s, err)
				}
				term = term[:j]
			}
			base, ok := baseUnits[term]
			if !ok {
				return nil, fmt.Errorf("filtration: unknown unit %q in %q", term, s)
			}
			for dim, p := range base {
				d[dim] += sign * power * p
			}
		}
	}
	for dim, p := range d {
		if p == 0 {
			delete(d, dim)
		}
	}
	return d, nil
}

// tagDimensions returns the dimensions of every field of t that has a
// units tag.
func tagDimensions(t reflect.Type) (map[string]unit.Dimensions, error) {
	o := make(map[string]unit.Dimensions)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("units")
		if !ok {
			continue
		}
		d, err := parseUnits(tag)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.Name, err)
		}
		o[f.Name] = d
	}
	return o, nil
}

func mustTagDimensions(t reflect.Type) map[string]unit.Dimensions {
	d, err := tagDimensions(t)
	if err != nil {
		panic(err)
	}
	return d
}

// checkDimensions makes sure the correlations used by the model produce
// quantities with the expected dimensions for the units of the inputs,
// and that λ0 and the clean bed head loss gradient are finite.
func (p *Parameters) checkDimensions() error {
	return p.checkDimensionsWith(parameterDims)
}

// checkDimensionsWith is checkDimensions for the field dimensions in dims.
func (p *Parameters) checkDimensionsWith(dims map[string]unit.Dimensions) error {
	pv := reflect.ValueOf(p).Elem()
	q := func(name string) *unit.Unit {
		return unit.New(pv.FieldByName(name).Float(), dims[name])
	}
	one := unit.New(1, unit.Dimless)

	for _, name := range []string{"Porosity", "AttachmentEfficiency", "Sphericity", "KozenyConstant",
		"RipeningFactor", "RipeningExponent", "PorosityExponent", "SaturationExponent", "UltimateDeposit"} {
		if err := q(name).Check(unit.Dimless); err != nil {
			return fmt.Errorf("filtration: %s: %v", name, err)
		}
	}

	// Deposit volume fraction σ/ρd.
	if err := unit.Div(q("InfluentConcentration"), q("DepositDensity")).Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: volumetric deposit: %v", err)
	}

	// Single collector dimensionless groups.
	mu, v := q("Viscosity"), q("ApproachVelocity")
	dp, dg := q("ParticleDiameter"), q("GrainDiameter")
	peclet := unit.Div(unit.Mul(unit.New(3*math.Pi, unit.Dimless), mu, dp, dg, v),
		unit.Mul(unit.New(boltzmann, boltzmannDims), q("Temperature")))
	if err := peclet.Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: Peclet number: %v", err)
	}
	if err := unit.Div(dp, dg).Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: interception ratio: %v", err)
	}
	rhoP, rhoF := q("ParticleDensity"), q("FluidDensity")
	if !unit.DimensionsMatch(rhoP, rhoF) {
		return fmt.Errorf("filtration: particle density (%s) and fluid density (%s) dimensions differ",
			rhoP.Dimensions(), rhoF.Dimensions())
	}
	g := unit.New(gravity, unit.MeterPerSecond2)
	settling := unit.Div(unit.Mul(unit.Sub(rhoP, rhoF), g, dp, dp),
		unit.Mul(unit.New(18, unit.Dimless), mu, v))
	if err := settling.Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: gravity number: %v", err)
	}

	// Clean bed filter coefficient: 3(1-ε)αη / (2 dg).
	e := q("Porosity")
	lambda := unit.Div(unit.Mul(unit.New(1.5, unit.Dimless), unit.Sub(one, e), q("AttachmentEfficiency"),
		unit.New(p.collectorEfficiency(), unit.Dimless)), dg)
	if err := lambda.Check(unit.Dimensions{unit.LengthDim: -1}); err != nil {
		return fmt.Errorf("filtration: filter coefficient: %v", err)
	}
	if err := q("CleanFilterCoefficient").Check(lambda.Dimensions()); err != nil {
		return fmt.Errorf("filtration: CleanFilterCoefficient: %v", err)
	}
	if err := unit.Mul(lambda, q("BedDepth")).Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: bed filter number: %v", err)
	}
	if l := lambda.Value(); math.IsNaN(l) || math.IsInf(l, 0) {
		return boundsError("filter coefficient", l, "finite")
	}

	// Kozeny–Carman gradient: K μ V (1-ε)² (6/ψdg)² / (ρ g ε³).
	shape := unit.Div(unit.New(6, unit.Dimless), q("Sphericity"), dg)
	solid := unit.Sub(one, e)
	i := unit.Div(
		unit.Mul(q("KozenyConstant"), mu, v, solid, solid, shape, shape),
		unit.Mul(rhoF, g, e, e, e),
	)
	if err := i.Check(unit.Dimless); err != nil {
		return fmt.Errorf("filtration: head loss gradient: %v", err)
	}
	if h := i.Value(); math.IsNaN(h) || math.IsInf(h, 0) {
		return boundsError("head loss gradient", h, "finite")
	}
	return nil
}

// Lambda0 returns the clean bed filter coefficient [1/m], either as
// configured or as calculated by CleanFilterCoefficient.
func (p *Parameters) Lambda0() float64 {
	if p.CleanFilterCoefficient > 0 {
		return p.CleanFilterCoefficient
	}
	return CleanFilterCoefficient(p)
}

// LayerThickness returns the thickness of one computational layer [m].
func (p *Parameters) LayerThickness() float64 {
	return p.BedDepth / float64(p.NumLayers)
}

// Clone returns a copy of p.
func (p *Parameters) Clone() *Parameters {
	p2 := *p
	return &p2
}
