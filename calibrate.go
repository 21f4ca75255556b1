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
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/floats"
)

// Calibration is the result of fitting the clean bed filter coefficient
// to an observed concentration profile.
type Calibration struct {
	Lambda0     float64 `toml:"clean_filter_coefficient"` // 1/m
	Intercept   float64 `toml:"intercept"`                // ln(C/C0) at zero depth
	RSquared    float64 `toml:"r_squared"`
	SlopeStdErr float64 `toml:"std_err"`
	N           int     `toml:"n"`

	// AttachmentEfficiency is the attachment efficiency that reproduces
	// Lambda0 with the single collector model. It is only set by
	// CalibrateParameters.
	AttachmentEfficiency float64 `toml:"attachment_efficiency,omitempty"`
}

// Calibrate estimates the clean bed filter coefficient from the ratios of
// suspended concentration to influent concentration observed at the given
// depths [m] in a clean bed, by regressing ln(C/C0) on depth.
func Calibrate(depths, ratios []float64) (*Calibration, error) {
	if len(depths) != len(ratios) {
		return nil, fmt.Errorf("filtration: calibrate: %d depths but %d ratios", len(depths), len(ratios))
	}
	if len(depths) < 2 {
		return nil, fmt.Errorf("filtration: calibrate: need at least 2 observations, have %d", len(depths))
	}
	if floats.Max(depths) == floats.Min(depths) {
		return nil, fmt.Errorf("filtration: calibrate: observations do not span a range of depths")
	}
	y := make([]float64, len(ratios))
	for i, r := range ratios {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("filtration: calibrate: concentration ratio %g at depth %g must be > 0", r, depths[i])
		}
		y[i] = math.Log(r)
	}
	slope, intercept, r2, n, slopeErr, _ := stats.LinearRegression(depths, y)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return nil, fmt.Errorf("filtration: calibrate: regression failed")
	}
	return &Calibration{
		Lambda0:     -slope,
		Intercept:   intercept,
		RSquared:    r2,
		SlopeStdErr: slopeErr,
		N:           n,
	}, nil
}

// CalibrateParameters fits the clean bed filter coefficient to obs and
// also finds the attachment efficiency for which the single collector
// model of p gives the same coefficient.
func CalibrateParameters(p *Parameters, obs *Observations) (*Calibration, error) {
	depths, ratios := obs.Ratios()
	c, err := Calibrate(depths, ratios)
	if err != nil {
		return nil, err
	}
	p2 := p.Clone()
	p2.AttachmentEfficiency = 1
	if l := CleanFilterCoefficient(p2); l > 0 {
		c.AttachmentEfficiency = c.Lambda0 / l
	}
	return c, nil
}

// Observations holds a measured concentration profile.
type Observations struct {
	InfluentConcentration float64  `toml:"influent_concentration"` // kg/m³
	Samples               []Sample `toml:"sample"`
}

// Sample is a single concentration measurement.
type Sample struct {
	Depth         float64 `toml:"depth"`         // m
	Concentration float64 `toml:"concentration"` // kg/m³
}

// ReadObservations reads observations in TOML format from r.
func ReadObservations(r io.Reader) (*Observations, error) {
	obs := new(Observations)
	if _, err := toml.DecodeReader(r, obs); err != nil {
		return nil, fmt.Errorf("filtration: reading observations: %v", err)
	}
	if !(obs.InfluentConcentration > 0) {
		return nil, fmt.Errorf("filtration: reading observations: influent_concentration must be > 0")
	}
	return obs, nil
}

// Ratios returns the sample depths and the ratios of their concentrations
// to the influent concentration.
func (o *Observations) Ratios() (depths, ratios []float64) {
	depths = make([]float64, len(o.Samples))
	ratios = make([]float64, len(o.Samples))
	for i, s := range o.Samples {
		depths[i] = s.Depth
		ratios[i] = s.Concentration / o.InfluentConcentration
	}
	return
}
