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
	"strings"
	"testing"
)

func TestCalibrate(t *testing.T) {
	const tolerance = 1.e-8
	depths := []float64{0.1, 0.25, 0.5, 0.75, 1}
	ratios := make([]float64, len(depths))
	for i, d := range depths {
		ratios[i] = math.Exp(-3.7 * d)
	}
	c, err := Calibrate(depths, ratios)
	if err != nil {
		t.Fatal(err)
	}
	if different(c.Lambda0, 3.7, tolerance) {
		t.Errorf("λ0: have %g, want 3.7", c.Lambda0)
	}
	if different(c.RSquared, 1, tolerance) {
		t.Errorf("r²: have %g, want 1", c.RSquared)
	}
	if math.Abs(c.Intercept) > tolerance {
		t.Errorf("intercept: have %g, want 0", c.Intercept)
	}
	if c.N != len(depths) {
		t.Errorf("n: have %d, want %d", c.N, len(depths))
	}
}

func TestCalibrateErrors(t *testing.T) {
	tests := []struct {
		name           string
		depths, ratios []float64
	}{
		{"mismatch", []float64{0.1, 0.2}, []float64{0.5}},
		{"too few", []float64{0.1}, []float64{0.5}},
		{"zero ratio", []float64{0.1, 0.2}, []float64{0.5, 0}},
		{"same depth", []float64{0.1, 0.1}, []float64{0.5, 0.4}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Calibrate(test.depths, test.ratios); err == nil {
				t.Errorf("should fail")
			}
		})
	}
}

func TestCalibrateFromModel(t *testing.T) {
	const tolerance = 1.e-6
	p := DefaultParameters()
	b := newTestBed(t, p, 0, 0, 0)
	obs := &Observations{InfluentConcentration: p.InfluentConcentration}
	for _, l := range b.Layers() {
		obs.Samples = append(obs.Samples, Sample{Depth: l.Depth, Concentration: l.C})
	}
	c, err := CalibrateParameters(p, obs)
	if err != nil {
		t.Fatal(err)
	}
	if different(c.Lambda0, b.Lambda0(), tolerance) {
		t.Errorf("λ0: have %g, want %g", c.Lambda0, b.Lambda0())
	}
	if different(c.AttachmentEfficiency, p.AttachmentEfficiency, tolerance) {
		t.Errorf("α: have %g, want %g", c.AttachmentEfficiency, p.AttachmentEfficiency)
	}
}

func TestReadObservations(t *testing.T) {
	const data = `
influent_concentration = 0.02

[[sample]]
depth = 0.2
concentration = 0.01

[[sample]]
depth = 0.4
concentration = 0.005
`
	obs, err := ReadObservations(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	depths, ratios := obs.Ratios()
	if len(depths) != 2 || depths[1] != 0.4 || different(ratios[0], 0.5, 1.e-12) || different(ratios[1], 0.25, 1.e-12) {
		t.Errorf("have depths %v and ratios %v", depths, ratios)
	}
	c, err := Calibrate(depths, ratios)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Log(2) / 0.2; different(c.Lambda0, want, 1.e-10) {
		t.Errorf("λ0: have %g, want %g", c.Lambda0, want)
	}

	if _, err := ReadObservations(strings.NewReader("[[sample]]\ndepth = 1\n")); err == nil {
		t.Errorf("missing influent concentration should fail")
	}
}
