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

func TestFilterCoefficient(t *testing.T) {
	const tolerance = 1.e-10
	p := DefaultParameters()
	const lambda0 = 4.

	tests := []struct {
		sigmaV, want float64
	}{
		{sigmaV: 0, want: lambda0},
		// (1 + 2*0.05/0.42) * (1 - 0.05/0.15)
		{sigmaV: 0.05, want: lambda0 * 1.2380952380952381 * 0.6666666666666667},
		{sigmaV: p.UltimateDeposit, want: 0},
		{sigmaV: 0.2, want: 0},
	}
	for _, test := range tests {
		got := FilterCoefficient(p, lambda0, test.sigmaV)
		if test.want == 0 {
			if got != 0 {
				t.Errorf("σv=%g: have %g, want 0", test.sigmaV, got)
			}
			continue
		}
		if different(got, test.want, tolerance) {
			t.Errorf("σv=%g: have %g, want %g", test.sigmaV, got, test.want)
		}
	}
}

func TestFilterCoefficientNonNegative(t *testing.T) {
	p := DefaultParameters()
	p.PorosityExponent = 2
	p.SaturationExponent = 0.5
	for sv := 0.; sv < p.Porosity; sv += 0.001 {
		if l := FilterCoefficient(p, 3, sv); l < 0 || math.IsNaN(l) {
			t.Fatalf("σv=%g: λ=%g", sv, l)
		}
	}
}

func TestHappelAs(t *testing.T) {
	const tolerance = 1.e-10
	if got := happelAs(0.42); different(got, 33.639141947446035, tolerance) {
		t.Errorf("have %g, want 33.639", got)
	}
}

func TestCleanFilterCoefficient(t *testing.T) {
	const tolerance = 1.e-8
	p := DefaultParameters()
	eta, etaD, etaI, etaG := singleCollector(p)
	if different(eta, etaD+etaI+etaG, tolerance) {
		t.Errorf("η=%g is not the sum of its parts", eta)
	}
	if different(etaD, 0.00011249468818162755, tolerance) {
		t.Errorf("ηD: have %g", etaD)
	}
	if different(etaI, 0.00041666666666666686, tolerance) {
		t.Errorf("ηI: have %g", etaI)
	}
	if different(etaG, 0.003950063812375248, tolerance) {
		t.Errorf("ηG: have %g", etaG)
	}
	if l := CleanFilterCoefficient(p); different(l, 5.195901193979311, tolerance) {
		t.Errorf("λ0: have %g, want 5.1959", l)
	}

	p.ParticleDensity = 900
	if _, _, _, etaG := singleCollector(p); etaG != 0 {
		t.Errorf("buoyant particles should not settle: ηG=%g", etaG)
	}
}

func TestHeadLossGradient(t *testing.T) {
	const tolerance = 1.e-8
	p := DefaultParameters()
	if i := HeadLossGradient(p, p.Porosity); different(i, 0.6455131589924491, tolerance) {
		t.Errorf("clean gradient: have %g, want 0.6455", i)
	}
	last := 0.
	for e := 0.42; e > 0.05; e -= 0.01 {
		i := HeadLossGradient(p, e)
		if i <= last {
			t.Fatalf("gradient should increase as porosity decreases: ε=%g i=%g", e, i)
		}
		last = i
	}
}

func TestPorosity(t *testing.T) {
	if e := Porosity(0.1, 0.4); different(e, 0.3, 1.e-12) {
		t.Errorf("have %g, want 0.3", e)
	}
	if e := Porosity(0.5, 0.4); e != minPorosity {
		t.Errorf("porosity should be floored: have %g", e)
	}
	if s := PoreSaturation(0.1, 0.4); s != 0.25 {
		t.Errorf("saturation: have %g, want 0.25", s)
	}
	if u := FiltrationVelocity(0.002, 0.4); different(u, 0.005, 1.e-12) {
		t.Errorf("velocity: have %g, want 0.005", u)
	}
}

func TestConcentrationGradient(t *testing.T) {
	const tolerance = 1.e-10
	p := DefaultParameters()
	p.CleanFilterCoefficient = 4

	if g := ConcentrationGradient(p, 0, 3); g != 0 {
		t.Errorf("gradient with no suspended particles: have %g, want 0", g)
	}
	if g := ConcentrationGradient(p, 0.01, 0); different(g, -0.04, tolerance) {
		t.Errorf("clean gradient: have %g, want -0.04", g)
	}

	// σ = 3 kg/m³ → σv = 0.05
	s := NewLocalState(p, 0.01, 3)
	if different(s.SigmaV, 0.05, tolerance) {
		t.Errorf("σv: have %g, want 0.05", s.SigmaV)
	}
	if different(s.Porosity, 0.37, tolerance) {
		t.Errorf("ε: have %g, want 0.37", s.Porosity)
	}
	wantLambda := 4 * 1.2380952380952381 * 0.6666666666666667
	if different(s.Lambda, wantLambda, tolerance) {
		t.Errorf("λ: have %g, want %g", s.Lambda, wantLambda)
	}
	if different(s.ConcentrationGradient, -0.01*wantLambda, tolerance) {
		t.Errorf("∂C/∂L: have %g, want %g", s.ConcentrationGradient, -0.01*wantLambda)
	}
	if s.HeadGradient <= HeadLossGradient(p, p.Porosity) {
		t.Errorf("deposit should increase the filter resistance")
	}
	if !strings.Contains(s.String(), "λ=") {
		t.Errorf("unexpected string %q", s.String())
	}
}
