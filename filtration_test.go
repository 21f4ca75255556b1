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
	"context"
	"errors"
	"math"
	"testing"
)

const (
	testMaxDt        = 300.
	testMaxSatChange = 0.005
)

// newTestBed initializes a bed that runs until one of the given end
// criteria is reached.
func newTestBed(t testing.TB, p *Parameters, maxTime, terminalHead, breakthrough float64) *Bed {
	b := &Bed{
		InitFuncs: []DomainManipulator{InitLayers(p)},
		RunFuncs: append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
			RunEndCheck(maxTime, terminalHead, breakthrough, nil)),
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestCleanBedProfile(t *testing.T) {
	const tolerance = 1.e-10
	p := DefaultParameters()
	b := newTestBed(t, p, 0, 0, 0)
	l0 := b.Lambda0()
	if different(l0, CleanFilterCoefficient(p), tolerance) {
		t.Errorf("λ0: have %g, want %g", l0, CleanFilterCoefficient(p))
	}
	if len(b.Layers()) != p.NumLayers {
		t.Fatalf("have %d layers, want %d", len(b.Layers()), p.NumLayers)
	}
	for _, l := range b.Layers() {
		want := p.InfluentConcentration * math.Exp(-l0*l.Depth)
		if different(l.C, want, tolerance) {
			t.Errorf("layer %d: C=%g, want %g", l.Index, l.C, want)
		}
		if l.Sigma != 0 || l.Saturation != 0 {
			t.Errorf("layer %d should be clean", l.Index)
		}
	}
	want := p.InfluentConcentration * math.Exp(-l0*p.BedDepth)
	if different(b.Effluent, want, tolerance) {
		t.Errorf("effluent: have %g, want %g", b.Effluent, want)
	}
	if different(b.HeadLoss, 0.6455131589924491, 1.e-8) {
		t.Errorf("clean head loss: have %g, want 0.6455", b.HeadLoss)
	}
}

func TestMassConservation(t *testing.T) {
	const tolerance = 1.e-9
	p := DefaultParameters()
	p.NumLayers = 20
	b := newTestBed(t, p, 6*3600, 0, 0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if b.EndReason != EndOfRunTime {
		t.Errorf("end reason: have %v, want %v", b.EndReason, EndOfRunTime)
	}
	deposit := b.DepositedMass()
	if deposit <= 0 {
		t.Fatalf("no deposit after %g s", b.Time)
	}
	if different(b.InfluentMass-b.EffluentMass, deposit, tolerance) {
		t.Errorf("influent - effluent = %g but deposit = %g",
			b.InfluentMass-b.EffluentMass, deposit)
	}
	wantIn := p.ApproachVelocity * p.InfluentConcentration * b.Time
	if different(b.InfluentMass, wantIn, tolerance) {
		t.Errorf("influent mass: have %g, want %g", b.InfluentMass, wantIn)
	}
}

func TestDepositProfile(t *testing.T) {
	p := DefaultParameters()
	b := newTestBed(t, p, 12*3600, 0, 0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	layers := b.Layers()
	for i := 1; i < len(layers); i++ {
		if layers[i].Sigma > layers[i-1].Sigma {
			t.Errorf("deposit should decrease with depth: layer %d σ=%g > layer %d σ=%g",
				i, layers[i].Sigma, i-1, layers[i-1].Sigma)
		}
		if layers[i].Head <= layers[i-1].Head {
			t.Errorf("head loss should accumulate with depth at layer %d", i)
		}
	}
	if b.HeadLoss <= 0.6455131589924491 {
		t.Errorf("head loss %g should increase from its clean value", b.HeadLoss)
	}
	if layers[0].SigmaV >= p.UltimateDeposit {
		t.Errorf("top layer should not be saturated after 12 hours")
	}
}

func TestSetTimestep(t *testing.T) {
	const maxSatChange = 0.001
	p := DefaultParameters()
	b := &Bed{
		InitFuncs: []DomainManipulator{InitLayers(p)},
		RunFuncs: append(DefaultRunFuncs(1.e6, maxSatChange),
			RunEndCheck(0, 0, 0, nil)),
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	before := make([]float64, len(b.Layers()))
	for i, l := range b.Layers() {
		before[i] = l.SigmaV
	}
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if b.Dt >= 1.e6 {
		t.Fatalf("time step was not limited")
	}
	var maxChange float64
	for i, l := range b.Layers() {
		maxChange = math.Max(maxChange, l.SigmaV-before[i])
	}
	if different(maxChange, maxSatChange*p.UltimateDeposit, 1.e-8) {
		t.Errorf("max change in σv: have %g, want %g", maxChange, maxSatChange*p.UltimateDeposit)
	}
}

func TestRunEndCheck(t *testing.T) {
	p := DefaultParameters()
	tests := []struct {
		name                     string
		time, head, effluent     float64
		maxTime, terminal, ratio float64
		want                     EndReason
	}{
		{name: "continue", time: 10, head: 1, effluent: 0.0001, maxTime: 100, terminal: 2, ratio: 0.1, want: NotFinished},
		{name: "time", time: 100, head: 1, effluent: 0.0001, maxTime: 100, terminal: 2, ratio: 0.1, want: EndOfRunTime},
		{name: "head", time: 10, head: 2, effluent: 0.0001, maxTime: 100, terminal: 2, ratio: 0.1, want: TerminalHeadLoss},
		{name: "breakthrough", time: 10, head: 1, effluent: 0.002, maxTime: 100, terminal: 2, ratio: 0.1, want: Breakthrough},
		{name: "ignored", time: 1000, head: 10, effluent: 0.01, want: EndOfRunTime},
		{name: "no time limit", time: 1.e9, head: 1, effluent: 0.0001, terminal: 2, want: NotFinished},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := &Bed{Params: p, Time: test.time, HeadLoss: test.head, Effluent: test.effluent}
			c := make(chan RunStatus, 1)
			if err := RunEndCheck(test.maxTime, test.terminal, test.ratio, c)(b); err != nil {
				t.Fatal(err)
			}
			if b.EndReason != test.want {
				t.Errorf("have %v, want %v", b.EndReason, test.want)
			}
			if b.Done != (test.want != NotFinished) {
				t.Errorf("done: have %v", b.Done)
			}
			if b.Done {
				s := <-c
				if s.Reason != test.want || s.Time != test.time {
					t.Errorf("status: have %+v", s)
				}
			}
		})
	}
}

func TestRunToTerminalHead(t *testing.T) {
	p := DefaultParameters()
	b := newTestBed(t, p, 1000*3600, 2.5, 0.5)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if b.EndReason != TerminalHeadLoss {
		t.Errorf("end reason: have %v, want %v", b.EndReason, TerminalHeadLoss)
	}
	if b.HeadLoss < 2.5 {
		t.Errorf("head loss %g is below terminal head", b.HeadLoss)
	}
	if h := b.Time / 3600; h < 50 || h > 80 {
		t.Errorf("run length %g hours is outside of expected range", h)
	}
}

func TestRunToBreakthrough(t *testing.T) {
	p := DefaultParameters()
	b := newTestBed(t, p, 1000*3600, 0, 0.5)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if b.EndReason != Breakthrough {
		t.Errorf("end reason: have %v, want %v", b.EndReason, Breakthrough)
	}
	if r := b.EffluentRatio(); r < 0.5 || r > 0.55 {
		t.Errorf("effluent ratio %g at breakthrough", r)
	}
	for _, l := range b.Layers() {
		if l.SigmaV > p.UltimateDeposit*(1+1.e-6) {
			t.Errorf("layer %d: σv=%g exceeds the ultimate deposit", l.Index, l.SigmaV)
		}
		if l.Lambda < 0 {
			t.Errorf("layer %d: negative filter coefficient", l.Index)
		}
	}
}

func TestRunPeriodically(t *testing.T) {
	var calls int
	f := RunPeriodically(100, func(*Bed) error {
		calls++
		return nil
	})
	b := &Bed{}
	for b.Time = 0; b.Time <= 1000; b.Time += 30 {
		if err := f(b); err != nil {
			t.Fatal(err)
		}
	}
	// 0, 120, 210, 300, 420, 510, 600, 720, 810, 900
	if calls != 10 {
		t.Errorf("have %d calls, want 10", calls)
	}
}

func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultParameters()
	b := &Bed{
		InitFuncs: []DomainManipulator{InitLayers(p)},
		RunFuncs: append([]DomainManipulator{CheckContext(ctx)},
			DefaultRunFuncs(testMaxDt, testMaxSatChange)...),
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	cancel()
	err := b.Run()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("have error %v, want context.Canceled", err)
	}
}

func TestRunNoLayers(t *testing.T) {
	b := &Bed{}
	if err := b.Run(); err != ErrNoLayers {
		t.Errorf("have %v, want ErrNoLayers", err)
	}
}

func TestUnstable(t *testing.T) {
	b := newTestBed(t, DefaultParameters(), 0, 0, 0)
	b.Layers()[3].Sigma = math.NaN()
	if err := Calculations(UpdateBedState())(b); err != nil {
		t.Fatal(err)
	}
	err := HeadLossProfile()(b)
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("have %v, want ErrUnstable", err)
	}
	var se *SimulationError
	if !errors.As(err, &se) || se.Layer != 3 {
		t.Errorf("error should identify layer 3: %v", err)
	}
}

func TestLog(t *testing.T) {
	p := DefaultParameters()
	p.NumLayers = 10
	c := make(chan *SimulationStatus)
	b := &Bed{
		InitFuncs: []DomainManipulator{InitLayers(p)},
		RunFuncs: append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
			Log(c), RunEndCheck(3000, 0, 0, nil)),
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	var statuses []*SimulationStatus
	done := make(chan struct{})
	go func() {
		for s := range c {
			statuses = append(statuses, s)
		}
		close(done)
	}()
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	close(c)
	<-done
	if len(statuses) != 10 {
		t.Fatalf("have %d status messages, want 10", len(statuses))
	}
	if last := statuses[len(statuses)-1]; last.Time != 3000 || last.String() == "" {
		t.Errorf("last status: %v", last)
	}
}

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}
