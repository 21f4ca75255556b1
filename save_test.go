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
	"bytes"
	"testing"

	"github.com/kr/pretty"
)

func TestSaveLoad(t *testing.T) {
	const tolerance = 1.e-12
	p := DefaultParameters()
	p.NumLayers = 10

	b := newTestBed(t, p, 4*3600, 0, 0)
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	buf := new(bytes.Buffer)
	if err := Save(buf)(b); err != nil {
		t.Fatal(err)
	}

	b2 := &Bed{
		InitFuncs: []DomainManipulator{Load(buf)},
		RunFuncs: append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
			RunEndCheck(8*3600, 0, 0, nil)),
	}
	if err := b2.Init(); err != nil {
		t.Fatal(err)
	}
	if b2.Time != b.Time || b2.InfluentMass != b.InfluentMass {
		t.Errorf("run state was not restored: %# v", pretty.Formatter(b2))
	}
	if diff := pretty.Diff(sigmas(b), sigmas(b2)); len(diff) > 0 {
		t.Errorf("deposit was not restored: %v", diff)
	}
	if different(b2.HeadLoss, b.HeadLoss, tolerance) {
		t.Errorf("head loss: have %g, want %g", b2.HeadLoss, b.HeadLoss)
	}
	if different(b2.Lambda0(), b.Lambda0(), tolerance) {
		t.Errorf("λ0: have %g, want %g", b2.Lambda0(), b.Lambda0())
	}

	// A restarted run should match an uninterrupted one.
	b.Done = false
	b.RunFuncs = append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
		RunEndCheck(8*3600, 0, 0, nil))
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	if err := b2.Run(); err != nil {
		t.Fatal(err)
	}
	s1, s2 := sigmas(b), sigmas(b2)
	for i := range s1 {
		if different(s1[i], s2[i], tolerance) {
			t.Errorf("layer %d: σ=%g after restart, want %g", i, s2[i], s1[i])
		}
	}
}

func TestSummarizeRestart(t *testing.T) {
	p := DefaultParameters()
	p.NumLayers = 10
	b := newTestBed(t, p, 4*3600, 0, 0)
	clean := b.HeadLoss
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}
	buf := new(bytes.Buffer)
	if err := Save(buf)(b); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(1800)
	b2 := &Bed{
		InitFuncs: []DomainManipulator{Load(buf), rec.Record()},
		RunFuncs: append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
			rec.Record(), RunEndCheck(6*3600, 0, 0, nil)),
	}
	if err := b2.Init(); err != nil {
		t.Fatal(err)
	}
	if err := b2.Run(); err != nil {
		t.Fatal(err)
	}
	s := rec.Summarize(b2)
	if rec.Records()[0].HeadLoss <= clean {
		t.Fatalf("restart state should have more head loss than the clean bed")
	}
	if different(s.CleanHeadLoss, clean, 1.e-10) {
		t.Errorf("clean head loss: have %g, want %g", s.CleanHeadLoss, clean)
	}
}

func TestLoadBadInput(t *testing.T) {
	b := &Bed{InitFuncs: []DomainManipulator{Load(bytes.NewBufferString("not a bed"))}}
	if err := b.Init(); err == nil {
		t.Errorf("loading garbage should fail")
	}
}

func sigmas(b *Bed) []float64 {
	s := make([]float64, len(b.Layers()))
	for i, l := range b.Layers() {
		s[i] = l.Sigma
	}
	return s
}
