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
	"os"
	"path/filepath"
	"testing"
)

func TestPlots(t *testing.T) {
	p := DefaultParameters()
	p.NumLayers = 20
	r := NewRecorder(1800)
	b := &Bed{
		InitFuncs: []DomainManipulator{InitLayers(p), r.Record()},
		RunFuncs: append(DefaultRunFuncs(testMaxDt, testMaxSatChange),
			r.Record(), RunEndCheck(4*3600, 0, 0, nil)),
	}
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.png")
	if err := PlotProfile(profile, b); err != nil {
		t.Fatal(err)
	}
	breakthrough := filepath.Join(dir, "breakthrough.svg")
	if err := PlotBreakthrough(breakthrough, r.Records(), 2.5); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{profile, breakthrough} {
		info, err := os.Stat(f)
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", f)
		}
	}
}
