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
	"sync"

	"gonum.org/v1/gonum/integrate"
)

// Record is one sample of the bed's time series.
type Record struct {
	Time          float64 `desc:"Elapsed filtration time" units:"s"`
	EffluentRatio float64 `desc:"Effluent to influent concentration ratio" units:"fraction"`
	HeadLoss      float64 `desc:"Total head loss" units:"m"`
	Deposit       float64 `desc:"Retained deposit per unit filter area" units:"kg/m²"`
}

// Recorder samples the effluent quality, head loss, and retained deposit of
// a bed during a simulation.
type Recorder struct {
	sample DomainManipulator

	mu      sync.Mutex
	records []Record
}

// NewRecorder returns a Recorder that takes a sample every interval
// seconds of filtration time.
func NewRecorder(interval float64) *Recorder {
	r := new(Recorder)
	r.sample = RunPeriodically(interval, r.add)
	return r
}

// Record returns a function that samples the bed each time the
// recording interval is passed. It can be placed in both InitFuncs and
// RunFuncs.
func (r *Recorder) Record() DomainManipulator {
	return r.sample
}

// Final returns a function that samples the bed if it has not been sampled
// at its current time. It is meant for CleanupFuncs.
func (r *Recorder) Final() DomainManipulator {
	return func(b *Bed) error {
		r.mu.Lock()
		n := len(r.records)
		sampled := n > 0 && r.records[n-1].Time == b.Time
		r.mu.Unlock()
		if sampled {
			return nil
		}
		return r.add(b)
	}
}

func (r *Recorder) add(b *Bed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{
		Time:          b.Time,
		EffluentRatio: b.EffluentRatio(),
		HeadLoss:      b.HeadLoss,
		Deposit:       b.DepositedMass(),
	})
	return nil
}

// Records returns the samples taken so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Summary describes the performance of a completed filter run.
type Summary struct {
	RunTime           float64 `toml:"run_time_hours"`
	EndReason         string  `toml:"end_reason"`
	Iterations        int     `toml:"iterations"`
	Lambda0           float64 `toml:"clean_filter_coefficient"`
	CleanHeadLoss     float64 `toml:"clean_head_loss"`
	FinalHeadLoss     float64 `toml:"final_head_loss"`
	FinalEffluent     float64 `toml:"final_effluent_ratio"`
	MeanEffluentRatio float64 `toml:"mean_effluent_ratio"`
	InfluentMass      float64 `toml:"influent_mass"`
	EffluentMass      float64 `toml:"effluent_mass"`
	DepositedMass     float64 `toml:"deposited_mass"`
	RemovalEfficiency float64 `toml:"removal_efficiency"`
	MassBalanceError  float64 `toml:"mass_balance_error"`
}

// Summarize calculates summary statistics for the run of b using the
// samples taken by r.
func (r *Recorder) Summarize(b *Bed) Summary {
	recs := r.Records()
	s := Summary{
		RunTime:       b.Time / 3600,
		EndReason:     b.EndReason.String(),
		Iterations:    b.iteration,
		Lambda0:       b.lambda0,
		FinalHeadLoss: b.HeadLoss,
		FinalEffluent: b.EffluentRatio(),
		InfluentMass:  b.InfluentMass,
		EffluentMass:  b.EffluentMass,
		DepositedMass: b.DepositedMass(),
	}
	if b.Params != nil {
		// The first record of a restarted run is not the clean bed.
		s.CleanHeadLoss = HeadLossGradient(b.Params, b.Params.Porosity) * b.Params.BedDepth
	}
	if s.InfluentMass > 0 {
		s.RemovalEfficiency = 1 - s.EffluentMass/s.InfluentMass
		s.MassBalanceError = (s.InfluentMass - s.EffluentMass - s.DepositedMass) / s.InfluentMass
	}
	s.MeanEffluentRatio = meanRatio(recs)
	return s
}

// meanRatio returns the time-averaged effluent ratio of recs.
func meanRatio(recs []Record) float64 {
	switch len(recs) {
	case 0:
		return 0
	case 1:
		return recs[0].EffluentRatio
	}
	t := make([]float64, len(recs))
	f := make([]float64, len(recs))
	for i, r := range recs {
		t[i] = r.Time
		f[i] = r.EffluentRatio
	}
	span := t[len(t)-1] - t[0]
	if span <= 0 {
		return f[len(f)-1]
	}
	return integrate.Trapezoidal(t, f) / span
}
