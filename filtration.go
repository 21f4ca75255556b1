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

// Package filtration is a one-dimensional deep-bed filtration model for
// particulate removal in packed beds. It couples a particle mass balance,
// a filtration-rate law in which the filter coefficient evolves with the
// retained deposit, and a Kozeny–Carman head loss model.
package filtration

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Version gives the version number.
const Version = "0.1.0"

// Bed holds the current state of a filter bed simulation.
type Bed struct {
	// Params are the physical parameters of the bed.
	Params *Parameters

	layers []*Layer

	// Dt is the current time step [s].
	Dt float64

	// Time is the elapsed filtration time [s].
	Time float64

	// Effluent is the concentration leaving the bottom of the bed [kg/m³].
	Effluent float64

	// HeadLoss is the total head loss across the bed [m].
	HeadLoss float64

	// InfluentMass and EffluentMass are the cumulative particle masses
	// entering and leaving the bed per unit filter area [kg/m²].
	InfluentMass, EffluentMass float64

	// Done specifies whether the simulation is finished.
	Done bool

	// EndReason gives the reason the simulation finished.
	EndReason EndReason

	// InitFuncs are run once before the simulation starts.
	InitFuncs []DomainManipulator
	// RunFuncs are run repeatedly until Done is true.
	RunFuncs []DomainManipulator
	// CleanupFuncs are run once after the simulation is finished.
	CleanupFuncs []DomainManipulator

	lambda0   float64
	iteration int
}

// Layer holds the state of a single layer of the bed.
type Layer struct {
	Index int     // position from the top of the bed
	Depth float64 `desc:"Depth of layer center" units:"m"`
	Dz    float64 `desc:"Layer thickness" units:"m"`

	Cin  float64 `desc:"Concentration entering the layer" units:"kg/m³"`
	C    float64 `desc:"Concentration at layer center" units:"kg/m³"`
	Cout float64 `desc:"Concentration leaving the layer" units:"kg/m³"`

	Sigma        float64 `desc:"Specific deposit" units:"kg/m³"`
	SigmaV       float64 `desc:"Volumetric specific deposit" units:"m³/m³"`
	Saturation   float64 `desc:"Pore saturation" units:"fraction"`
	Porosity     float64 `desc:"Porosity" units:"fraction"`
	Lambda       float64 `desc:"Filter coefficient" units:"1/m"`
	HeadGradient float64 `desc:"Filter resistance" units:"m/m"`
	Head         float64 `desc:"Cumulative head loss at layer bottom" units:"m"`
	Velocity     float64 `desc:"Average filtration velocity" units:"m/s"`

	p       *Parameters
	lambda0 float64

	sync.Mutex // Avoid layer being written by one subroutine and read by another at the same time.
}

// DomainManipulator is a class of functions that operate on the entire
// bed.
type DomainManipulator func(b *Bed) error

// LayerManipulator is a class of functions that operate on a single layer,
// where Δt is the time step in seconds.
type LayerManipulator func(l *Layer, Δt float64)

// Init initializes the simulation by running b.InitFuncs.
func (b *Bed) Init() error {
	for _, f := range b.InitFuncs {
		if err := f(b); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running b.RunFuncs until b.Done is
// true.
func (b *Bed) Run() error {
	if len(b.layers) == 0 {
		return ErrNoLayers
	}
	for !b.Done {
		for _, f := range b.RunFuncs {
			if err := f(b); err != nil {
				return err
			}
		}
		b.iteration++
	}
	return nil
}

// Cleanup finishes the simulation by running b.CleanupFuncs.
func (b *Bed) Cleanup() error {
	for _, f := range b.CleanupFuncs {
		if err := f(b); err != nil {
			return err
		}
	}
	return nil
}

// Layers returns the layers of the bed, ordered from top to bottom.
func (b *Bed) Layers() []*Layer { return b.layers }

// Lambda0 returns the clean bed filter coefficient used by the simulation.
func (b *Bed) Lambda0() float64 { return b.lambda0 }

// DepositedMass returns the total retained deposit per unit filter
// area [kg/m²].
func (b *Bed) DepositedMass() float64 {
	var m float64
	for _, l := range b.layers {
		m += l.Sigma * l.Dz
	}
	return m
}

// Calculations returns a function that concurrently runs a series of
// calculations on all of the layers in the bed.
func Calculations(calculators ...LayerManipulator) DomainManipulator {
	nprocs := runtime.GOMAXPROCS(0)
	return func(b *Bed) error {
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				for ii := pp; ii < len(b.layers); ii += nprocs {
					l := b.layers[ii]
					l.Lock()
					for _, f := range calculators {
						f(l, b.Dt)
					}
					l.Unlock()
				}
				wg.Done()
			}(pp)
		}
		wg.Wait()
		return nil
	}
}

// RunPeriodically runs f every period seconds of simulation time,
// starting at time zero.
func RunPeriodically(period float64, f DomainManipulator) DomainManipulator {
	next := 0.
	return func(b *Bed) error {
		if b.Time < next {
			return nil
		}
		for next <= b.Time {
			next += period
		}
		return f(b)
	}
}

// CheckContext returns a function that stops the simulation with an error
// if ctx is cancelled.
func CheckContext(ctx context.Context) DomainManipulator {
	return func(b *Bed) error {
		select {
		case <-ctx.Done():
			return fmt.Errorf("filtration: simulation stopped at t=%gs: %w", b.Time, ctx.Err())
		default:
			return nil
		}
	}
}

// SimulationStatus holds information about the progress of a simulation.
type SimulationStatus struct {
	Iteration     int
	Walltime      time.Duration
	StepWalltime  time.Duration
	Dt            float64 // seconds
	Time          float64 // seconds
	EffluentRatio float64 // C/C0 leaving the bed
	HeadLoss      float64 // meters
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("Iteration %-4d  walltime=%6.3gh  Δwalltime=%4.2gs  "+
		"timestep=%2.0fs  hours=%.3g  C/C0=%.3g  headloss=%.3gm",
		s.Iteration, s.Walltime.Hours(), s.StepWalltime.Seconds(), s.Dt,
		s.Time/3600, s.EffluentRatio, s.HeadLoss)
}

// Log sends simulation status messages to c. Nothing is sent if c is nil.
func Log(c chan *SimulationStatus) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()

	return func(b *Bed) error {
		if c == nil {
			return nil
		}
		c <- &SimulationStatus{
			Iteration:     b.iteration,
			Walltime:      time.Since(startTime),
			StepWalltime:  time.Since(timeStepTime),
			Dt:            b.Dt,
			Time:          b.Time,
			EffluentRatio: b.EffluentRatio(),
			HeadLoss:      b.HeadLoss,
		}
		timeStepTime = time.Now()
		return nil
	}
}

// EffluentRatio returns the ratio of effluent to influent concentration.
func (b *Bed) EffluentRatio() float64 {
	if b.Params.InfluentConcentration == 0 {
		return 0
	}
	return b.Effluent / b.Params.InfluentConcentration
}
