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

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// PlotProfile saves a plot of the normalized concentration and pore
// saturation against depth in b to fileName. The format is chosen
// from the file extension (e.g., .png, .svg, .pdf).
func PlotProfile(fileName string, b *Bed) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("filtration: plotting profile: %v", err)
	}
	p.Title.Text = fmt.Sprintf("Bed profile at %.3g h", b.Time/3600)
	p.X.Label.Text = "Depth (m)"
	p.Y.Label.Text = "Fraction"
	p.Y.Min, p.Y.Max = 0, 1

	conc := make(plotter.XYs, len(b.layers))
	sat := make(plotter.XYs, len(b.layers))
	c0 := b.Params.InfluentConcentration
	for i, l := range b.layers {
		conc[i].X, sat[i].X = l.Depth, l.Depth
		if c0 > 0 {
			conc[i].Y = l.C / c0
		}
		sat[i].Y = l.SigmaV / b.Params.UltimateDeposit
	}
	if err := plotutil.AddLines(p, "C/C0", conc, "σv/σu", sat); err != nil {
		return fmt.Errorf("filtration: plotting profile: %v", err)
	}
	return savePlot(p, fileName)
}

// PlotBreakthrough saves a plot of the effluent ratio and the fraction of
// maxHead reached by the head loss against time to fileName.
func PlotBreakthrough(fileName string, recs []Record, maxHead float64) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("filtration: plotting breakthrough: %v", err)
	}
	p.Title.Text = "Filter run"
	p.X.Label.Text = "Time (h)"
	p.Y.Label.Text = "Fraction"

	ratio := make(plotter.XYs, len(recs))
	head := make(plotter.XYs, len(recs))
	for i, r := range recs {
		ratio[i].X, head[i].X = r.Time/3600, r.Time/3600
		ratio[i].Y = r.EffluentRatio
		if maxHead > 0 {
			head[i].Y = r.HeadLoss / maxHead
		}
	}
	lr, err := plotter.NewLine(ratio)
	if err != nil {
		return fmt.Errorf("filtration: plotting breakthrough: %v", err)
	}
	lr.Color = plotutil.Color(0)
	p.Add(lr)
	p.Legend.Add("C/C0", lr)
	if maxHead > 0 {
		lh, err := plotter.NewLine(head)
		if err != nil {
			return fmt.Errorf("filtration: plotting breakthrough: %v", err)
		}
		lh.Color = plotutil.Color(1)
		lh.Dashes = plotutil.Dashes(1)
		p.Add(lh)
		p.Legend.Add("H/Hmax", lh)
	}
	return savePlot(p, fileName)
}

func savePlot(p *plot.Plot, fileName string) error {
	if err := p.Save(plotWidth, plotHeight, fileName); err != nil {
		return fmt.Errorf("filtration: saving plot: %v", err)
	}
	return nil
}
