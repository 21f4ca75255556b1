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

import "fmt"

// EndReason describes why a filter run finished.
type EndReason int

// Reasons a filter run can finish.
const (
	NotFinished EndReason = iota
	EndOfRunTime
	TerminalHeadLoss
	Breakthrough
)

func (r EndReason) String() string {
	switch r {
	case NotFinished:
		return "not finished"
	case EndOfRunTime:
		return "maximum run time"
	case TerminalHeadLoss:
		return "terminal head loss"
	case Breakthrough:
		return "effluent breakthrough"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

// RunStatus reports the state of the bed when a run finishes.
type RunStatus struct {
	Reason        EndReason
	Time          float64 // seconds
	HeadLoss      float64 // meters
	EffluentRatio float64
}

func (s RunStatus) String() string {
	return fmt.Sprintf("run finished after %.3g hours (%v): headloss=%.3gm C/C0=%.3g",
		s.Time/3600, s.Reason, s.HeadLoss, s.EffluentRatio)
}

// RunEndCheck returns a function that marks the simulation as done when
// the elapsed time reaches maxTime seconds, the total head loss reaches
// terminalHead meters, or the ratio of effluent to influent concentration
// reaches breakthrough. Criteria that are not > 0 are ignored, except that
// a run with no active criteria ends immediately. When the run ends, its
// status is sent to c if c is not nil.
func RunEndCheck(maxTime, terminalHead, breakthrough float64, c chan RunStatus) DomainManipulator {
	return func(b *Bed) error {
		ratio := b.EffluentRatio()
		switch {
		case terminalHead > 0 && b.HeadLoss >= terminalHead:
			b.EndReason = TerminalHeadLoss
		case breakthrough > 0 && ratio >= breakthrough:
			b.EndReason = Breakthrough
		case maxTime > 0 && b.Time >= maxTime:
			b.EndReason = EndOfRunTime
		case !(maxTime > 0) && !(terminalHead > 0) && !(breakthrough > 0):
			b.EndReason = EndOfRunTime
		default:
			return nil
		}
		b.Done = true
		if c != nil {
			c <- RunStatus{
				Reason:        b.EndReason,
				Time:          b.Time,
				HeadLoss:      b.HeadLoss,
				EffluentRatio: ratio,
			}
		}
		return nil
	}
}
