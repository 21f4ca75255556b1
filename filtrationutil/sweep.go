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

package filtrationutil

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/bpearlman97/FiltrationStudy"
	"github.com/bpearlman97/FiltrationStudy/internal/hash"
	"github.com/ctessum/requestcache"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// SweepResult holds the outcome of one scenario of a parameter sweep.
type SweepResult struct {
	// Value is the value of the swept parameter.
	Value   float64
	Summary filtration.Summary
}

type scenario struct {
	p  *filtration.Parameters
	rc *RunConfig
}

// setParameter sets the field of p with the given name to v.
func setParameter(p *filtration.Parameters, name string, v float64) error {
	f := reflect.ValueOf(p).Elem().FieldByNameFunc(func(n string) bool {
		return strings.EqualFold(n, name)
	})
	if !f.IsValid() {
		return fmt.Errorf("filtration: invalid sweep parameter '%s'", name)
	}
	switch f.Kind() {
	case reflect.Float64:
		f.SetFloat(v)
	case reflect.Int:
		if v != math.Trunc(v) {
			return fmt.Errorf("filtration: sweep parameter '%s' must be an integer but is %g", name, v)
		}
		f.SetInt(int64(v))
	default:
		return fmt.Errorf("filtration: sweep parameter '%s' is not a number", name)
	}
	return nil
}

// Sweep simulates one filter run for each value of the parameter named
// param, starting from the parameters in base, with up to workers
// simulations running at once. Scenarios that are identical are only
// simulated once. If outputFile is not blank, a table of the run
// summaries is written to it. The results are returned in the order of
// values.
func Sweep(ctx context.Context, log logrus.FieldLogger, base *filtration.Parameters, rc *RunConfig, param string, values []float64, workers int, outputFile string) ([]SweepResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("filtration: no values specified for sweep parameter '%s'", param)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}

	// Every scenario is checked before any of them is simulated.
	scenarios := make([]scenario, len(values))
	for i, v := range values {
		p := base.Clone()
		if err := setParameter(p, param, v); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("filtration: sweep scenario %s=%g: %v", param, v, err)
		}
		scenarios[i] = scenario{p: p, rc: rc}
	}

	var upload uploader
	defer upload.cleanup()
	outputFile = upload.maybeUpload(outputFile)
	if upload.err != nil {
		return nil, upload.err
	}

	// A failed scenario cancels the ones still running.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		firstErr error
		errOnce  sync.Once
	)

	cache := requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		s := request.(scenario)
		return simulate(ctx, s.p, s.rc)
	}, workers, requestcache.Deduplicate(), requestcache.Memory(len(values)))

	results := make([]SweepResult, len(values))
	var wg sync.WaitGroup
	for i, s := range scenarios {
		req := cache.NewRequest(ctx, s, hash.Hash(s.p, runSettings(rc)))
		wg.Add(1)
		go func(i int, v float64, req *requestcache.Request) {
			defer wg.Done()
			result, err := req.Result()
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("filtration: sweep scenario %s=%g: %v", param, v, err)
					cancel()
				})
				return
			}
			results[i] = SweepResult{Value: v, Summary: *result.(*filtration.Summary)}
			log.WithFields(logrus.Fields{
				param:        v,
				"end_reason": results[i].Summary.EndReason,
				"run_time":   results[i].Summary.RunTime,
			}).Info("scenario finished")
		}(i, values[i], req)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	if outputFile != "" {
		if err := writeSweep(outputFile, param, results); err != nil {
			return nil, err
		}
		if err := upload.uploadOutput(ctx, log.Warnf); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// sweepFromConfig runs the parameter sweep described by cfg, logging to
// the output of cmd and the log file.
func sweepFromConfig(ctx context.Context, cmd *cobra.Command, cfg *viper.Viper) error {
	rc, err := RunConfigFromViper(cfg)
	if err != nil {
		return err
	}
	p, err := ParametersFromViper(cfg)
	if err != nil {
		return err
	}
	values, err := toFloatSliceE(cfg.Get("Sweep.Values"))
	if err != nil {
		return fmt.Errorf("filtration: Sweep.Values: %v", err)
	}
	outputFile, err := checkOutputFile(cfg.GetString("Sweep.OutputFile"))
	if err != nil {
		return err
	}

	var upload uploader
	defer upload.cleanup()
	log, closeLog, err := newLogger(cmd.OutOrStdout(), upload.maybeUpload(checkLogFile(rc.LogFile, outputFile)))
	if err != nil {
		return err
	}
	defer closeLog()
	if _, err = Sweep(ctx, log, p, rc, cfg.GetString("Sweep.Parameter"), values, cfg.GetInt("Sweep.Workers"), outputFile); err != nil {
		return err
	}
	return upload.uploadOutput(ctx, log.Warnf)
}

// runSettings returns the parts of rc that affect simulation results.
func runSettings(rc *RunConfig) [6]float64 {
	return [6]float64{rc.MaxTimeStep, rc.MaxSaturationChange, rc.MaxRunTime,
		rc.TerminalHeadLoss, rc.Breakthrough, rc.RecordInterval}
}

func writeSweep(fileName, param string, results []SweepResult) error {
	header := []string{param, "EndReason", "RunTime", "Iterations",
		"CleanHeadLoss", "FinalHeadLoss", "FinalEffluentRatio", "MeanEffluentRatio",
		"RemovalEfficiency", "DepositedMass", "MassBalanceError"}
	rows := make([][]interface{}, len(results))
	for i, r := range results {
		s := r.Summary
		rows[i] = []interface{}{r.Value, s.EndReason, s.RunTime, s.Iterations,
			s.CleanHeadLoss, s.FinalHeadLoss, s.FinalEffluent, s.MeanEffluentRatio,
			s.RemovalEfficiency, s.DepositedMass, s.MassBalanceError}
	}
	return filtration.WriteTable(fileName, "sweep", header, rows)
}
