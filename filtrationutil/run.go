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
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bpearlman97/FiltrationStudy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLogger returns a logger that writes to w and, if logFile is not
// blank, to logFile. The returned function closes the log file.
func newLogger(w io.Writer, logFile string) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		DisableSorting:   true,
		QuoteEmptyFields: true,
	}
	if logFile == "" {
		log.Out = w
		return log, func() {}, nil
	}
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("filtration: problem creating log file: %v", err)
	}
	log.Out = io.MultiWriter(w, f)
	return log, func() { f.Close() }, nil
}

// Run runs a filter run simulation for the bed described by p with the
// settings in rc, writing its outputs to the locations in rc. Log messages
// are written to the output of cmd and to the log file. The returned
// Summary describes the completed run.
func Run(ctx context.Context, cmd *cobra.Command, p *filtration.Parameters, rc *RunConfig) (*filtration.Summary, error) {
	startTime := time.Now()

	var upload uploader
	defer upload.cleanup()

	log, closeLog, err := newLogger(cmd.OutOrStdout(), upload.maybeUpload(checkLogFile(rc.LogFile, rc.OutputFile)))
	if err != nil {
		return nil, err
	}

	// Start functions to receive and print log messages.
	cLog := make(chan *filtration.SimulationStatus)
	cEnd := make(chan filtration.RunStatus)
	cLogTick := time.Tick(2 * time.Second)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		for msg := range cLog {
			select {
			case <-cLogTick:
				log.Info(msg.String())
			default:
				runtime.Gosched()
			}
		}
		wg.Done()
	}()
	go func() {
		for msg := range cEnd {
			log.WithField("reason", msg.Reason).Info(msg.String())
		}
		wg.Done()
	}()
	defer func() { // Wait for the logging to finish.
		close(cLog)
		close(cEnd)
		wg.Wait()
		closeLog()
	}()

	log.Info("Parsing output variable expressions...")
	o, err := filtration.NewOutputter(upload.maybeUpload(rc.OutputFile), rc.OutputVariables, nil)
	if err != nil {
		return nil, err
	}

	var initBed filtration.DomainManipulator
	if rc.RestartFile != "" {
		log.WithField("file", rc.RestartFile).Info("Loading saved bed state...")
		path, removeDownload, err := maybeDownload(ctx, rc.RestartFile)
		if err != nil {
			return nil, err
		}
		defer removeDownload()
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("filtration: problem opening RestartFile: %v", err)
		}
		defer f.Close()
		initBed = filtration.Load(f)
	} else {
		initBed = filtration.InitLayers(p)
	}

	rec := filtration.NewRecorder(rc.RecordInterval)
	var summary filtration.Summary

	cleanup := []filtration.DomainManipulator{rec.Final(), o.Output()}
	if rc.TimeSeriesFile != "" {
		cleanup = append(cleanup, writeTimeSeries(upload.maybeUpload(rc.TimeSeriesFile), rec))
	}
	if rc.ProfilePlot != "" {
		cleanup = append(cleanup, plotProfile(upload.maybeUpload(rc.ProfilePlot)))
	}
	if rc.BreakthroughPlot != "" {
		cleanup = append(cleanup, plotBreakthrough(upload.maybeUpload(rc.BreakthroughPlot), rec, rc.TerminalHeadLoss))
	}
	if rc.SaveFile != "" {
		cleanup = append(cleanup, saveBed(upload.maybeUpload(rc.SaveFile)))
	}
	cleanup = append(cleanup, summarize(rec, &summary, upload.maybeUpload(rc.SummaryFile)))
	if upload.err != nil {
		return nil, upload.err
	}

	b := &filtration.Bed{
		InitFuncs: []filtration.DomainManipulator{
			initBed,
			o.CheckOutputVars(),
			rec.Record(),
		},
		RunFuncs:     runFuncs(ctx, rc, rec, cLog, cEnd),
		CleanupFuncs: cleanup,
	}

	log.Info("Initializing bed...")
	if err = b.Init(); err != nil {
		return nil, fmt.Errorf("filtration: problem initializing bed: %v", err)
	}
	log.WithFields(logrus.Fields{
		"layers":  len(b.Layers()),
		"lambda0": b.Lambda0(),
		"head":    b.HeadLoss,
	}).Info("Starting simulation...")
	if err = b.Run(); err != nil {
		return nil, fmt.Errorf("filtration: problem running simulation: %v", err)
	}
	log.Info("Writing output...")
	if err = b.Cleanup(); err != nil {
		return nil, err
	}
	if err = upload.uploadOutput(ctx, log.Warnf); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"end_reason":         summary.EndReason,
		"run_time_hours":     summary.RunTime,
		"final_head_loss":    summary.FinalHeadLoss,
		"removal_efficiency": summary.RemovalEfficiency,
	}).Infof("Filter run finished; simulation took %v.", time.Since(startTime))
	return &summary, nil
}

// runFuncs returns the functions that advance the simulation and check
// whether it has finished. cLog and cEnd may be nil.
func runFuncs(ctx context.Context, rc *RunConfig, rec *filtration.Recorder, cLog chan *filtration.SimulationStatus, cEnd chan filtration.RunStatus) []filtration.DomainManipulator {
	f := []filtration.DomainManipulator{filtration.CheckContext(ctx)}
	f = append(f, filtration.DefaultRunFuncs(rc.MaxTimeStep, rc.MaxSaturationChange)...)
	return append(f,
		rec.Record(),
		filtration.Log(cLog),
		filtration.RunEndCheck(rc.MaxRunTime*3600, rc.TerminalHeadLoss, rc.Breakthrough, cEnd),
	)
}

// simulate runs a filter run without writing any output files and
// returns its summary.
func simulate(ctx context.Context, p *filtration.Parameters, rc *RunConfig) (*filtration.Summary, error) {
	rec := filtration.NewRecorder(rc.RecordInterval)
	var summary filtration.Summary
	b := &filtration.Bed{
		InitFuncs:    []filtration.DomainManipulator{filtration.InitLayers(p), rec.Record()},
		RunFuncs:     runFuncs(ctx, rc, rec, nil, nil),
		CleanupFuncs: []filtration.DomainManipulator{rec.Final(), summarize(rec, &summary, "")},
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	if err := b.Run(); err != nil {
		return nil, err
	}
	if err := b.Cleanup(); err != nil {
		return nil, err
	}
	return &summary, nil
}

func writeTimeSeries(fileName string, rec *filtration.Recorder) filtration.DomainManipulator {
	return func(*filtration.Bed) error {
		return filtration.WriteTimeSeries(fileName, rec.Records())
	}
}

func plotProfile(fileName string) filtration.DomainManipulator {
	return func(b *filtration.Bed) error {
		return filtration.PlotProfile(fileName, b)
	}
}

func plotBreakthrough(fileName string, rec *filtration.Recorder, maxHead float64) filtration.DomainManipulator {
	return func(*filtration.Bed) error {
		return filtration.PlotBreakthrough(fileName, rec.Records(), maxHead)
	}
}

func saveBed(fileName string) filtration.DomainManipulator {
	return func(b *filtration.Bed) error {
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("filtration: creating SaveFile: %v", err)
		}
		if err := filtration.Save(f)(b); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// summarize stores the summary of the run in s and, if fileName is not
// blank, writes it to fileName in TOML format.
func summarize(rec *filtration.Recorder, s *filtration.Summary, fileName string) filtration.DomainManipulator {
	return func(b *filtration.Bed) error {
		*s = rec.Summarize(b)
		if fileName == "" {
			return nil
		}
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("filtration: creating SummaryFile: %v", err)
		}
		if err := toml.NewEncoder(f).Encode(s); err != nil {
			f.Close()
			return fmt.Errorf("filtration: writing SummaryFile: %v", err)
		}
		return f.Close()
	}
}
