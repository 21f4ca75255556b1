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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/bpearlman97/FiltrationStudy"
	"github.com/bpearlman97/FiltrationStudy/cloud"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// RunConfig holds the settings that control a filter run simulation
// and where its results are written.
type RunConfig struct {
	// MaxTimeStep is the longest allowed time step [s].
	MaxTimeStep float64
	// MaxSaturationChange limits the change in σv/σu in any layer per step.
	MaxSaturationChange float64
	// MaxRunTime is the filter run length [h].
	MaxRunTime float64
	// TerminalHeadLoss [m] and Breakthrough [C/C0] end the run when
	// reached. Zero disables them.
	TerminalHeadLoss, Breakthrough float64
	// RecordInterval is the simulated time between records [s].
	RecordInterval float64

	LogFile         string
	OutputFile      string
	OutputVariables map[string]string
	TimeSeriesFile  string
	SummaryFile     string

	ProfilePlot      string
	BreakthroughPlot string

	RestartFile string
	SaveFile    string
}

// RunConfigFromViper reads the run settings from a viper configuration.
func RunConfigFromViper(cfg *viper.Viper) (*RunConfig, error) {
	vars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return nil, err
	}
	if vars, err = checkOutputVars(vars); err != nil {
		return nil, err
	}
	rc := &RunConfig{
		MaxTimeStep:         cfg.GetFloat64("MaxTimeStep"),
		MaxSaturationChange: cfg.GetFloat64("MaxSaturationChange"),
		MaxRunTime:          cfg.GetFloat64("MaxRunTime"),
		TerminalHeadLoss:    cfg.GetFloat64("TerminalHeadLoss"),
		Breakthrough:        cfg.GetFloat64("Breakthrough"),
		RecordInterval:      cfg.GetFloat64("RecordInterval"),
		OutputVariables:     vars,
		RestartFile:         expandPath(cfg.GetString("RestartFile")),
	}
	if rc.OutputFile, err = checkOutputFile(cfg.GetString("OutputFile")); err != nil {
		return nil, err
	}
	rc.LogFile = expandPath(cfg.GetString("LogFile"))
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"TimeSeriesFile", &rc.TimeSeriesFile},
		{"SummaryFile", &rc.SummaryFile},
		{"ProfilePlot", &rc.ProfilePlot},
		{"BreakthroughPlot", &rc.BreakthroughPlot},
		{"SaveFile", &rc.SaveFile},
	} {
		path := cfg.GetString(f.name)
		if path == "" {
			continue
		}
		if *f.dst, err = checkOutputFile(path); err != nil {
			return nil, fmt.Errorf("%s: %v", f.name, err)
		}
	}
	if err := rc.validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *RunConfig) validate() error {
	if !(rc.MaxTimeStep > 0) {
		return fmt.Errorf("filtration: MaxTimeStep=%g but should be >0", rc.MaxTimeStep)
	}
	if !(rc.MaxSaturationChange > 0) {
		return fmt.Errorf("filtration: MaxSaturationChange=%g but should be >0", rc.MaxSaturationChange)
	}
	if !(rc.RecordInterval > 0) {
		return fmt.Errorf("filtration: RecordInterval=%g but should be >0", rc.RecordInterval)
	}
	if rc.MaxRunTime < 0 || rc.TerminalHeadLoss < 0 || rc.Breakthrough < 0 {
		return fmt.Errorf("filtration: run end criteria must not be negative")
	}
	if rc.MaxRunTime == 0 && rc.TerminalHeadLoss == 0 && rc.Breakthrough == 0 {
		return fmt.Errorf("filtration: at least one of MaxRunTime, TerminalHeadLoss, or Breakthrough must be set")
	}
	if rc.MaxRunTime == 0 {
		return fmt.Errorf("filtration: MaxRunTime must be set so that the run is guaranteed to end")
	}
	return nil
}

// ParametersFromViper reads the physical parameters of the bed from the
// "Params" section of a viper configuration.
func ParametersFromViper(cfg *viper.Viper) (*filtration.Parameters, error) {
	p := new(filtration.Parameters)
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := "Params." + t.Field(i).Name
		switch t.Field(i).Type.Kind() {
		case reflect.Float64:
			f, err := cast.ToFloat64E(cfg.Get(name))
			if err != nil {
				return nil, fmt.Errorf("filtration: %s: %v", name, err)
			}
			v.Field(i).SetFloat(f)
		case reflect.Int:
			n, err := cast.ToIntE(cfg.Get(name))
			if err != nil {
				return nil, fmt.Errorf("filtration: %s: %v", name, err)
			}
			v.Field(i).SetInt(int64(n))
		default:
			panic(fmt.Errorf("filtrationutil: unsupported parameter type for %s", name))
		}
	}
	return p, nil
}

// expandPath expands any environment variables in a file path.
func expandPath(path string) string {
	return os.ExpandEnv(path)
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory or bucket exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="profile.csv")`)
	}
	f = expandPath(f)
	if cloud.IsBlob(f) {
		bucket, _, err := cloud.SplitURL(f)
		if err != nil {
			return f, err
		}
		if err = cloud.CheckBucket(context.TODO(), bucket); err != nil {
			return f, fmt.Errorf("filtration: error when checking output location: %v", err)
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("filtration: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkInputFile makes sure that the named input file is specified and
// expands any environment variables in it.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("filtration: you need to specify the %s configuration variable", name)
	}
	return expandPath(f), nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapString(v), nil
	case string:
		d := json.NewDecoder(bytes.NewBufferString(v))
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("filtration: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("filtration: invalid type for %s: %#v", varName, i)
	}
}

// toFloatSliceE converts a list of values from a configuration file or
// command line argument to floating point numbers.
func toFloatSliceE(i interface{}) ([]float64, error) {
	var items []interface{}
	switch v := i.(type) {
	case []float64:
		return v, nil
	case []string:
		for _, s := range v {
			items = append(items, strings.TrimSpace(s))
		}
	case string:
		for _, s := range strings.Split(strings.Trim(v, "[]"), ",") {
			items = append(items, strings.TrimSpace(s))
		}
	default:
		var err error
		items, err = cast.ToSliceE(i)
		if err != nil {
			return nil, err
		}
	}
	o := make([]float64, len(items))
	for j, item := range items {
		f, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, err
		}
		o[j] = f
	}
	return o, nil
}
